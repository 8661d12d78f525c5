/*******************************************************************************
*
* Copyright 2016 Stefan Majewsky <majewsky@gmx.net>
*
* This file is part of Holo.
*
* Holo is free software: you can redistribute it and/or modify it under the
* terms of the GNU General Public License as published by the Free Software
* Foundation, either version 3 of the License, or (at your option) any later
* version.
*
* Holo is distributed in the hope that it will be useful, but WITHOUT ANY
* WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS FOR
* A PARTICULAR PURPOSE. See the GNU General Public License for more details.
*
* You should have received a copy of the GNU General Public License along with
* Holo. If not, see <http://www.gnu.org/licenses/>.
*
*******************************************************************************/

package transport

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBarePathAndFileURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	for _, url := range []string{path, "file://" + path} {
		rc, err := Open(context.Background(), url)
		require.NoError(t, err, url)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), data)
	}
}

func TestOpenHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ok" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	rc, err := Open(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = Open(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), "gopher://example.org/x")
	assert.Error(t, err)
}

func TestArchiveRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Tar.WriteHeader(&tar.Header{
		Name: "usr/", Typeflag: tar.TypeDir, Mode: 0o755,
	}))
	content := []byte("#!/bin/sh\necho hi\n")
	require.NoError(t, w.Tar.WriteHeader(&tar.Header{
		Name: "usr/hi", Typeflag: tar.TypeReg, Mode: 0o755, Size: int64(len(content)),
	}))
	_, err := w.Tar.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	type seen struct {
		name string
		dir  bool
		data []byte
	}
	var entries []seen
	err = ForEachEntry(bytes.NewReader(buf.Bytes()), func(en Entry) error {
		data, err := io.ReadAll(en.Reader)
		if err != nil {
			return err
		}
		entries = append(entries, seen{en.Header.Name, en.Header.Typeflag == tar.TypeDir, data})
		return nil
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "usr/", entries[0].name)
	assert.True(t, entries[0].dir)
	assert.Equal(t, "usr/hi", entries[1].name)
	assert.Equal(t, content, entries[1].data)
}

func TestForEachEntryStopsOnCallbackError(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, w.Tar.WriteHeader(&tar.Header{
			Name: name, Typeflag: tar.TypeReg, Mode: 0o644, Size: 0,
		}))
	}
	require.NoError(t, w.Close())

	var visited []string
	err := ForEachEntry(bytes.NewReader(buf.Bytes()), func(en Entry) error {
		visited = append(visited, en.Header.Name)
		if en.Header.Name == "b" {
			return io.ErrUnexpectedEOF
		}
		return nil
	})
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, []string{"a", "b"}, visited)
}
