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
	"io"

	"github.com/klauspost/compress/gzip"
)

//Entry is one archive member handed to the install engine's per-entry
//classifier.
type Entry struct {
	Header *tar.Header
	Reader io.Reader
}

//ForEachEntry decompresses r as gzip and streams each tar entry to fn in
//archive order, stopping at the first error either side returns.
func ForEachEntry(r io.Reader, fn func(Entry) error) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(Entry{Header: hdr, Reader: tr}); err != nil {
			return err
		}
	}
}

//Writer wraps a gzip+tar writer pair for building .apk archives (used by
//packaging tools built against this database, and by tests constructing
//fixture archives).
type Writer struct {
	gz  *gzip.Writer
	Tar *tar.Writer
}

//NewWriter wraps w in a gzip+tar writer pair.
func NewWriter(w io.Writer) *Writer {
	gz := gzip.NewWriter(w)
	return &Writer{gz: gz, Tar: tar.NewWriter(gz)}
}

//Close flushes and closes both the tar and gzip layers.
func (w *Writer) Close() error {
	if err := w.Tar.Close(); err != nil {
		return err
	}
	return w.gz.Close()
}
