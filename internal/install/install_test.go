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

package install

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holocm/apkdb/internal/checksum"
	"github.com/holocm/apkdb/internal/graph"
	"github.com/holocm/apkdb/internal/logging"
	"github.com/holocm/apkdb/internal/rootfs"
	"github.com/holocm/apkdb/internal/transport"
)

type archEntry struct {
	name string
	dir  bool
	data string
}

func buildArchive(t *testing.T, entries []archEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := transport.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o755, Uid: 0, Gid: 0}
		if e.dir {
			hdr.Typeflag = tar.TypeDir
		} else {
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.data))
		}
		require.NoError(t, w.Tar.WriteHeader(hdr))
		if !e.dir {
			_, err := w.Tar.Write([]byte(e.data))
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

type fixture struct {
	g      *graph.Graph
	fs     *rootfs.Root
	e      *Engine
	root   string
	pkgDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	fs, err := rootfs.Open(root)
	require.NoError(t, err)
	t.Cleanup(func() { fs.Close() })

	g := graph.New(16, 16, 16)
	g.SetProtectedPaths("etc:-etc/init.d")
	e := &Engine{
		Graph: g,
		FS:    fs,
		Log:   logging.New(io.Discard, false),
	}
	return &fixture{g: g, fs: fs, e: e, root: root, pkgDir: t.TempDir()}
}

//newPkg stages an archive on disk and interns a package installing from it.
func (fx *fixture) newPkg(t *testing.T, name, version string, archive []byte) *graph.Package {
	t.Helper()
	path := filepath.Join(fx.pkgDir, name+"-"+version+".apk")
	require.NoError(t, os.WriteFile(path, archive, 0o644))
	pkg := graph.NewPackage(fx.g.GetName(name), version, checksum.Of(archive))
	pkg.FileName = path
	return fx.g.PkgAdd(pkg)
}

func (fx *fixture) diskContent(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(fx.root, path))
	require.NoError(t, err)
	return string(data)
}

func TestInstallFresh(t *testing.T) {
	fx := newFixture(t)
	archive := buildArchive(t, []archEntry{
		{name: "usr/", dir: true},
		{name: "usr/bin/", dir: true},
		{name: "usr/bin/a", data: "#!/bin/sh\necho a\n"},
		//mismatched legacy metadata prefixes are ignored silently
		{name: "var/db/apk/otherpkg/9.9/pre-install", data: "echo nope"},
		{name: ".SOMETHING", data: "ignored"},
	})
	pkg := fx.newPkg(t, "pkg-a", "1.0", archive)

	require.NoError(t, fx.e.InstallPkg(context.Background(), nil, pkg))

	assert.Equal(t, graph.StateInstall, pkg.State)
	assert.Equal(t, graph.Stats{Packages: 1, Dirs: 2, Files: 1}, fx.g.Stats)
	assert.Equal(t, 1, pkg.OwnedFilesLen())
	assert.Empty(t, pkg.Scripts, "entries under foreign var/db/apk prefixes are not scripts")

	assert.Equal(t, "#!/bin/sh\necho a\n", fx.diskContent(t, "usr/bin/a"))
	assert.DirExists(t, filepath.Join(fx.root, "usr/bin"))

	var file *graph.File
	pkg.ForEachOwnedFile(func(f *graph.File) { file = f })
	require.NotNil(t, file)
	assert.Equal(t, "usr/bin/a", file.Path())
	assert.True(t, file.Csum.Equal(checksum.Of([]byte("#!/bin/sh\necho a\n"))))

	d := fx.g.GetDir("usr/bin")
	assert.Equal(t, 1, d.Refs)
	assert.EqualValues(t, 0o755, d.Mode.Perm())
}

func TestInstallChecksumMismatchIsOnlyAWarning(t *testing.T) {
	fx := newFixture(t)
	archive := buildArchive(t, []archEntry{{name: "usr/", dir: true}, {name: "usr/f", data: "x"}})
	path := filepath.Join(fx.pkgDir, "pkg-m-1.0.apk")
	require.NoError(t, os.WriteFile(path, archive, 0o644))

	pkg := graph.NewPackage(fx.g.GetName("pkg-m"), "1.0", checksum.Of([]byte("not the archive")))
	pkg.FileName = path
	pkg = fx.g.PkgAdd(pkg)

	require.NoError(t, fx.e.InstallPkg(context.Background(), nil, pkg))
	assert.Equal(t, graph.StateInstall, pkg.State)
}

func TestPurgeRemovesFilesAndEmptyDirs(t *testing.T) {
	fx := newFixture(t)
	archive := buildArchive(t, []archEntry{
		{name: "opt/", dir: true},
		{name: "opt/c/", dir: true},
		{name: "opt/c/bin/", dir: true},
		{name: "opt/c/bin/c", data: "binary"},
	})
	pkg := fx.newPkg(t, "pkg-c", "1.0", archive)
	require.NoError(t, fx.e.InstallPkg(context.Background(), nil, pkg))
	require.Equal(t, graph.Stats{Packages: 1, Dirs: 3, Files: 1}, fx.g.Stats)

	require.NoError(t, fx.e.InstallPkg(context.Background(), pkg, nil))

	assert.Equal(t, graph.Stats{}, fx.g.Stats)
	assert.Equal(t, graph.StateNoInstall, pkg.State)
	assert.Equal(t, 0, pkg.OwnedFilesLen())
	for _, p := range []string{"opt/c/bin/c", "opt/c/bin", "opt/c", "opt"} {
		assert.NoFileExists(t, filepath.Join(fx.root, p))
		assert.NoDirExists(t, filepath.Join(fx.root, p))
	}
	for _, d := range []string{"opt", "opt/c", "opt/c/bin"} {
		assert.Equal(t, 0, fx.g.GetDir(d).Refs)
	}
}

func TestConflictAbortsInstall(t *testing.T) {
	fx := newFixture(t)
	first := buildArchive(t, []archEntry{{name: "usr/", dir: true}, {name: "usr/bin/", dir: true}, {name: "usr/bin/x", data: "d"}})
	pkgD := fx.newPkg(t, "pkg-d", "1.0", first)
	require.NoError(t, fx.e.InstallPkg(context.Background(), nil, pkgD))

	second := buildArchive(t, []archEntry{{name: "usr/", dir: true}, {name: "usr/bin/", dir: true}, {name: "usr/bin/x", data: "e"}})
	pkgE := fx.newPkg(t, "pkg-e", "1.0", second)
	err := fx.e.InstallPkg(context.Background(), nil, pkgE)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trying to overwrite")
	assert.Contains(t, err.Error(), "pkg-d")

	assert.Equal(t, graph.StateNoInstall, pkgE.State)
	var cursor graph.FileCursor
	f := fx.g.GetFile("usr/bin/x", &cursor)
	assert.Same(t, pkgD, f.Owner)
	assert.Equal(t, "d", fx.diskContent(t, "usr/bin/x"))
}

func TestBusyboxFilesMayBeShadowed(t *testing.T) {
	fx := newFixture(t)
	bb := buildArchive(t, []archEntry{{name: "bin/", dir: true}, {name: "bin/ls", data: "tiny ls"}})
	busybox := fx.newPkg(t, "busybox", "1.0", bb)
	require.NoError(t, fx.e.InstallPkg(context.Background(), nil, busybox))

	cu := buildArchive(t, []archEntry{{name: "bin/", dir: true}, {name: "bin/ls", data: "real ls"}})
	coreutils := fx.newPkg(t, "coreutils", "9.0", cu)
	require.NoError(t, fx.e.InstallPkg(context.Background(), nil, coreutils))

	var cursor graph.FileCursor
	f := fx.g.GetFile("bin/ls", &cursor)
	assert.Same(t, coreutils, f.Owner)
	assert.Equal(t, 0, busybox.OwnedFilesLen())
	assert.Equal(t, 1, coreutils.OwnedFilesLen())
	assert.Equal(t, "real ls", fx.diskContent(t, "bin/ls"))
	assert.Equal(t, 1, fx.g.Stats.Files, "re-owning does not double count")
}

func TestKeepFilePinsDirectoryWithoutContent(t *testing.T) {
	fx := newFixture(t)
	archive := buildArchive(t, []archEntry{
		{name: "var/", dir: true},
		{name: "var/empty/", dir: true},
		{name: "var/empty/.keep_empty", data: "never extracted"},
	})
	pkg := fx.newPkg(t, "pkg-k", "1.0", archive)
	require.NoError(t, fx.e.InstallPkg(context.Background(), nil, pkg))

	assert.DirExists(t, filepath.Join(fx.root, "var/empty"))
	assert.NoFileExists(t, filepath.Join(fx.root, "var/empty/.keep_empty"))
	assert.Equal(t, 1, pkg.OwnedFilesLen(), "the marker is owned even though nothing hits the disk")
	assert.Equal(t, 1, fx.g.Stats.Files)

	var file *graph.File
	pkg.ForEachOwnedFile(func(f *graph.File) { file = f })
	assert.False(t, file.Csum.Valid(), "no payload, no checksum")
}

func TestProtectedModifiedFileSidestepsOnUpgrade(t *testing.T) {
	fx := newFixture(t)
	v1 := buildArchive(t, []archEntry{{name: "etc/", dir: true}, {name: "etc/b.conf", data: "shipped v1"}})
	pkg1 := fx.newPkg(t, "pkg-b", "1.0", v1)
	require.NoError(t, fx.e.InstallPkg(context.Background(), nil, pkg1))

	//the operator edits the config file
	require.NoError(t, os.WriteFile(filepath.Join(fx.root, "etc/b.conf"), []byte("operator edit"), 0o644))

	v2 := buildArchive(t, []archEntry{{name: "etc/", dir: true}, {name: "etc/b.conf", data: "shipped v2"}})
	pkg2 := fx.newPkg(t, "pkg-b", "2.0", v2)
	require.NoError(t, fx.e.InstallPkg(context.Background(), pkg1, pkg2))

	assert.Equal(t, "operator edit", fx.diskContent(t, "etc/b.conf"), "the local edit survives")
	assert.Equal(t, "shipped v2", fx.diskContent(t, "etc/b.conf.apk-new"))

	assert.Equal(t, graph.StateInstall, pkg2.State)
	assert.Equal(t, graph.StateNoInstall, pkg1.State)
	assert.Equal(t, 0, pkg1.OwnedFilesLen())

	var file *graph.File
	pkg2.ForEachOwnedFile(func(f *graph.File) { file = f })
	require.NotNil(t, file)
	assert.Equal(t, "etc/b.conf", file.Path())
	assert.True(t, file.Csum.Equal(checksum.Of([]byte("shipped v2"))),
		"the database records the shipped content's digest")
}

func TestUpgradeReplacesUnmodifiedFiles(t *testing.T) {
	fx := newFixture(t)
	v1 := buildArchive(t, []archEntry{{name: "etc/", dir: true}, {name: "etc/b.conf", data: "shipped v1"}})
	pkg1 := fx.newPkg(t, "pkg-b", "1.0", v1)
	require.NoError(t, fx.e.InstallPkg(context.Background(), nil, pkg1))

	v2 := buildArchive(t, []archEntry{{name: "etc/", dir: true}, {name: "etc/b.conf", data: "shipped v2"}})
	pkg2 := fx.newPkg(t, "pkg-b", "2.0", v2)
	require.NoError(t, fx.e.InstallPkg(context.Background(), pkg1, pkg2))

	assert.Equal(t, "shipped v2", fx.diskContent(t, "etc/b.conf"))
	assert.NoFileExists(t, filepath.Join(fx.root, "etc/b.conf.apk-new"))
}

func TestInstallFromMissingArchiveFails(t *testing.T) {
	fx := newFixture(t)
	pkg := graph.NewPackage(fx.g.GetName("ghost"), "1.0", checksum.Of([]byte("ghost")))
	pkg.FileName = filepath.Join(fx.pkgDir, "no-such.apk")
	pkg = fx.g.PkgAdd(pkg)

	err := fx.e.InstallPkg(context.Background(), nil, pkg)
	require.Error(t, err)
	assert.Equal(t, graph.StateNoInstall, pkg.State)
}

func TestInstallWithoutRepositoryFails(t *testing.T) {
	fx := newFixture(t)
	pkg := fx.g.PkgAdd(graph.NewPackage(fx.g.GetName("nowhere"), "1.0", checksum.Of([]byte("n"))))

	err := fx.e.InstallPkg(context.Background(), nil, pkg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no repository provides")
}
