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

package graph

import (
	"strings"

	"github.com/holocm/apkdb/internal/checksum"
)

//File represents an owned file inside a Directory. It carries two intrusive
//list memberships: one into its Directory's file list, one into its owning
//Package's owned-files list.
type File struct {
	Filename string
	Dir      *Directory
	Owner    *Package
	Csum     checksum.Checksum

	dirPrev, dirNext *File
	pkgPrev, pkgNext *File
}

//Path returns the full root-relative path of this file.
func (f *File) Path() string {
	if f.Dir.Dirname == "" {
		return f.Filename
	}
	return f.Dir.Dirname + "/" + f.Filename
}

//FileCursor caches the directory that consecutive archive entries (or
//consecutive FDB lines) typically share, so that repeated lookups into the
//same directory skip the intern table.
type FileCursor struct {
	dir     *Directory
	dirPath string
}

//fileNew allocates a file and links it at the tail of dir's file list.
func fileNew(dir *Directory, name string) *File {
	f := &File{Filename: name, Dir: dir}
	f.dirPrev = dir.filesTail
	if dir.filesTail != nil {
		dir.filesTail.dirNext = f
	} else {
		dir.filesHead = f
	}
	dir.filesTail = f
	dir.filesLen++
	return f
}

//SetOwner rebinds f's owner: it unlinks f from any previous owner's
//owned-files list, updates the installed-files stat, refs the directory, and
//appends f to the new owner's owned-files list. The append-at-tail order is
//what makes the FDB writer's output deterministic.
func (f *File) SetOwner(g *Graph, fs DirFS, pkg *Package, createDisk bool) {
	if f.Owner != nil {
		f.Owner.unlinkOwnedFile(f)
	} else {
		g.Stats.Files++
	}
	f.Dir.Ref(g, fs, createDisk)
	f.Owner = pkg
	pkg.linkOwnedFile(f)
}

//ClearOwner removes ownership from f without relinking it elsewhere,
//unref'ing its directory and decrementing the installed-files stat. Used by
//the purge path.
func (f *File) ClearOwner(g *Graph, fs DirFS) {
	if f.Owner == nil {
		return
	}
	f.Owner.unlinkOwnedFile(f)
	f.Owner = nil
	g.Stats.Files--
	f.Dir.Unref(g, fs)
}

//GetFile resolves path to a File: split at the last slash, reuse the
//cursor's cached directory if it still matches (consecutive archive entries
//typically share a directory), then linearly scan the directory's file list
//for a name match, allocating on miss.
func (g *Graph) GetFile(path string, cursor *FileCursor) *File {
	dirPath, name, ok := splitLastSlash(path)
	if !ok {
		dirPath, name = "", path
	}

	var dir *Directory
	if cursor.dir != nil && cursor.dirPath == dirPath {
		dir = cursor.dir
	} else {
		dir = g.GetDir(dirPath)
		cursor.dir = dir
		cursor.dirPath = dirPath
	}

	for f := dir.filesHead; f != nil; f = f.dirNext {
		if f.Filename == name {
			return f
		}
	}
	return fileNew(dir, name)
}

func splitLastSlash(path string) (dir, base string, hadSlash bool) {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return "", path, false
	}
	return path[:idx], path[idx+1:], true
}
