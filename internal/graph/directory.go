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
	"os"
	"strings"
)

//DirFlag is a bitset of Directory flags.
type DirFlag uint8

const (
	//FlagProtected marks a directory whose contents must not be silently
	//overwritten if locally modified (the ".apk-new" sideload).
	FlagProtected DirFlag = 1 << iota
)

//DirFS is the filesystem side-effect surface that Ref/Unref need: create or
//remove a directory and set its ownership. Implemented by internal/rootfs
//against a held root directory fd, so this package stays
//filesystem-backend-agnostic and testable without touching a real
//filesystem.
type DirFS interface {
	Mkdir(path string, mode os.FileMode, uid, gid uint32) error
	Rmdir(path string) error
}

//Directory is unique per root-relative path string. Refs counts the owned
//files directly inside it plus the child directories with non-zero Refs; a
//directory is live iff it transitively contains at least one owned file.
type Directory struct {
	Dirname string
	Parent  *Directory
	Mode    os.FileMode
	UID     uint32
	GID     uint32
	Flags   DirFlag

	filesHead, filesTail *File
	filesLen             int

	Refs int
}

//Protected reports whether this directory is under protected-path policy.
func (d *Directory) Protected() bool {
	return d.Flags&FlagProtected != 0
}

//ForEachFile iterates this directory's files in insertion order.
func (d *Directory) ForEachFile(fn func(*File)) {
	for f := d.filesHead; f != nil; f = f.dirNext {
		fn(f)
	}
}

//FilesLen returns the number of File entities linked under this directory.
func (d *Directory) FilesLen() int {
	return d.filesLen
}

//GetDir interns path as a Directory, allocating (and recursively interning
//its parent chain) on miss.
func (g *Graph) GetDir(path string) *Directory {
	//strip exactly one trailing slash from the key
	key := strings.TrimSuffix(path, "/")

	if d, ok := g.dirs.Get(key); ok {
		return d
	}

	d := &Directory{Dirname: key}
	g.dirs.Insert(key, d)

	//the empty path is the root and has no parent; everything else splits at
	//the last slash and recurses (no slash at all means the parent is the
	//root, interned as path "")
	if key != "" {
		parentPath, _ := splitDirname(key)
		d.Parent = g.GetDir(parentPath)
	}

	//inherit flags from the parent, then apply the protected-path rules
	if d.Parent != nil {
		d.Flags = d.Parent.Flags
	}
	for _, entry := range g.ProtectedPaths {
		if neg, ok := strings.CutPrefix(entry, "-"); ok {
			if neg == d.Dirname {
				d.Flags &^= FlagProtected
			}
		} else if entry == d.Dirname {
			d.Flags |= FlagProtected
		}
	}

	return d
}

//splitDirname splits a path at its last slash to find its parent path; if
//there is no slash, the parent path is "" (the root).
func splitDirname(path string) (dir, base string) {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

//Ref increments this directory's reference count, recursively bringing its
//parent chain live. When createDisk is true and the refcount transitions
//from zero, the directory is created on disk with its recorded mode and
//ownership.
func (d *Directory) Ref(g *Graph, fs DirFS, createDisk bool) {
	if d.Refs == 0 && d.Dirname != "" {
		if d.Parent != nil {
			d.Parent.Ref(g, fs, createDisk)
		}
		g.Stats.Dirs++
		if createDisk && d.Mode != 0 {
			//mkdir/chown failures are tolerated: common when the directory
			//already exists or is shared with another package
			_ = fs.Mkdir(d.Dirname, d.Mode, d.UID, d.GID)
		}
	}
	d.Refs++
}

//Unref decrements the reference count and, on a transition to zero,
//attempts to rmdir the directory (ignoring failure; other packages may
//still hold unrecorded content there) and recurses into the parent.
func (d *Directory) Unref(g *Graph, fs DirFS) {
	d.Refs--
	if d.Refs > 0 || d.Dirname == "" {
		return
	}
	g.Stats.Dirs--
	_ = fs.Rmdir(d.Dirname)
	if d.Parent != nil {
		d.Parent.Unref(g, fs)
	}
}
