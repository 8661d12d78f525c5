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

//Package fdb implements the installed-package "file database" format: a
//line-oriented text stream of single-letter field tags describing packages
//and, for the installed set, the files and directories each one owns.
package fdb

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/holocm/apkdb/internal/blob"
	"github.com/holocm/apkdb/internal/checksum"
	"github.com/holocm/apkdb/internal/graph"
)

//RepoInstalled is the repo argument to Read that marks the stream as the
//installed set (as opposed to a numbered repository index).
const RepoInstalled = -1

//reader holds the per-line parser state carried across lines of one stream.
type reader struct {
	g    *graph.Graph
	repo int

	pkg      *graph.Package
	haveF    bool //an "F:" line has been seen for the current package
	haveR    bool //an "R:" line has been seen since the last "F:"
	dir      *graph.Directory
	cursor   graph.FileCursor
	lastFile *graph.File
	lineNo   int
}

//Read parses an FDB stream from r into g. repo is RepoInstalled for the
//installed-package database, or a non-negative repository index when reading
//a repository's APK_INDEX.
func Read(r io.Reader, g *graph.Graph, repo int) error {
	rd := &reader{g: g, repo: repo}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		rd.lineNo++
		if err := rd.line(scanner.Text()); err != nil {
			return fmt.Errorf("fdb: line %d: %w", rd.lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	//a trailing package without a final blank line still needs to finish
	return rd.endRecord()
}

//line handles one input line. A record ends on the first line shorter than
//2 bytes or lacking ':' at position 1; such a line is treated as
//end-of-record, never as a mid-record error.
func (rd *reader) line(l string) error {
	if len(l) < 2 || l[1] != ':' {
		return rd.endRecord()
	}
	tag := l[0]
	value := l[2:]

	switch tag {
	case 'F':
		if rd.pkg == nil {
			return fmt.Errorf("F: line with no pending package")
		}
		if rd.repo != RepoInstalled {
			return fmt.Errorf("unexpected FDB tag 'F' in repository index")
		}
		rd.haveF = true
		rd.haveR = false
		rd.dir = rd.g.GetDir(value)
		rd.cursor = graph.FileCursor{}
		return nil
	case 'M':
		if !rd.haveF {
			return fmt.Errorf("M: line before F:")
		}
		return rd.applyDirMode(value)
	case 'R':
		if !rd.haveF {
			return fmt.Errorf("R: line before F:")
		}
		rd.haveR = true
		f := rd.g.GetFile(joinPath(rd.dir.Dirname, value), &rd.cursor)
		f.SetOwner(rd.g, noopDirFS{}, rd.pkg, false)
		rd.lastFile = f
		return nil
	case 'Z':
		if !rd.haveR {
			return fmt.Errorf("Z: line without a preceding R:")
		}
		csum, err := checksum.Parse(value)
		if err != nil {
			return fmt.Errorf("bad Z: digest %q: %w", value, err)
		}
		rd.lastFile.Csum = csum
		return nil
	default:
		return rd.packageInfoLine(tag, value)
	}
}

//noopDirFS is used while replaying an already-installed file graph from
//disk-backed FDB state: the directories already exist on disk, so SetOwner
//must not try to (re)create them.
type noopDirFS struct{}

func (noopDirFS) Mkdir(string, os.FileMode, uint32, uint32) error { return nil }
func (noopDirFS) Rmdir(string) error                              { return nil }

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func (rd *reader) applyDirMode(value string) error {
	uidStr, rest, ok := blob.Split(value, ':')
	if !ok {
		return fmt.Errorf("malformed M: line %q", value)
	}
	gidStr, modeStr, ok := blob.Split(rest, ':')
	if !ok {
		return fmt.Errorf("malformed M: line %q", value)
	}
	uid, err := strconv.ParseUint(uidStr, 10, 32)
	if err != nil {
		return fmt.Errorf("malformed M: uid %q: %w", uidStr, err)
	}
	gid, err := strconv.ParseUint(gidStr, 10, 32)
	if err != nil {
		return fmt.Errorf("malformed M: gid %q: %w", gidStr, err)
	}
	mode, err := strconv.ParseUint(modeStr, 8, 32)
	if err != nil {
		return fmt.Errorf("malformed M: mode %q: %w", modeStr, err)
	}
	rd.dir.UID = uint32(uid)
	rd.dir.GID = uint32(gid)
	rd.dir.Mode = modeFromUnix(uint32(mode))
	return nil
}

//modeFromUnix and unixFromMode translate between raw octal mode bits (the
//on-disk M: representation) and os.FileMode's spread-out high bits.
func modeFromUnix(raw uint32) os.FileMode {
	mode := os.FileMode(raw & 0o777)
	if raw&0o4000 != 0 {
		mode |= os.ModeSetuid
	}
	if raw&0o2000 != 0 {
		mode |= os.ModeSetgid
	}
	if raw&0o1000 != 0 {
		mode |= os.ModeSticky
	}
	return mode
}

func unixFromMode(mode os.FileMode) uint32 {
	raw := uint32(mode.Perm())
	if mode&os.ModeSetuid != 0 {
		raw |= 0o4000
	}
	if mode&os.ModeSetgid != 0 {
		raw |= 0o2000
	}
	if mode&os.ModeSticky != 0 {
		raw |= 0o1000
	}
	return raw
}

//packageInfoLine handles the package-info tags: P (name), V (version),
//C (checksum). Anything else is unsupported in both stream kinds.
func (rd *reader) packageInfoLine(tag byte, value string) error {
	switch tag {
	case 'P':
		if rd.pkg == nil {
			rd.pkg = &graph.Package{}
		}
		rd.pkg.Name = rd.g.GetName(value)
		return nil
	case 'V':
		if rd.pkg == nil {
			rd.pkg = &graph.Package{}
		}
		rd.pkg.Version = value
		return nil
	case 'C':
		if rd.pkg == nil {
			rd.pkg = &graph.Package{}
		}
		csum, err := checksum.Parse(value)
		if err != nil {
			return fmt.Errorf("bad C: checksum %q: %w", value, err)
		}
		rd.pkg.Csum = csum
		return nil
	default:
		return fmt.Errorf("unsupported FDB tag %q", string(tag))
	}
}

//endRecord finalizes the package record accumulated so far: repository
//records get their repo bit merged in, installed records are marked
//installed and must not collide with an already-installed entry.
func (rd *reader) endRecord() error {
	if rd.pkg == nil {
		return nil
	}
	pkg := rd.pkg
	rd.pkg, rd.dir, rd.lastFile, rd.haveF, rd.haveR = nil, nil, nil, false, false

	if pkg.Name == nil {
		return fmt.Errorf("package record without P: line")
	}

	if rd.repo >= 0 {
		canonical := rd.g.PkgAdd(pkg)
		canonical.AddRepo(rd.repo)
		return nil
	}

	canonical := rd.g.PkgAdd(pkg)
	if canonical != pkg {
		return fmt.Errorf("duplicate installed package %s", pkg.Csum)
	}
	rd.g.MarkInstalled(canonical)
	return nil
}

//Write emits the installed set as an FDB stream: for each installed
//package, its info entry followed by its files, suppressing "F:"/"M:" when
//consecutive files share a directory.
func Write(w io.Writer, g *graph.Graph) error {
	bw := bufio.NewWriter(w)
	var writeErr error
	g.ForEachInstalled(func(pkg *graph.Package) {
		if writeErr != nil {
			return
		}
		writeErr = writePackage(bw, pkg)
	})
	if writeErr != nil {
		return writeErr
	}
	return bw.Flush()
}

//WriteIndex emits every known package's info entry (no file lines), which
//is the repository-index form of the format.
func WriteIndex(w io.Writer, g *graph.Graph) error {
	bw := bufio.NewWriter(w)
	var writeErr error
	g.ForEachPackage(func(pkg *graph.Package) {
		if writeErr != nil {
			return
		}
		if err := writeInfo(bw, pkg); err != nil {
			writeErr = err
			return
		}
		_, writeErr = fmt.Fprintln(bw)
	})
	if writeErr != nil {
		return writeErr
	}
	return bw.Flush()
}

func writeInfo(w *bufio.Writer, pkg *graph.Package) error {
	if _, err := fmt.Fprintf(w, "P:%s\n", pkg.Name.Name); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "V:%s\n", pkg.Version); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "C:%s\n", pkg.Csum.String())
	return err
}

func writePackage(w *bufio.Writer, pkg *graph.Package) error {
	if err := writeInfo(w, pkg); err != nil {
		return err
	}

	var lastDir *graph.Directory
	var werr error
	pkg.ForEachOwnedFile(func(f *graph.File) {
		if werr != nil {
			return
		}
		if f.Dir != lastDir {
			if _, err := fmt.Fprintf(w, "F:%s\n", f.Dir.Dirname); err != nil {
				werr = err
				return
			}
			if _, err := fmt.Fprintf(w, "M:%d:%d:%o\n", f.Dir.UID, f.Dir.GID, unixFromMode(f.Dir.Mode)); err != nil {
				werr = err
				return
			}
			lastDir = f.Dir
		}
		if _, err := fmt.Fprintf(w, "R:%s\n", f.Filename); err != nil {
			werr = err
			return
		}
		if f.Csum.Valid() {
			if _, err := fmt.Fprintf(w, "Z:%s\n", hex.EncodeToString(f.Csum.Bytes())); err != nil {
				werr = err
				return
			}
		}
	})
	if werr != nil {
		return werr
	}
	_, err := fmt.Fprintln(w)
	return err
}
