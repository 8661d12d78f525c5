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

package apkdb

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/holocm/apkdb/internal/blob"
	"github.com/holocm/apkdb/internal/checksum"
	"github.com/holocm/apkdb/internal/graph"
	"github.com/holocm/apkdb/internal/solver"
	"github.com/holocm/apkdb/internal/transport"
)

//PkgAddFile decodes a local package archive into the known-package
//universe: the package's identity comes from its ".PKGINFO" metadata entry
//(or, failing that, from the "<name>-<version>.apk" file name), its
//checksum from the archive bytes. The canonical graph entity is returned.
func (db *Database) PkgAddFile(path string) (*graph.Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("apkdb: reading package %s: %w", path, err)
	}
	csum := checksum.Of(data)

	name, version, err := readPkgInfo(data)
	if err != nil {
		return nil, fmt.Errorf("apkdb: %s: %w", path, err)
	}
	if name == "" {
		name, version, err = splitPkgFileName(path)
		if err != nil {
			return nil, err
		}
	}

	pkg := graph.NewPackage(db.Graph.GetName(name), version, csum)
	pkg.FileName = path
	return db.Graph.PkgAdd(pkg), nil
}

//readPkgInfo scans an archive for its ".PKGINFO" metadata entry and
//returns the P:/V: fields it declares. An archive without one yields empty
//strings and no error.
func readPkgInfo(archive []byte) (name, version string, err error) {
	err = transport.ForEachEntry(bytes.NewReader(archive), func(en transport.Entry) error {
		if en.Header.Name != ".PKGINFO" {
			return nil
		}
		scanner := bufio.NewScanner(en.Reader)
		for scanner.Scan() {
			line := scanner.Text()
			if v, ok := strings.CutPrefix(line, "P:"); ok {
				name = v
			} else if v, ok := strings.CutPrefix(line, "V:"); ok {
				version = v
			}
		}
		return scanner.Err()
	})
	if err != nil {
		return "", "", err
	}
	if name != "" && version == "" {
		return "", "", fmt.Errorf(".PKGINFO declares a name but no version")
	}
	return name, version, nil
}

//splitPkgFileName derives (name, version) from a "<name>-<version>.apk"
//file name.
func splitPkgFileName(path string) (name, version string, err error) {
	base := strings.TrimSuffix(filepath.Base(path), ".apk")
	name, version, ok := blob.RSplit(base, '-')
	if !ok || name == "" || version == "" {
		return "", "", fmt.Errorf("apkdb: cannot derive package identity from file name %q", path)
	}
	return name, version, nil
}

//WorldAdd merges a constraint into the world, replacing any existing
//constraint on the same name.
func (db *Database) WorldAdd(c solver.Constraint) {
	for i := range db.World {
		if db.World[i].Name == c.Name {
			db.World[i] = c
			return
		}
	}
	db.World = append(db.World, c)
}

//WorldRemove drops the constraint on name from the world, reporting whether
//one was present.
func (db *Database) WorldRemove(name string) bool {
	for i := range db.World {
		if db.World[i].Name == name {
			db.World = append(db.World[:i], db.World[i+1:]...)
			return true
		}
	}
	return false
}
