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

//Default bucket-count hints, sized for a small embedded-friendly
//distribution.
const (
	DefaultNameCapacity    = 1000
	DefaultPackageCapacity = 4000
	DefaultDirCapacity     = 1000
)

//Stats caches the installed-set counters. Invariant: each field always
//equals the corresponding set cardinality (owned files, live directories,
//installed packages).
type Stats struct {
	Packages int
	Dirs     int
	Files    int
}

//Graph is the process-wide package/name/directory/file graph: the
//hash-indexed tables plus the installed-packages membership list and cached
//stats. The control-plane facade (open/commit/write-config) lives one layer
//up in package apkdb.
type Graph struct {
	names    *HashIndex[string, *Name]
	packages *HashIndex[checksum.Checksum, *Package]
	dirs     *HashIndex[string, *Directory]

	installedHead, installedTail *Package
	installedLen                 int

	Stats Stats

	ProtectedPaths []string

	nextPkgID uint64
}

//New constructs an empty Graph with the given bucket-count hints.
func New(nameCap, pkgCap, dirCap int) *Graph {
	return &Graph{
		names:    NewHashIndex[string, *Name](nameCap, nil),
		packages: NewHashIndex[checksum.Checksum, *Package](pkgCap, nil),
		dirs:     NewHashIndex[string, *Directory](dirCap, nil),
	}
}

//Close frees the hash indices in the order required by ownership: names
//before packages (names only reference packages, never own them) before
//dirs.
func (g *Graph) Close() {
	g.names.FreeAll()
	g.packages.FreeAll()
	g.dirs.FreeAll()
}

//SetProtectedPaths parses a colon-separated protected-path list. Plain
//entries mark a directory protected, entries prefixed with "-" unmark it;
//the rules are applied by GetDir at interning time.
func (g *Graph) SetProtectedPaths(list string) {
	g.ProtectedPaths = nil
	for _, entry := range strings.Split(list, ":") {
		if entry != "" {
			g.ProtectedPaths = append(g.ProtectedPaths, entry)
		}
	}
}

//GetPackage looks up a Package by checksum.
func (g *Graph) GetPackage(csum checksum.Checksum) (*Package, bool) {
	return g.packages.Get(csum)
}

//LookupName looks up an interned Name without interning on miss (the solver
//must not invent Names for unknown world constraints).
func (g *Graph) LookupName(name string) (*Name, bool) {
	return g.names.Get(name)
}

//ForEachPackage iterates over every known package regardless of install
//state (used by the repository-index writer).
func (g *Graph) ForEachPackage(fn func(*Package)) {
	g.packages.ForEach(func(_ checksum.Checksum, p *Package) { fn(p) })
}

//ForEachInstalled iterates the installed packages in install-arrival order.
func (g *Graph) ForEachInstalled(fn func(*Package)) {
	for p := g.installedHead; p != nil; p = p.instNext {
		fn(p)
	}
}

//InstalledLen returns the length of the installed-packages list.
func (g *Graph) InstalledLen() int {
	return g.installedLen
}

//markInstalled appends pkg to the installed list and sets state=install.
//It is idempotent: re-marking an already-installed package is a no-op.
//(Duplicates within the installed FDB stream are rejected earlier, by the
//reader.)
func (g *Graph) markInstalled(pkg *Package) {
	if pkg.State == StateInstall {
		return
	}
	pkg.State = StateInstall
	pkg.instPrev = g.installedTail
	if g.installedTail != nil {
		g.installedTail.instNext = pkg
	} else {
		g.installedHead = pkg
	}
	g.installedTail = pkg
	g.installedLen++
	g.Stats.Packages++
}

//unmarkInstalled removes pkg from the installed list and sets
//state=no-install.
func (g *Graph) unmarkInstalled(pkg *Package) {
	if pkg.State != StateInstall {
		return
	}
	if pkg.instPrev != nil {
		pkg.instPrev.instNext = pkg.instNext
	} else {
		g.installedHead = pkg.instNext
	}
	if pkg.instNext != nil {
		pkg.instNext.instPrev = pkg.instPrev
	} else {
		g.installedTail = pkg.instPrev
	}
	pkg.instPrev, pkg.instNext = nil, nil
	pkg.State = StateNoInstall
	g.installedLen--
	g.Stats.Packages--
}
