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

import "github.com/holocm/apkdb/internal/checksum"

//PkgState is a Package's install state.
type PkgState int

const (
	//StateNoInstall is the state of a known-but-not-installed package.
	StateNoInstall PkgState = iota
	//StateInstall is the state of a currently installed package.
	StateInstall
)

//ScriptType classifies a package's lifecycle scriptlets.
type ScriptType int

const (
	ScriptGeneric ScriptType = iota
	ScriptPreInstall
	ScriptPostInstall
	ScriptPreUpgrade
	ScriptPostUpgrade
	ScriptPreDeinstall
	ScriptPostDeinstall
)

//Script is one lifecycle scriptlet blob owned by a Package.
type Script struct {
	Type ScriptType
	Data []byte
}

//MaxRepos bounds the Package.Repos bitset width. Repository lists grow on
//demand up to this cap (see Database.AddRepository); per-package membership
//stays a fixed-width bitset for O(1) tests.
const MaxRepos = 64

//Package carries package identity and is unique per content checksum.
type Package struct {
	Name    *Name
	Version string
	Csum    checksum.Checksum
	ID      uint64
	Repos   uint64 //bitset of repository indices that advertise this package
	State   PkgState

	//FileName, if set, is a local archive path to install from instead of
	//synthesizing "<repo-url>/<name>-<version>.apk".
	FileName string

	Scripts []Script

	ownedHead, ownedTail *File
	ownedLen             int

	instPrev, instNext *Package
}

//NewPackage allocates a not-yet-interned Package. Callers must pass it to
//Graph.PkgAdd to get the canonical, graph-owned entity.
func NewPackage(name *Name, version string, csum checksum.Checksum) *Package {
	return &Package{Name: name, Version: version, Csum: csum}
}

//HasRepo reports whether repo index i is set in the Repos bitset.
func (p *Package) HasRepo(i int) bool {
	return p.Repos&(1<<uint(i)) != 0
}

//AddRepo sets repo index i in the Repos bitset.
func (p *Package) AddRepo(i int) {
	p.Repos |= 1 << uint(i)
}

//ForEachOwnedFile iterates the owned files in list order, which is the
//order the FDB writer emits them in.
func (p *Package) ForEachOwnedFile(fn func(*File)) {
	for f := p.ownedHead; f != nil; f = f.pkgNext {
		fn(f)
	}
}

//OwnedFilesLen returns the length of the owned-files list.
func (p *Package) OwnedFilesLen() int {
	return p.ownedLen
}

//FindScript returns the first script of the given type, or nil.
func (p *Package) FindScript(t ScriptType) *Script {
	for i := range p.Scripts {
		if p.Scripts[i].Type == t {
			return &p.Scripts[i]
		}
	}
	return nil
}

func (p *Package) linkOwnedFile(f *File) {
	f.pkgPrev = p.ownedTail
	if p.ownedTail != nil {
		p.ownedTail.pkgNext = f
	} else {
		p.ownedHead = f
	}
	p.ownedTail = f
	p.ownedLen++
}

func (p *Package) unlinkOwnedFile(f *File) {
	if f.pkgPrev != nil {
		f.pkgPrev.pkgNext = f.pkgNext
	} else {
		p.ownedHead = f.pkgNext
	}
	if f.pkgNext != nil {
		f.pkgNext.pkgPrev = f.pkgPrev
	} else {
		p.ownedTail = f.pkgPrev
	}
	f.pkgPrev, f.pkgNext = nil, nil
	p.ownedLen--
}

//PkgAdd interns a candidate package: on a checksum miss, the candidate gets
//a freshly assigned ID and is linked into its Name's variant list; on a hit,
//the candidate's repo bitset is merged into the existing entity and the
//candidate is discarded. The canonical entity is always returned.
func (g *Graph) PkgAdd(candidate *Package) *Package {
	if existing, ok := g.packages.Get(candidate.Csum); ok {
		existing.Repos |= candidate.Repos
		return existing
	}
	candidate.ID = g.nextPkgID
	g.nextPkgID++
	g.packages.Insert(candidate.Csum, candidate)
	candidate.Name.addPkg(candidate)
	return candidate
}

//MarkInstalled exposes markInstalled for the install engine.
func (g *Graph) MarkInstalled(pkg *Package) { g.markInstalled(pkg) }

//UnmarkInstalled exposes unmarkInstalled for the purge path.
func (g *Graph) UnmarkInstalled(pkg *Package) { g.unmarkInstalled(pkg) }
