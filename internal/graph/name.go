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

//Name interns a package name string. It holds every Package variant known to
//the system under that name, regardless of install state. Names are interned
//on first sight and destroyed only at database teardown.
type Name struct {
	Name string
	Pkgs []*Package
}

//addPkg appends pkg to this Name's known variants.
func (n *Name) addPkg(pkg *Package) {
	n.Pkgs = append(n.Pkgs, pkg)
}

//GetName interns name, inserting a fresh Name entity on miss.
func (g *Graph) GetName(name string) *Name {
	if n, ok := g.names.Get(name); ok {
		return n
	}
	n := &Name{Name: name}
	g.names.Insert(name, n)
	return n
}
