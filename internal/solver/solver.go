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

//Package solver resolves the operator's world expression against the known
//package universe: exact-match-highest-version constraint resolution, no
//backtracking.
package solver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/holocm/apkdb/internal/graph"
)

//Constraint is one parsed world entry: a package name plus an optional
//version requirement (">=1.0", "=2.3", or "" for "any").
type Constraint struct {
	Name    string
	Op      string //"", "=", ">="
	Version string
}

//String renders the constraint back to its world-file form.
func (c Constraint) String() string {
	if c.Op == "" {
		return c.Name
	}
	return c.Name + c.Op + c.Version
}

//State is a solver session over one Graph.
type State struct {
	g *graph.Graph
}

//New begins a solver session.
func New(g *graph.Graph) *State {
	return &State{g: g}
}

//Plan is the result of SatisfyDeps: for each constraint, the Package
//variant chosen to satisfy it.
type Plan struct {
	Resolved map[string]*graph.Package
}

//SatisfyDeps resolves every constraint in world to a concrete Package,
//picking the highest version among a Name's known variants that satisfies
//the constraint. Resolution fails loudly (no partial plan) if any
//constraint cannot be matched.
func (s *State) SatisfyDeps(world []Constraint) (*Plan, error) {
	plan := &Plan{Resolved: make(map[string]*graph.Package, len(world))}
	for _, c := range world {
		name, ok := s.g.LookupName(c.Name)
		if !ok {
			return nil, fmt.Errorf("solver: no package named %q is known", c.Name)
		}
		pkg, err := bestMatch(name, c)
		if err != nil {
			return nil, err
		}
		plan.Resolved[c.Name] = pkg
	}
	return plan, nil
}

//bestMatch scans a Name's known variants for the highest version satisfying
//c.
func bestMatch(name *graph.Name, c Constraint) (*graph.Package, error) {
	candidates := make([]*graph.Package, 0, len(name.Pkgs))
	for _, p := range name.Pkgs {
		if satisfies(p.Version, c) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("solver: no version of %q satisfies %q", c.Name, c.String())
	}
	sort.Slice(candidates, func(i, j int) bool {
		return compareVersions(candidates[i].Version, candidates[j].Version) > 0
	})
	return candidates[0], nil
}

func satisfies(version string, c Constraint) bool {
	switch c.Op {
	case "":
		return true
	case "=":
		return version == c.Version
	case ">=":
		return compareVersions(version, c.Version) >= 0
	default:
		return false
	}
}

//compareVersions compares two dotted version strings component-wise for
//"highest available" selection; a missing trailing component compares as
//lower, and numeric components of different width compare by length first
//so that "10" sorts above "9".
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var av, bv string
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}
		if av == bv {
			continue
		}
		if len(av) != len(bv) {
			if len(av) < len(bv) {
				return -1
			}
			return 1
		}
		if av < bv {
			return -1
		}
		return 1
	}
	return 0
}

//Commit applies plan via the install callback: every resolved package not
//already installed (or installed at a different checksum) is scheduled as
//an install or upgrade, and every installed package no longer named by the
//plan is scheduled for removal. The callback is supplied by the caller (the
//database facade) rather than imported, to keep the dependency direction
//one-way.
func (s *State) Commit(plan *Plan, install func(old, new *graph.Package) error) error {
	//removals first, so their paths are free before new packages claim them
	var stale []*graph.Package
	s.g.ForEachInstalled(func(p *graph.Package) {
		if _, wanted := plan.Resolved[p.Name.Name]; !wanted {
			stale = append(stale, p)
		}
	})
	for _, p := range stale {
		if err := install(p, nil); err != nil {
			return fmt.Errorf("solver: removing %s-%s: %w", p.Name.Name, p.Version, err)
		}
	}

	for _, pkg := range plan.Resolved {
		var old *graph.Package
		for _, variant := range pkg.Name.Pkgs {
			if variant.State == graph.StateInstall {
				old = variant
				break
			}
		}
		if old == pkg {
			continue
		}
		if err := install(old, pkg); err != nil {
			return fmt.Errorf("solver: committing %s-%s: %w", pkg.Name.Name, pkg.Version, err)
		}
	}
	return nil
}
