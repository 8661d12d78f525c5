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

package solver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holocm/apkdb/internal/checksum"
	"github.com/holocm/apkdb/internal/graph"
)

func TestParseWorld(t *testing.T) {
	world, err := ParseWorld(strings.NewReader("pkg-a, pkg-b=1.2\n\n#comment\npkg-c>=2.0\n"))
	require.NoError(t, err)
	assert.Equal(t, []Constraint{
		{Name: "pkg-a"},
		{Name: "pkg-b", Op: "=", Version: "1.2"},
		{Name: "pkg-c", Op: ">=", Version: "2.0"},
	}, world)
}

func TestParseWorldReportsAllErrors(t *testing.T) {
	_, err := ParseWorld(strings.NewReader("=1.0, pkg-a<2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "=1.0")
	assert.Contains(t, err.Error(), "pkg-a<2")
}

func TestFormatWorldRoundTrip(t *testing.T) {
	in := "pkg-a\npkg-b=1.2\npkg-c>=2.0\n"
	world, err := ParseWorld(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, in, FormatWorld(world))
}

func addPkg(g *graph.Graph, name, version string, installed bool) *graph.Package {
	pkg := g.PkgAdd(graph.NewPackage(g.GetName(name), version,
		checksum.Of([]byte(name+"-"+version))))
	if installed {
		g.MarkInstalled(pkg)
	}
	return pkg
}

func TestSatisfyDepsPicksHighestVersion(t *testing.T) {
	g := graph.New(16, 16, 16)
	addPkg(g, "pkg-a", "1.0", false)
	want := addPkg(g, "pkg-a", "2.1", false)
	addPkg(g, "pkg-a", "2.0", false)

	s := New(g)
	plan, err := s.SatisfyDeps([]Constraint{{Name: "pkg-a"}})
	require.NoError(t, err)
	assert.Same(t, want, plan.Resolved["pkg-a"])

	//numeric-ish comparison: 10 beats 9
	addPkg(g, "pkg-b", "9", false)
	wantB := addPkg(g, "pkg-b", "10", false)
	plan, err = s.SatisfyDeps([]Constraint{{Name: "pkg-b"}})
	require.NoError(t, err)
	assert.Same(t, wantB, plan.Resolved["pkg-b"])
}

func TestSatisfyDepsHonorsOperators(t *testing.T) {
	g := graph.New(16, 16, 16)
	v1 := addPkg(g, "pkg-a", "1.0", false)
	addPkg(g, "pkg-a", "2.0", false)

	s := New(g)
	plan, err := s.SatisfyDeps([]Constraint{{Name: "pkg-a", Op: "=", Version: "1.0"}})
	require.NoError(t, err)
	assert.Same(t, v1, plan.Resolved["pkg-a"])

	_, err = s.SatisfyDeps([]Constraint{{Name: "pkg-a", Op: "=", Version: "3.0"}})
	assert.Error(t, err)

	_, err = s.SatisfyDeps([]Constraint{{Name: "no-such-pkg"}})
	assert.Error(t, err)
}

func TestCommitSchedulesInstallsUpgradesAndRemovals(t *testing.T) {
	g := graph.New(16, 16, 16)
	addPkg(g, "pkg-a", "1.0", true)
	newA := addPkg(g, "pkg-a", "2.0", false)
	keepB := addPkg(g, "pkg-b", "1.0", true)
	addPkg(g, "stale", "1.0", true)
	newC := addPkg(g, "pkg-c", "1.0", false)

	s := New(g)
	plan := &Plan{Resolved: map[string]*graph.Package{
		"pkg-a": newA,
		"pkg-b": keepB,
		"pkg-c": newC,
	}}

	type call struct{ old, new string }
	var calls []call
	label := func(p *graph.Package) string {
		if p == nil {
			return ""
		}
		return p.Name.Name + "-" + p.Version
	}
	err := s.Commit(plan, func(old, new *graph.Package) error {
		calls = append(calls, call{label(old), label(new)})
		//mimic the engine's state transitions so later decisions see them
		if old != nil {
			g.UnmarkInstalled(old)
		}
		if new != nil {
			g.MarkInstalled(new)
		}
		return nil
	})
	require.NoError(t, err)

	assert.Contains(t, calls, call{"stale-1.0", ""}, "dropped packages are removed")
	assert.Contains(t, calls, call{"pkg-a-1.0", "pkg-a-2.0"}, "version changes are upgrades")
	assert.Contains(t, calls, call{"", "pkg-c-1.0"}, "new constraints are fresh installs")
	assert.Len(t, calls, 3, "an unchanged installed package is left alone")
}
