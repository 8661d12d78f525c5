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
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/holocm/apkdb/internal/blob"
	"github.com/holocm/apkdb/internal/ec"
)

//ParseWorld reads the operator's world expression: one or more lines of
//comma-separated name constraints. Every malformed entry is reported, not
//just the first one.
func ParseWorld(r io.Reader) ([]Constraint, error) {
	var world []Constraint
	var errs ec.Collector
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		blob.ForEachSegment(line, ',', func(entry string) {
			c, err := parseConstraint(strings.TrimSpace(entry))
			if err != nil {
				errs.Add(err)
				return
			}
			world = append(world, c)
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := errs.Join(); err != nil {
		return nil, err
	}
	return world, nil
}

func parseConstraint(entry string) (Constraint, error) {
	for _, op := range []string{">=", "="} {
		if name, version, ok := strings.Cut(entry, op); ok {
			if name == "" || version == "" {
				return Constraint{}, fmt.Errorf("malformed world entry %q", entry)
			}
			return Constraint{Name: name, Op: op, Version: version}, nil
		}
	}
	if strings.ContainsAny(entry, "<>~") {
		return Constraint{}, fmt.Errorf("unsupported version operator in world entry %q", entry)
	}
	return Constraint{Name: entry}, nil
}

//FormatWorld renders world back to its file form, one constraint per line.
func FormatWorld(world []Constraint) string {
	var sb strings.Builder
	for _, c := range world {
		sb.WriteString(c.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
