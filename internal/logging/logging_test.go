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

package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuietSuppressesAllButErrors(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, true)

	l.Infof("installing %s", "pkg-a")
	l.Warnf("checksum does not match")
	assert.Empty(t, buf.String())

	l.Errorf("conflict on %s", "usr/bin/x")
	assert.Contains(t, buf.String(), "ERROR: conflict on usr/bin/x")
}

func TestVerboseEmitsEverything(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)

	l.Infof("OK: %d packages", 3)
	l.Warnf("tolerated")
	l.Errorf("fatal")

	out := buf.String()
	assert.Contains(t, out, "OK: 3 packages")
	assert.Contains(t, out, "WARNING: tolerated")
	assert.Contains(t, out, "ERROR: fatal")
}

func TestSetQuietToggles(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)
	l.SetQuiet(true)
	l.Infof("hidden")
	assert.Empty(t, buf.String())
	l.SetQuiet(false)
	l.Infof("shown")
	assert.Contains(t, buf.String(), "shown")
}
