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

package checksum

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinel(t *testing.T) {
	assert.False(t, Bad.Valid())
	assert.True(t, Of([]byte("x")).Valid())
}

func TestParseFormatRoundTrip(t *testing.T) {
	c := Of([]byte("some content"))
	parsed, err := Parse(c.String())
	require.NoError(t, err)
	assert.True(t, parsed.Equal(c))
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("nothex!")
	assert.Error(t, err)
	_, err = Parse("abcd") //valid hex, wrong length
	assert.Error(t, err)
	_, err = Parse(strings.Repeat("ab", Size+1))
	assert.Error(t, err)
}

func TestDigesterMatchesOf(t *testing.T) {
	d := NewDigester()
	d.Process([]byte("hello "))
	d.Process([]byte("world"))
	assert.True(t, d.Finish().Equal(Of([]byte("hello world"))))
}

func TestDigesterAsWriter(t *testing.T) {
	d := NewDigester()
	n, err := d.Write([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.True(t, d.Finish().Equal(Of([]byte("hello world"))))
}

func TestHashUsesLeadingWord(t *testing.T) {
	a := Of([]byte("a"))
	b := Of([]byte("b"))
	assert.Equal(t, binary.BigEndian.Uint64(a[:8]), a.Hash())
	assert.NotEqual(t, a.Hash(), b.Hash())
	assert.Equal(t, a.Hash(), a.Hash())
}
