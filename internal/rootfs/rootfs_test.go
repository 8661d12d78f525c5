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

package rootfs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRoot(t *testing.T) (*Root, string) {
	t.Helper()
	dir := t.TempDir()
	r, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r, dir
}

func TestOpenMissingRootFails(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestMkdirRmdir(t *testing.T) {
	r, dir := openRoot(t)

	require.NoError(t, r.Mkdir("sub", 0o755, uint32(os.Getuid()), uint32(os.Getgid())))
	assert.DirExists(t, filepath.Join(dir, "sub"))
	assert.True(t, r.Exists("sub"))

	//re-creating an existing directory is not an error
	require.NoError(t, r.Mkdir("sub", 0o755, uint32(os.Getuid()), uint32(os.Getgid())))

	require.NoError(t, r.Rmdir("sub"))
	assert.False(t, r.Exists("sub"))
}

func TestWriteAndReadBack(t *testing.T) {
	r, dir := openRoot(t)
	require.NoError(t, r.Mkdir("etc", 0o755, uint32(os.Getuid()), uint32(os.Getgid())))

	content := "hello world\n"
	require.NoError(t, r.WriteFile("etc/motd", strings.NewReader(content),
		0o644, uint32(os.Getuid()), uint32(os.Getgid())))

	data, err := os.ReadFile(filepath.Join(dir, "etc/motd"))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	f, err := r.OpenFile("etc/motd")
	require.NoError(t, err)
	f.Close()

	require.NoError(t, r.Remove("etc/motd"))
	assert.False(t, r.Exists("etc/motd"))
}

func TestLeadingSlashesAreRootRelative(t *testing.T) {
	r, dir := openRoot(t)
	require.NoError(t, r.Mkdir("/abs", 0o755, uint32(os.Getuid()), uint32(os.Getgid())))
	assert.DirExists(t, filepath.Join(dir, "abs"))
}

func TestTryLockIsExclusive(t *testing.T) {
	r, _ := openRoot(t)
	lock, err := r.TryLock()
	require.NoError(t, err)

	_, err = r.TryLock()
	assert.Error(t, err, "the second lock attempt must fail while the first is held")

	require.NoError(t, Unlock(lock))
	lock2, err := r.TryLock()
	require.NoError(t, err)
	require.NoError(t, Unlock(lock2))
}
