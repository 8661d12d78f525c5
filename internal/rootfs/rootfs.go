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

//Package rootfs performs all root-relative filesystem mutation for the
//database facade and the archive install engine. Every path operation is
//anchored to a directory file descriptor held open for the lifetime of the
//Database, using the *at syscall family (Openat/Mkdirat/Unlinkat/Fchownat).
//This keeps the working directory of the calling process untouched.
package rootfs

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

//Root anchors all path operations to one root directory.
type Root struct {
	fd   int
	path string
}

//Open acquires a root anchor at path, failing loudly if it cannot be
//opened.
func Open(path string) (*Root, error) {
	fd, err := unix.Open(path, unix.O_DIRECTORY|unix.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("cannot open root %q: %w", path, err)
	}
	return &Root{fd: fd, path: path}, nil
}

//Close releases the root anchor.
func (r *Root) Close() error {
	if r == nil || r.fd < 0 {
		return nil
	}
	err := unix.Close(r.fd)
	r.fd = -1
	return err
}

//Path returns the root's filesystem path.
func (r *Root) Path() string { return r.path }

func clean(path string) string {
	for len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	return path
}

//unixMode converts an os.FileMode to raw mode bits, carrying the
//setuid/setgid/sticky bits that Perm() drops.
func unixMode(mode os.FileMode) uint32 {
	m := uint32(mode.Perm())
	if mode&os.ModeSetuid != 0 {
		m |= 0o4000
	}
	if mode&os.ModeSetgid != 0 {
		m |= 0o2000
	}
	if mode&os.ModeSticky != 0 {
		m |= 0o1000
	}
	return m
}

//Mkdir creates a directory and sets its ownership, relative to the root.
//An already existing directory is not an error; a failed chown is returned.
//Directory refcounting and the freshness cache ignore the error, Create
//returns it.
func (r *Root) Mkdir(path string, mode os.FileMode, uid, gid uint32) error {
	rel := clean(path)
	err := unix.Mkdirat(r.fd, rel, unixMode(mode))
	if err != nil && err != unix.EEXIST {
		return err
	}
	return unix.Fchownat(r.fd, rel, int(uid), int(gid), unix.AT_SYMLINK_NOFOLLOW)
}

//Rmdir removes a directory relative to the root.
func (r *Root) Rmdir(path string) error {
	return unix.Unlinkat(r.fd, clean(path), unix.AT_REMOVEDIR)
}

//Remove unlinks a regular file relative to the root.
func (r *Root) Remove(path string) error {
	return unix.Unlinkat(r.fd, clean(path), 0)
}

//Exists reports whether path exists relative to the root.
func (r *Root) Exists(path string) bool {
	var st unix.Stat_t
	return unix.Fstatat(r.fd, clean(path), &st, unix.AT_SYMLINK_NOFOLLOW) == nil
}

//Mknod creates a device node relative to the root (used when initializing
//a fresh root with dev/null).
func (r *Root) Mknod(path string, mode uint32, dev uint64) error {
	return unix.Mknodat(r.fd, clean(path), mode, int(dev))
}

//CreateFile opens (creating/truncating) a regular file relative to the root
//for writing, with the given mode. The caller sets ownership via Chown once
//the descriptor is closed.
func (r *Root) CreateFile(path string, mode os.FileMode) (*os.File, error) {
	rel := clean(path)
	fd, err := unix.Openat(r.fd, rel, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC, unixMode(mode))
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}

//Chown sets ownership of path relative to the root.
func (r *Root) Chown(path string, uid, gid uint32) error {
	return unix.Fchownat(r.fd, clean(path), int(uid), int(gid), unix.AT_SYMLINK_NOFOLLOW)
}

//Chmod sets the mode of path relative to the root.
func (r *Root) Chmod(path string, mode os.FileMode) error {
	return unix.Fchmodat(r.fd, clean(path), unixMode(mode), 0)
}

//OpenFile opens an existing regular file relative to the root for reading
//(used to compute the on-disk digest of a possibly modified protected
//file).
func (r *Root) OpenFile(path string) (*os.File, error) {
	rel := clean(path)
	fd, err := unix.Openat(r.fd, rel, unix.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}

//WriteFile writes content to path relative to the root in one shot,
//applying mode, uid, gid. Extraction and the world/config writers share
//this write-then-chown order.
func (r *Root) WriteFile(path string, content io.Reader, mode os.FileMode, uid, gid uint32) error {
	f, err := r.CreateFile(path, mode)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(f, content)
	closeErr := f.Close()
	if copyErr != nil {
		return copyErr
	}
	if closeErr != nil {
		return closeErr
	}
	//chown failures are tolerated, like for directory creation
	_ = r.Chown(path, uid, gid)
	return nil
}

//TryLock takes a non-blocking advisory lock on <root>/lib/apk/db.lock so
//that two concurrent invocations fail fast with a clear error instead of
//interleaving writes to the file database.
func (r *Root) TryLock() (*os.File, error) {
	rel := "lib/apk/db.lock"
	_ = unix.Mkdirat(r.fd, "lib", 0755)
	_ = unix.Mkdirat(r.fd, "lib/apk", 0755)
	fd, err := unix.Openat(r.fd, rel, unix.O_RDWR|unix.O_CREAT, 0644)
	if err != nil {
		return nil, err
	}
	f := os.NewFile(uintptr(fd), rel)
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("database is locked by another process: %w", err)
	}
	return f, nil
}

//Unlock releases a lock acquired by TryLock.
func Unlock(f *os.File) error {
	if f == nil {
		return nil
	}
	err := unix.Flock(int(f.Fd()), unix.LOCK_UN)
	closeErr := f.Close()
	if err != nil {
		return err
	}
	return closeErr
}
