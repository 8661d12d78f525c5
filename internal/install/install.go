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

//Package install drives the filesystem and the package graph while a
//package archive is extracted: it classifies each archive entry (metadata,
//script, directory, regular file), enforces file-ownership conflicts,
//sidesteps locally modified protected files to ".apk-new", and purges
//packages on removal or before an upgrade.
package install

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/holocm/apkdb/internal/checksum"
	"github.com/holocm/apkdb/internal/graph"
	"github.com/holocm/apkdb/internal/logging"
	"github.com/holocm/apkdb/internal/metrics"
	"github.com/holocm/apkdb/internal/rootfs"
	"github.com/holocm/apkdb/internal/scripts"
	"github.com/holocm/apkdb/internal/transport"
)

//Engine holds the collaborators one install/purge transaction needs.
type Engine struct {
	Graph *graph.Graph
	FS    *rootfs.Root
	Log   *logging.Logger

	//RepoURL resolves a repository index to its base URL.
	RepoURL func(i int) (string, bool)
}

//txn is the per-transaction state threaded through the archive entry
//callbacks.
type txn struct {
	e      *Engine
	ctx    context.Context
	pkg    *graph.Package
	script graph.ScriptType //the pre-install or pre-upgrade slot
	cursor graph.FileCursor
}

//InstallPkg transitions the database and filesystem from old to new:
//(nil, new) installs, (old, new) upgrades, (old, nil) removes. A mid-install
//failure leaves the graph and disk partially updated; the caller aborts the
//transaction and reports.
func (e *Engine) InstallPkg(ctx context.Context, old, new *graph.Package) error {
	if old != nil {
		if new == nil {
			if err := e.runScript(ctx, old, graph.ScriptPreDeinstall); err != nil {
				return err
			}
		}
		e.purge(old, new != nil)
		metrics.PackagesPurged.Inc()
		metrics.DirsLive.Set(float64(e.Graph.Stats.Dirs))
		if new == nil {
			if err := e.runScript(ctx, old, graph.ScriptPostDeinstall); err != nil {
				e.Log.Errorf("%s-%s: failed to execute post-deinstall script: %s",
					old.Name.Name, old.Version, err.Error())
			}
			return nil
		}
	}

	src := new.FileName
	if src == "" {
		base, ok := e.repoURLFor(new)
		if !ok {
			metrics.InstallFailures.Inc()
			return fmt.Errorf("%s-%s: no repository provides this package",
				new.Name.Name, new.Version)
		}
		src = fmt.Sprintf("%s/%s-%s.apk", base, new.Name.Name, new.Version)
	}
	rc, err := transport.Open(ctx, src)
	if err != nil {
		metrics.InstallFailures.Inc()
		return fmt.Errorf("%s: %w", src, err)
	}
	defer rc.Close()

	//digest the raw archive bytes as they stream past, to compare against
	//the package's declared checksum afterwards
	digest := checksum.NewDigester()
	tee := io.TeeReader(rc, digest)

	t := &txn{e: e, ctx: ctx, pkg: new}
	t.script = graph.ScriptPreInstall
	if old != nil {
		t.script = graph.ScriptPreUpgrade
	}
	if err := transport.ForEachEntry(tee, t.entry); err != nil {
		metrics.InstallFailures.Inc()
		return err
	}
	//the tar reader stops at the end-of-archive marker; drain the rest so
	//the digest covers the whole stream
	_, _ = io.Copy(io.Discard, tee)

	e.Graph.MarkInstalled(new)
	metrics.PackagesInstalled.Inc()
	metrics.DirsLive.Set(float64(e.Graph.Stats.Dirs))

	if got := digest.Finish(); new.Csum.Valid() && !got.Equal(new.Csum) {
		//the entry bytes are already on disk, so this is not fatal
		e.Log.Warnf("%s-%s: checksum does not match", new.Name.Name, new.Version)
	}

	post := graph.ScriptPostInstall
	if old != nil {
		post = graph.ScriptPostUpgrade
	}
	if err := e.runScript(ctx, new, post); err != nil {
		e.Log.Errorf("%s-%s: failed to execute post-install/upgrade script: %s",
			new.Name.Name, new.Version, err.Error())
	}
	return nil
}

//repoURLFor finds the first repository advertising pkg.
func (e *Engine) repoURLFor(pkg *graph.Package) (string, bool) {
	if e.RepoURL == nil {
		return "", false
	}
	for i := 0; i < graph.MaxRepos; i++ {
		if !pkg.HasRepo(i) {
			continue
		}
		if url, ok := e.RepoURL(i); ok {
			return url, true
		}
	}
	return "", false
}

//purge drops every file owned by pkg: ownership is cleared, the disk path
//unlinked, and the containing directory unref'd (which rmdirs directories
//that become empty of owned content). When purging ahead of an upgrade, a
//protected file that was modified locally is left in place on disk so that
//the incoming package sidesteps to ".apk-new" instead of clobbering the
//operator's edits.
func (e *Engine) purge(pkg *graph.Package, upgrade bool) {
	var files []*graph.File
	pkg.ForEachOwnedFile(func(f *graph.File) { files = append(files, f) })
	for _, f := range files {
		if !(upgrade && e.locallyModified(f)) {
			_ = e.FS.Remove(f.Path())
		}
		f.ClearOwner(e.Graph, e.FS)
	}
	e.Graph.UnmarkInstalled(pkg)
}

//locallyModified reports whether a protected file's on-disk digest differs
//from its recorded checksum.
func (e *Engine) locallyModified(f *graph.File) bool {
	if !f.Dir.Protected() || !f.Csum.Valid() {
		return false
	}
	got, ok := e.diskDigest(f.Path())
	return ok && !got.Equal(f.Csum)
}

//diskDigest computes the digest of an existing on-disk file.
func (e *Engine) diskDigest(path string) (checksum.Checksum, bool) {
	rf, err := e.FS.OpenFile(path)
	if err != nil {
		return checksum.Bad, false
	}
	defer rf.Close()
	d := checksum.NewDigester()
	if _, err := io.Copy(d, rf); err != nil {
		return checksum.Bad, false
	}
	return d.Finish(), true
}

//runScript executes pkg's scriptlet of the given type, if it carries one.
func (e *Engine) runScript(ctx context.Context, pkg *graph.Package, typ graph.ScriptType) error {
	s := pkg.FindScript(typ)
	if s == nil {
		return nil
	}
	keepGoing, err := scripts.Run(ctx, e.FS.Path(), *s, pkg.Name.Name, pkg.Version)
	if err != nil {
		return err
	}
	if keepGoing {
		e.Log.Warnf("%s-%s: scriptlet requested to continue despite failure",
			pkg.Name.Name, pkg.Version)
	}
	return nil
}

//entry classifies one archive entry and applies it to the graph and the
//filesystem.
func (t *txn) entry(en transport.Entry) error {
	name := en.Header.Name

	//reserved metadata entries
	if strings.HasPrefix(name, ".") {
		if name != ".INSTALL" {
			return nil
		}
		return t.handleScript(en, graph.ScriptGeneric)
	}

	//legacy metadata under var/db/apk/<pkgname>/<pkgversion>/<scriptname>
	if rest, ok := strings.CutPrefix(name, "var/db/apk/"); ok {
		rest, ok = strings.CutPrefix(rest, t.pkg.Name.Name+"/")
		if !ok {
			return nil
		}
		rest, ok = strings.CutPrefix(rest, t.pkg.Version+"/")
		if !ok {
			return nil
		}
		typ, ok := scripts.Classify(rest)
		if !ok {
			return nil
		}
		return t.handleScript(en, typ)
	}

	if en.Header.Typeflag == tar.TypeDir {
		d := t.e.Graph.GetDir(strings.TrimSuffix(name, "/"))
		d.Mode = entryMode(en)
		d.UID = uint32(en.Header.Uid)
		d.GID = uint32(en.Header.Gid)
		//no disk call here: the directory is created once the first file
		//inside it is installed
		return nil
	}

	return t.regularFile(en)
}

//handleScript stores a scriptlet blob on the package and, when it fills the
//generic or the current pre-install/upgrade slot, runs it immediately. A
//script failure aborts the whole install.
func (t *txn) handleScript(en transport.Entry, typ graph.ScriptType) error {
	data, err := io.ReadAll(en.Reader)
	if err != nil {
		return fmt.Errorf("%s: reading scriptlet: %w", en.Header.Name, err)
	}
	t.pkg.Scripts = append(t.pkg.Scripts, graph.Script{Type: typ, Data: data})

	if typ != graph.ScriptGeneric && typ != t.script {
		return nil
	}
	keepGoing, err := scripts.Run(t.ctx, t.e.FS.Path(), graph.Script{Type: typ, Data: data},
		t.pkg.Name.Name, t.pkg.Version)
	if err != nil {
		return fmt.Errorf("%s-%s: failed to execute pre-install/upgrade script: %w",
			t.pkg.Name.Name, t.pkg.Version, err)
	}
	if keepGoing {
		t.e.Log.Warnf("%s-%s: scriptlet requested to continue despite failure",
			t.pkg.Name.Name, t.pkg.Version)
	}
	return nil
}

//regularFile registers ownership of one payload entry and extracts it.
func (t *txn) regularFile(en transport.Entry) error {
	name := en.Header.Name
	f := t.e.Graph.GetFile(name, &t.cursor)

	//another package already owning this path aborts the install, except
	//that files owned by busybox may be shadowed: the base distribution's
	//minimal userspace is expected to be replaced by real binaries
	if f.Owner != nil && f.Owner.Name != t.pkg.Name && f.Owner.Name.Name != "busybox" {
		return fmt.Errorf("%s: trying to overwrite %s owned by %s",
			t.pkg.Name.Name, name, f.Owner.Name.Name)
	}

	f.SetOwner(t.e.Graph, t.e.FS, t.pkg, true)

	//".keep_" files only pin their directory; no content is extracted
	if strings.HasPrefix(f.Filename, ".keep_") {
		return nil
	}

	target := f.Path()
	if f.Dir.Protected() && f.Csum.Valid() {
		if got, ok := t.e.diskDigest(target); ok && !got.Equal(f.Csum) {
			//protected file, modified locally: extract to a separate place
			//for the operator to reconcile
			target = target + ".apk-new"
		}
	}

	digest := checksum.NewDigester()
	err := t.e.FS.WriteFile(target, io.TeeReader(en.Reader, digest), entryMode(en),
		uint32(en.Header.Uid), uint32(en.Header.Gid))
	if err != nil {
		return fmt.Errorf("extracting %s: %w", name, err)
	}
	metrics.FilesWritten.Inc()
	f.Csum = digest.Finish()
	return nil
}

//entryMode extracts an entry's permission bits, keeping setuid/setgid/
//sticky and dropping the file-type bits.
func entryMode(en transport.Entry) os.FileMode {
	return en.Header.FileInfo().Mode() &
		(os.ModePerm | os.ModeSetuid | os.ModeSetgid | os.ModeSticky)
}
