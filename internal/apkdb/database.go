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

//Package apkdb is the database facade: it opens a root, loads the world,
//the installed-package database, the script store and the configured
//repositories, and commits world changes by driving the solver and the
//archive install engine.
package apkdb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/holocm/apkdb/internal/checksum"
	"github.com/holocm/apkdb/internal/config"
	"github.com/holocm/apkdb/internal/fdb"
	"github.com/holocm/apkdb/internal/graph"
	"github.com/holocm/apkdb/internal/install"
	"github.com/holocm/apkdb/internal/logging"
	"github.com/holocm/apkdb/internal/rootfs"
	"github.com/holocm/apkdb/internal/scriptstore"
	"github.com/holocm/apkdb/internal/solver"
	"github.com/holocm/apkdb/internal/transport"
)

//DefaultProtectedPaths is the protected-path list applied when the runtime
//configuration does not override it: everything under etc is protected
//except etc/init.d.
const DefaultProtectedPaths = "etc:-etc/init.d"

//Paths of the database state under the root.
const (
	worldPath     = "var/lib/apk/world"
	installedPath = "var/lib/apk/installed"
	scriptsPath   = "var/lib/apk/scripts"
	reposPath     = "etc/apk/repositories"
	configPath    = "etc/apk/config.toml"
	freshnessPath = "var/cache/apk/repositories.yaml"
)

//Options configures Open.
type Options struct {
	Root  string
	Quiet bool
	//ExtraRepository is appended to the repositories read from
	//etc/apk/repositories and the runtime configuration.
	ExtraRepository string
}

//Database is the open handle over one root's package state.
type Database struct {
	Graph *graph.Graph
	Root  *rootfs.Root
	World []solver.Constraint
	Repos []Repository
	Log   *logging.Logger
	Cfg   config.Config

	engine *install.Engine
}

//Create initializes a fresh root: the baseline directory skeleton, a
//dev/null device node and an empty world file.
func Create(rootPath string) error {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return err
	}
	root, err := rootfs.Open(rootPath)
	if err != nil {
		return err
	}
	defer root.Close()

	if err := root.Mkdir("tmp", 0o777, 0, 0); err != nil {
		return fmt.Errorf("create %s/tmp: %w", rootPath, err)
	}
	_ = root.Chmod("tmp", os.ModeSticky|0o777)
	if err := root.Mkdir("dev", 0o755, 0, 0); err != nil {
		return fmt.Errorf("create %s/dev: %w", rootPath, err)
	}
	//creating the device node needs privileges; a root prepared for tests
	//or image assembly works without it
	_ = root.Mknod("dev/null", 0o20666, mkdev(1, 3))
	for _, dir := range []string{"var", "var/lib", "var/lib/apk"} {
		if err := root.Mkdir(dir, 0o755, 0, 0); err != nil {
			return fmt.Errorf("create %s/%s: %w", rootPath, dir, err)
		}
	}
	return root.WriteFile(worldPath, strings.NewReader("\n"), 0o644, 0, 0)
}

func mkdev(major, minor uint32) uint64 {
	return uint64(major)<<8 | uint64(minor)
}

//Open loads the full database state under opts.Root. The world file is
//mandatory; its absence means the root was never initialized with Create.
func Open(ctx context.Context, opts Options) (*Database, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("apkdb: a root directory is required")
	}
	root, err := rootfs.Open(opts.Root)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(filepath.Join(opts.Root, configPath))
	if err != nil {
		root.Close()
		return nil, fmt.Errorf("apkdb: reading %s: %w", configPath, err)
	}
	if cfg.S3 != (config.S3{}) {
		transport.ConfigureS3(cfg.S3.Region, cfg.S3.AccessKey, cfg.S3.SecretKey)
	}

	db := &Database{
		Graph: graph.New(graph.DefaultNameCapacity, graph.DefaultPackageCapacity, graph.DefaultDirCapacity),
		Root:  root,
		Log:   logging.Default(opts.Quiet || cfg.Quiet),
		Cfg:   cfg,
	}
	db.engine = &install.Engine{
		Graph:   db.Graph,
		FS:      root,
		Log:     db.Log,
		RepoURL: db.repoURL,
	}

	protected := DefaultProtectedPaths
	if cfg.ProtectedPaths != "" {
		protected = cfg.ProtectedPaths
	}
	db.Graph.SetProtectedPaths(protected)

	if err := db.loadState(ctx, opts); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *Database) loadState(ctx context.Context, opts Options) error {
	wf, err := db.Root.OpenFile(worldPath)
	if err != nil {
		return fmt.Errorf("apkdb: cannot read %s (run 'apk --root %s create' first): %w",
			worldPath, db.Root.Path(), err)
	}
	db.World, err = solver.ParseWorld(wf)
	wf.Close()
	if err != nil {
		return fmt.Errorf("apkdb: parsing %s: %w", worldPath, err)
	}

	if f, err := db.Root.OpenFile(installedPath); err == nil {
		err = fdb.Read(f, db.Graph, fdb.RepoInstalled)
		f.Close()
		if err != nil {
			return fmt.Errorf("apkdb: installed database load failed: %w", err)
		}
	}

	if f, err := db.Root.OpenFile(scriptsPath); err == nil {
		err = scriptstore.Read(f, db.Graph)
		f.Close()
		if err != nil {
			return fmt.Errorf("apkdb: script store load failed: %w", err)
		}
	}

	var repoURLs []string
	if f, err := db.Root.OpenFile(reposPath); err == nil {
		data, rerr := io.ReadAll(f)
		f.Close()
		if rerr != nil {
			return fmt.Errorf("apkdb: reading %s: %w", reposPath, rerr)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				repoURLs = append(repoURLs, line)
			}
		}
	}
	repoURLs = append(repoURLs, db.Cfg.Repositories...)
	if opts.ExtraRepository != "" {
		repoURLs = append(repoURLs, opts.ExtraRepository)
	}
	for _, url := range repoURLs {
		if err := db.AddRepository(ctx, url); err != nil {
			//a broken repository does not invalidate the database
			db.Log.Errorf("%s", err.Error())
		}
	}
	return nil
}

//Close tears down the graph and releases the root.
func (db *Database) Close() {
	db.Graph.Close()
	_ = db.Root.Close()
}

//GetPkg looks up a package by checksum.
func (db *Database) GetPkg(csum checksum.Checksum) (*graph.Package, bool) {
	return db.Graph.GetPackage(csum)
}

//InstallPkg exposes the archive install engine for direct use.
func (db *Database) InstallPkg(ctx context.Context, old, new *graph.Package) error {
	return db.engine.InstallPkg(ctx, old, new)
}

//IndexWrite emits every known package as a repository index to w.
func (db *Database) IndexWrite(w io.Writer) error {
	return fdb.WriteIndex(w, db.Graph)
}

//WriteConfig persists the world, the installed-package database and the
//script store back under the root.
func (db *Database) WriteConfig() error {
	world := solver.FormatWorld(db.World)
	if err := db.Root.WriteFile(worldPath, strings.NewReader(world), 0o644, 0, 0); err != nil {
		return fmt.Errorf("apkdb: writing %s: %w", worldPath, err)
	}

	var buf bytes.Buffer
	if err := fdb.Write(&buf, db.Graph); err != nil {
		return fmt.Errorf("apkdb: serializing installed database: %w", err)
	}
	if err := db.Root.WriteFile(installedPath, &buf, 0o600, 0, 0); err != nil {
		return fmt.Errorf("apkdb: writing %s: %w", installedPath, err)
	}

	buf.Reset()
	if err := scriptstore.Write(&buf, db.Graph); err != nil {
		return fmt.Errorf("apkdb: serializing script store: %w", err)
	}
	if err := db.Root.WriteFile(scriptsPath, &buf, 0o600, 0, 0); err != nil {
		return fmt.Errorf("apkdb: writing %s: %w", scriptsPath, err)
	}
	return nil
}

//RecalculateAndCommit asks the solver to satisfy the world, applies the
//resulting plan through the install engine, and persists the database.
func (db *Database) RecalculateAndCommit(ctx context.Context) error {
	lock, err := db.Root.TryLock()
	if err != nil {
		return err
	}
	defer rootfs.Unlock(lock)

	state := solver.New(db.Graph)
	plan, err := state.SatisfyDeps(db.World)
	if err != nil {
		return fmt.Errorf("failed to build installation graph: %w", err)
	}
	err = state.Commit(plan, func(old, new *graph.Package) error {
		return db.engine.InstallPkg(ctx, old, new)
	})
	if err != nil {
		return fmt.Errorf("failed to commit changes: %w", err)
	}
	if err := db.WriteConfig(); err != nil {
		return err
	}
	stats := db.Graph.Stats
	db.Log.Infof("OK: %d packages, %d dirs, %d files",
		stats.Packages, stats.Dirs, stats.Files)
	return nil
}
