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

package apkdb

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/holocm/apkdb/internal/config"
	"github.com/holocm/apkdb/internal/fdb"
	"github.com/holocm/apkdb/internal/graph"
	"github.com/holocm/apkdb/internal/transport"

	"github.com/klauspost/compress/gzip"
)

//Repository is one package source the database resolves against.
type Repository struct {
	URL string
}

//repoURL resolves a repository index for the install engine.
func (db *Database) repoURL(i int) (string, bool) {
	if i < 0 || i >= len(db.Repos) {
		return "", false
	}
	return db.Repos[i].URL, true
}

//AddRepository records url as a new repository and merges its package index
//into the known-package universe. A repository whose index cannot be opened
//or parsed is rejected; the database remains usable.
func (db *Database) AddRepository(ctx context.Context, url string) error {
	if len(db.Repos) >= graph.MaxRepos {
		return fmt.Errorf("apkdb: repository limit (%d) reached, cannot add %s",
			graph.MaxRepos, url)
	}

	indexURL := url + "/APK_INDEX.gz"
	rc, err := transport.Open(ctx, indexURL)
	if err != nil {
		return fmt.Errorf("failed to open index file %s: %w", indexURL, err)
	}
	defer rc.Close()
	gz, err := gzip.NewReader(rc)
	if err != nil {
		return fmt.Errorf("failed to open index file %s: %w", indexURL, err)
	}
	defer gz.Close()

	idx := len(db.Repos)
	db.Repos = append(db.Repos, Repository{URL: url})
	if err := fdb.Read(gz, db.Graph, idx); err != nil {
		db.Repos = db.Repos[:idx]
		return fmt.Errorf("failed to parse index file %s: %w", indexURL, err)
	}

	db.touchFreshness(url)
	return nil
}

//touchFreshness records the successful index fetch in the freshness cache.
//The cache is purely advisory; failures only cost the record.
func (db *Database) touchFreshness(url string) {
	path := filepath.Join(db.Root.Path(), freshnessPath)
	cache, err := config.LoadFreshnessCache(path)
	if err != nil {
		return
	}
	_ = db.Root.Mkdir("var", 0o755, 0, 0)
	_ = db.Root.Mkdir("var/cache", 0o755, 0, 0)
	_ = db.Root.Mkdir("var/cache/apk", 0o755, 0, 0)
	_ = cache.Touch(url, "", time.Now().UTC()).Save(path)
}

//LastFetched reports when url's index was last fetched successfully, if the
//freshness cache knows it.
func (db *Database) LastFetched(url string) (time.Time, bool) {
	cache, err := config.LoadFreshnessCache(filepath.Join(db.Root.Path(), freshnessPath))
	if err != nil {
		return time.Time{}, false
	}
	for _, r := range cache.Repositories {
		if r.URL == url {
			return r.FetchedAt, true
		}
	}
	return time.Time{}, false
}
