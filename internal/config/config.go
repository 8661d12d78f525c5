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

//Package config loads the runtime configuration: etc/apk/config.toml for
//static settings and var/cache/apk/repositories.yaml for the repository
//freshness cache.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//S3 carries static credentials for s3:// repository URLs. All fields empty
//means "use the ambient AWS credential chain".
type S3 struct {
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

//Config is the static runtime configuration normally stored at
//etc/apk/config.toml. The zero value is a valid default configuration.
type Config struct {
	ProtectedPaths string   `toml:"protected_paths"`
	Repositories   []string `toml:"repositories"`
	Quiet          bool     `toml:"quiet"`
	S3             S3       `toml:"s3"`
}

//Load reads and parses a config.toml file. A missing file yields the zero
//configuration.
func Load(path string) (Config, error) {
	var c Config
	blob, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, err
	}
	if _, err := toml.Decode(string(blob), &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

//Save writes c to path as TOML.
func Save(path string, c Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

//RepoFreshness is one entry of the repository freshness cache: when a
//repository index was last fetched. AddRepository records each successful
//fetch here but always refetches the index; it does not consult Stale.
type RepoFreshness struct {
	URL       string    `yaml:"url"`
	FetchedAt time.Time `yaml:"fetched_at"`
	IndexCsum string    `yaml:"index_csum"`
}

//FreshnessCache is the parsed form of var/cache/apk/repositories.yaml.
type FreshnessCache struct {
	Repositories []RepoFreshness `yaml:"repositories"`
}

//LoadFreshnessCache reads the YAML freshness cache, tolerating a missing
//file (first run).
func LoadFreshnessCache(path string) (FreshnessCache, error) {
	var c FreshnessCache
	blob, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FreshnessCache{}, nil
		}
		return FreshnessCache{}, err
	}
	if err := yaml.Unmarshal(blob, &c); err != nil {
		return FreshnessCache{}, err
	}
	return c, nil
}

//Save writes the freshness cache back to path as YAML.
func (c FreshnessCache) Save(path string) error {
	blob, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0o644)
}

//Stale reports whether the cached fetch for url is older than ttl, or
//absent entirely.
func (c FreshnessCache) Stale(url string, ttl time.Duration, now time.Time) bool {
	for _, r := range c.Repositories {
		if r.URL == url {
			return now.Sub(r.FetchedAt) > ttl
		}
	}
	return true
}

//Touch records a fresh fetch of url at now, replacing any prior entry.
func (c FreshnessCache) Touch(url, indexCsum string, now time.Time) FreshnessCache {
	out := FreshnessCache{}
	for _, r := range c.Repositories {
		if r.URL != url {
			out.Repositories = append(out.Repositories, r)
		}
	}
	out.Repositories = append(out.Repositories, RepoFreshness{URL: url, FetchedAt: now, IndexCsum: indexCsum})
	return out
}
