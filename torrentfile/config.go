// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package torrentfile watches a directory of .torrent files, parses each
// one into a record keyed by info-hash, and archives anything that fails
// to parse.
package torrentfile

// Config governs the watched directory layout.
type Config struct {

	// ArchiveDirName is the subdirectory of Dir that unparseable or
	// no-longer-wanted .torrent files are moved into.
	ArchiveDirName string `yaml:"archive_dir_name" json:"archiveDirName"`
}

func (c *Config) applyDefaults() {
	if c.ArchiveDirName == "" {
		c.ArchiveDirName = "archived"
	}
}
