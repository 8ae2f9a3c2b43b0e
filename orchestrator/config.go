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

// Package orchestrator owns the active set of seeding torrents and the
// scheduling loop that drives them through the announce lifecycle.
package orchestrator

import "time"

// Config governs active-set sizing and the archival policy reactions.
type Config struct {

	// SimultaneousSeed caps the number of torrents seeded at once. -1 means
	// unbounded: every known torrent is kept active.
	SimultaneousSeed int `yaml:"simultaneous_seed" json:"simultaneousSeed"`

	// KeepTorrentWithZeroLeechers, when false, archives a torrent as soon as
	// an announce reports zero seeders or zero leechers.
	KeepTorrentWithZeroLeechers bool `yaml:"keep_torrent_with_zero_leechers" json:"keepTorrentWithZeroLeechers"`

	// ArchiveOnTooManyFailures controls the onTooManyFailedInARow reaction.
	// When false (the default), a torrent that exhausts its consecutive
	// failure budget is simply dropped from the active set and left on
	// disk; when true it is archived and a replacement is promoted.
	ArchiveOnTooManyFailures bool `yaml:"archive_on_too_many_failures" json:"archiveOnTooManyFailures"`

	// PollInterval is the scheduling loop's inter-poll sleep.
	PollInterval time.Duration `yaml:"poll_interval" json:"pollInterval"`

	// RemoveDelay is how long onTorrentFileRemoved waits before submitting
	// the stopped announce, giving any already in-flight request time to
	// settle.
	RemoveDelay time.Duration `yaml:"remove_delay" json:"removeDelay"`
}

func (c *Config) applyDefaults() {
	if c.PollInterval == 0 {
		c.PollInterval = time.Second
	}
	if c.RemoveDelay == 0 {
		c.RemoveDelay = time.Second
	}
}
