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

// Package hitandrun tracks how long each torrent has spent actively
// seeding, and flags torrents that go quiet for too long before meeting
// their required seeding time — the compliance rule private trackers call
// "hit-and-run".
package hitandrun

import "time"

// Config governs the review cadence and the two thresholds that define a
// hit-and-run violation.
type Config struct {

	// ReviewInterval is how often pending torrents are checked against the
	// thresholds below.
	ReviewInterval time.Duration `yaml:"review_interval" json:"reviewInterval"`

	// RequiredSeedingTime is the cumulative seeding time a torrent must
	// reach before it is no longer subject to hit-and-run review.
	RequiredSeedingTime time.Duration `yaml:"required_seeding_time" json:"requiredSeedingTime"`

	// MaxNonSeedingTime is how long a torrent may go without seeding,
	// while still short of RequiredSeedingTime, before a violation fires.
	MaxNonSeedingTime time.Duration `yaml:"max_non_seeding_time" json:"maxNonSeedingTime"`
}

func (c *Config) applyDefaults() {
	if c.ReviewInterval == 0 {
		c.ReviewInterval = 60 * time.Second
	}
	if c.RequiredSeedingTime == 0 {
		c.RequiredSeedingTime = 7 * 24 * time.Hour
	}
	if c.MaxNonSeedingTime == 0 {
		c.MaxNonSeedingTime = 72 * time.Hour
	}
}
