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
package announcer

import "time"

// Config governs the interval clamping and failure thresholds applied to
// every Announcer.
type Config struct {

	// DefaultInterval is used when a tracker response omits an interval.
	DefaultInterval time.Duration `yaml:"default_interval" json:"defaultInterval"`

	// MinInterval clamps the floor of any tracker-provided interval.
	MinInterval time.Duration `yaml:"min_interval" json:"minInterval"`

	// MaxInterval clamps the ceiling of any tracker-provided interval.
	MaxInterval time.Duration `yaml:"max_interval" json:"maxInterval"`

	// MaxBackoffInterval caps the retry delay used after a failed announce.
	MaxBackoffInterval time.Duration `yaml:"max_backoff_interval" json:"maxBackoffInterval"`

	// MaxConsecutiveFailures is the number of full-pass failures (one per
	// announce attempt, after every tracker in every tier has been tried)
	// before TooManyFailuresInARow fires.
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures" json:"maxConsecutiveFailures"`
}

func (c *Config) applyDefaults() {
	if c.DefaultInterval == 0 {
		c.DefaultInterval = 30 * time.Minute
	}
	if c.MinInterval == 0 {
		c.MinInterval = time.Minute
	}
	if c.MaxInterval == 0 {
		c.MaxInterval = 2 * time.Hour
	}
	if c.MaxBackoffInterval == 0 {
		c.MaxBackoffInterval = 5 * time.Minute
	}
	if c.MaxConsecutiveFailures == 0 {
		c.MaxConsecutiveFailures = 5
	}
}
