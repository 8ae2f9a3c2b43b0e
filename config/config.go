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

// Package config loads and validates config.json, the single top-level
// configuration file for a seedkeeper deployment.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/validator.v2"
)

const (
	defaultMaxNonSeedingTimeMs   = 259200000 // 72h
	defaultRequiredSeedingTimeMs = 604800000 // 7d
	defaultUploadRatioTarget     = -1
)

// Config is the parsed, defaulted, and validated contents of config.json.
type Config struct {
	MinUploadRate               int64   `json:"minUploadRate" validate:"min=0"`
	MaxUploadRate               int64   `json:"maxUploadRate" validate:"min=0"`
	SimultaneousSeed            int     `json:"simultaneousSeed"`
	Client                      string  `json:"client" validate:"nonzero"`
	KeepTorrentWithZeroLeechers bool    `json:"keepTorrentWithZeroLeechers"`
	UploadRatioTarget           float64 `json:"uploadRatioTarget"`
	MaxNonSeedingTimeMs         int64   `json:"maxNonSeedingTimeMs"`
	RequiredSeedingTimeMs       int64   `json:"requiredSeedingTimeMs"`

	// uploadRatioTargetSet and the two TimeMs fields below track whether the
	// operator supplied a value, since their json.Unmarshal zero value (0)
	// is itself meaningful for UploadRatioTarget but not for the others.
	uploadRatioTargetSet     bool
	maxNonSeedingTimeMsSet   bool
	requiredSeedingTimeMsSet bool
}

// ErrInvalid wraps a validator.v2 field-level error, or a hand-checked
// cross-field constraint violation not expressible with a struct tag.
type ErrInvalid struct {
	reason string
	err    error
}

func (e *ErrInvalid) Error() string {
	if e.err != nil {
		return fmt.Sprintf("invalid config: %s: %s", e.reason, e.err)
	}
	return fmt.Sprintf("invalid config: %s", e.reason)
}

func (e *ErrInvalid) Unwrap() error { return e.err }

// Load reads, defaults, and validates the config.json file at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var raw map[string]interface{}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return Config{}, &ErrInvalid{reason: "malformed json", err: err}
	}

	var c Config
	b, err := json.Marshal(raw)
	if err != nil {
		return Config{}, &ErrInvalid{reason: "malformed json", err: err}
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return Config{}, &ErrInvalid{reason: "malformed json", err: err}
	}

	if _, ok := raw["uploadRatioTarget"]; ok {
		c.uploadRatioTargetSet = true
	}
	if _, ok := raw["maxNonSeedingTimeMs"]; ok {
		c.maxNonSeedingTimeMsSet = true
	}
	if _, ok := raw["requiredSeedingTimeMs"]; ok {
		c.requiredSeedingTimeMsSet = true
	}
	c.applyDefaults()

	if err := validator.Validate(c); err != nil {
		return Config{}, &ErrInvalid{reason: "field validation", err: err}
	}
	if err := c.checkCrossFieldConstraints(); err != nil {
		return Config{}, err
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if !c.uploadRatioTargetSet {
		c.UploadRatioTarget = defaultUploadRatioTarget
	}
	if !c.maxNonSeedingTimeMsSet {
		c.MaxNonSeedingTimeMs = defaultMaxNonSeedingTimeMs
	}
	if !c.requiredSeedingTimeMsSet {
		c.RequiredSeedingTimeMs = defaultRequiredSeedingTimeMs
	}
}

// checkCrossFieldConstraints validates the rules spec.md §6 states in prose
// that a single-field validator tag cannot express.
func (c *Config) checkCrossFieldConstraints() error {
	if c.MaxUploadRate < c.MinUploadRate {
		return &ErrInvalid{reason: "maxUploadRate must be >= minUploadRate"}
	}
	if c.SimultaneousSeed != -1 && c.SimultaneousSeed <= 0 {
		return &ErrInvalid{reason: "simultaneousSeed must be > 0 or -1"}
	}
	if c.UploadRatioTarget != -1 && c.UploadRatioTarget < 0 {
		return &ErrInvalid{reason: "uploadRatioTarget must be >= 0 or -1"}
	}
	return nil
}
