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
package bandwidth

import "time"

// Config governs the bandwidth dispatcher's tick cadence and the range its
// fabricated global upload budget is drawn from.
type Config struct {

	// TickInterval is how often uploaded-byte tallies accumulate.
	TickInterval time.Duration `yaml:"tick_interval" json:"tickInterval"`

	// BudgetRegenTicks is the number of ticks between regenerations of the
	// global upload budget (roughly every 2 minutes at the default tick
	// interval of 5s).
	BudgetRegenTicks int `yaml:"budget_regen_ticks" json:"budgetRegenTicks"`

	// MinUploadRate and MaxUploadRate bound the uniformly-sampled global
	// upload budget, in bytes per second.
	MinUploadRate int64 `yaml:"min_upload_rate" json:"minUploadRate"`
	MaxUploadRate int64 `yaml:"max_upload_rate" json:"maxUploadRate"`
}

func (c *Config) applyDefaults() {
	if c.TickInterval == 0 {
		c.TickInterval = 5 * time.Second
	}
	if c.BudgetRegenTicks == 0 {
		c.BudgetRegenTicks = 24
	}
	if c.MaxUploadRate == 0 {
		c.MaxUploadRate = c.MinUploadRate
	}
}
