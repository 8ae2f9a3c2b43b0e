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
package hitandrun

import (
	"encoding/json"
	"os"
	"time"

	"github.com/seedkeeper/seedkeeper/core"
	"github.com/seedkeeper/seedkeeper/utils/backoff"
)

// LoadStore reads elapsed-times.json at path and restores every entry into
// t. The file is a JSON object mapping a torrent's human-readable info-hash
// to its total seeded milliseconds. A missing file is not an error: it means
// no torrent has ever been tracked yet.
func LoadStore(path string, t *Tracker) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	var totals map[string]int64
	if err := json.NewDecoder(f).Decode(&totals); err != nil {
		return err
	}

	for hex, ms := range totals {
		h, err := core.NewInfoHashFromHex(hex)
		if err != nil {
			continue
		}
		t.Restore(h, time.Duration(ms)*time.Millisecond)
	}
	return nil
}

// SaveStore writes every torrent t is currently tracking to
// elapsed-times.json at path as a pretty-printed JSON object mapping
// human-readable info-hash to total seeded milliseconds, retrying transient
// write failures with an exponential backoff.
func SaveStore(path string, t *Tracker) error {
	t.mu.Lock()
	totals := make(map[string]int64, len(t.records))
	for h, r := range t.records {
		total := r.totalSeeding
		if !r.seedingStart.IsZero() {
			total += t.clk.Now().Sub(r.seedingStart)
		}
		totals[h.Hex()] = total.Milliseconds()
	}
	t.mu.Unlock()

	data, err := json.MarshalIndent(totals, "", "  ")
	if err != nil {
		return err
	}

	b := backoff.New(backoff.Config{Min: 50 * time.Millisecond, Max: time.Second, Factor: 2, RetryTimeout: 2 * time.Second})
	attempts := b.Attempts()
	var writeErr error
	for attempts.WaitForNext() {
		if writeErr = os.WriteFile(path, data, 0644); writeErr == nil {
			return nil
		}
	}
	if writeErr == nil {
		writeErr = attempts.Err()
	}
	return writeErr
}
