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

// tiers implements the BEP-12 multi-tracker selection policy. The candidate
// currently being attempted is t[tierIdx][urlIdx]. A failed announce
// advances to the next URL in the tier, or the first URL of the next tier
// once the current tier is exhausted, wrapping back to (0, 0) to report a
// full pass. A successful announce promotes the candidate to the front of
// its tier and its tier to the front of the tier list.
type tiers struct {
	t               [][]string
	tierIdx, urlIdx int
}

func newTiers(t [][]string) *tiers {
	// Defensively copy so promotions don't mutate the caller's slices.
	cp := make([][]string, len(t))
	for i, tier := range t {
		cp[i] = append([]string(nil), tier...)
	}
	return &tiers{t: cp}
}

// current returns the URL that should be used for the next attempt.
func (ts *tiers) current() string {
	if len(ts.t) == 0 || len(ts.t[ts.tierIdx]) == 0 {
		return ""
	}
	return ts.t[ts.tierIdx][ts.urlIdx]
}

// advance moves to the next URL, wrapping tiers as needed. It reports
// fullPass == true once it has cycled back to (0, 0), meaning every URL has
// now been tried since the last success.
func (ts *tiers) advance() (fullPass bool) {
	if len(ts.t) == 0 {
		return true
	}

	ts.urlIdx++
	if ts.urlIdx >= len(ts.t[ts.tierIdx]) {
		ts.urlIdx = 0
		ts.tierIdx++
		if ts.tierIdx >= len(ts.t) {
			ts.tierIdx = 0
			return true
		}
	}
	return false
}

// promote moves the current candidate to the front of its tier, and its
// tier to the front of the tier list, then resets the pointer to (0, 0) so
// current() still returns the promoted candidate.
func (ts *tiers) promote() {
	if len(ts.t) == 0 {
		return
	}

	tier := ts.t[ts.tierIdx]
	if len(tier) == 0 {
		return
	}
	url := tier[ts.urlIdx]

	reordered := make([]string, 0, len(tier))
	reordered = append(reordered, url)
	reordered = append(reordered, tier[:ts.urlIdx]...)
	reordered = append(reordered, tier[ts.urlIdx+1:]...)

	newTierList := make([][]string, 0, len(ts.t))
	newTierList = append(newTierList, reordered)
	newTierList = append(newTierList, ts.t[:ts.tierIdx]...)
	newTierList = append(newTierList, ts.t[ts.tierIdx+1:]...)

	ts.t = newTierList
	ts.tierIdx = 0
	ts.urlIdx = 0
}

func (ts *tiers) snapshot() [][]string {
	cp := make([][]string, len(ts.t))
	for i, tier := range ts.t {
		cp[i] = append([]string(nil), tier...)
	}
	return cp
}
