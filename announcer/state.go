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

// State is the lifecycle phase of an Announcer. Transitions only occur on
// a successful announce; a failed announce leaves State unchanged. A failure
// advances to the next tracker URL, and the consecutive-failure counter is
// incremented (via RecordFailure) only once a full pass over every tier has
// failed.
type State int

const (
	// StateNew is the initial state, before the first announce has been sent.
	StateNew State = iota

	// StateStarted is reached once the "started" announce succeeds.
	StateStarted

	// StateRegular is the steady-state loop of "none" announces.
	StateRegular

	// StateStopped is reached once the "stopped" announce succeeds.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateStarted:
		return "started"
	case StateRegular:
		return "regular"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
