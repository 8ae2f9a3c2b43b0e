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
package handlerchain

import (
	"github.com/seedkeeper/seedkeeper/bandwidth"
	"github.com/seedkeeper/seedkeeper/core"
)

// TrackerUpdateHandler is the first handler in the chain: it folds the
// bandwidth dispatcher's fabricated upload tally into the torrent's
// counters and records the outcome (interval, consecutive failures) on its
// Announcer. Every other handler in the chain observes state this handler
// has already updated.
type TrackerUpdateHandler struct {
	registry Registry
	bw       *bandwidth.Dispatcher
}

// NewTrackerUpdateHandler creates a TrackerUpdateHandler.
func NewTrackerUpdateHandler(registry Registry, bw *bandwidth.Dispatcher) *TrackerUpdateHandler {
	return &TrackerUpdateHandler{registry: registry, bw: bw}
}

// OnSuccess implements Handler.
func (h *TrackerUpdateHandler) OnSuccess(infoHash core.InfoHash, event core.AnnounceEvent, resp *core.AnnounceResponse) {
	a, ok := h.registry.Announcer(infoHash)
	if !ok {
		return
	}
	a.AddUploaded(h.bw.TakeUploadedBytes(infoHash))
	a.RecordSuccess(event, resp)
}

// OnFailure implements Handler. A single failed attempt advances the
// announcer to the next tracker URL in the current tier (or the next tier,
// once the current one is exhausted); only once every tracker in every tier
// has been tried without success — a full pass — does it count as one
// consecutive failure.
func (h *TrackerUpdateHandler) OnFailure(infoHash core.InfoHash, event core.AnnounceEvent, err error) {
	a, ok := h.registry.Announcer(infoHash)
	if !ok {
		return
	}
	a.AddUploaded(h.bw.TakeUploadedBytes(infoHash))
	if fullPass := a.AdvanceTracker(); fullPass {
		a.RecordFailure()
	}
}
