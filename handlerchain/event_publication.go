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
	"github.com/seedkeeper/seedkeeper/core"
)

// EventBus is the narrow publication surface this handler writes to. The
// orchestrator's own event log implements it; handlers never see anything
// else about the orchestrator. WillAnnounce is emitted directly by the
// orchestrator at dispatch time, before the outcome is known, rather than
// through this handler — it is part of the interface so one EventBus value
// can serve both call sites.
type EventBus interface {
	WillAnnounce(infoHash core.InfoHash, event core.AnnounceEvent)
	SuccessfullyAnnounce(infoHash core.InfoHash, event core.AnnounceEvent)
	FailedToAnnounce(infoHash core.InfoHash, event core.AnnounceEvent, err error)
}

// EventPublicationHandler is the last handler in the chain: it publishes
// the outcome for anything downstream (logs, metrics) that wants to observe
// every announce without participating in the torrent's own bookkeeping.
type EventPublicationHandler struct {
	bus EventBus
}

// NewEventPublicationHandler creates an EventPublicationHandler.
func NewEventPublicationHandler(bus EventBus) *EventPublicationHandler {
	return &EventPublicationHandler{bus: bus}
}

// OnSuccess implements Handler.
func (h *EventPublicationHandler) OnSuccess(infoHash core.InfoHash, event core.AnnounceEvent, resp *core.AnnounceResponse) {
	h.bus.SuccessfullyAnnounce(infoHash, event)
}

// OnFailure implements Handler.
func (h *EventPublicationHandler) OnFailure(infoHash core.InfoHash, event core.AnnounceEvent, err error) {
	h.bus.FailedToAnnounce(infoHash, event, err)
}
