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
	"time"

	"github.com/seedkeeper/seedkeeper/core"
	"github.com/seedkeeper/seedkeeper/delayqueue"
)

// ReschedulingHandler re-enters a torrent into the delay queue after every
// outcome except a successful "stopped" announce, which retires it for
// good. A successful attempt reschedules a "none" announce at the
// Announcer's current interval; a failed attempt retries the same event
// after a backoff capped at MaxBackoff.
type ReschedulingHandler struct {
	registry   Registry
	queue      *delayqueue.Queue
	maxBackoff time.Duration
}

// NewReschedulingHandler creates a ReschedulingHandler. maxBackoff caps the
// retry delay used after a failed announce.
func NewReschedulingHandler(registry Registry, queue *delayqueue.Queue, maxBackoff time.Duration) *ReschedulingHandler {
	return &ReschedulingHandler{registry: registry, queue: queue, maxBackoff: maxBackoff}
}

// OnSuccess implements Handler.
func (h *ReschedulingHandler) OnSuccess(infoHash core.InfoHash, event core.AnnounceEvent, resp *core.AnnounceResponse) {
	if event == core.Stopped {
		return
	}
	a, ok := h.registry.Announcer(infoHash)
	if !ok {
		return
	}
	h.queue.AddOrReplace(infoHash, core.None, a.Interval())
}

// OnFailure implements Handler.
func (h *ReschedulingHandler) OnFailure(infoHash core.InfoHash, event core.AnnounceEvent, err error) {
	a, ok := h.registry.Announcer(infoHash)
	if !ok {
		return
	}
	delay := a.Interval()
	if delay > h.maxBackoff {
		delay = h.maxBackoff
	}
	h.queue.AddOrReplace(infoHash, event, delay)
}
