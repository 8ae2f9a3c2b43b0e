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

// Package handlerchain processes the outcome of a single announce attempt
// through a fixed, ordered sequence of handlers: tracker bookkeeping,
// bandwidth peer updates, rescheduling, client-lifecycle notifications, and
// event publication. Every handler always runs, in the same order, for
// every outcome; there is no dynamic dispatch or handler skipping.
package handlerchain

import (
	"github.com/seedkeeper/seedkeeper/core"
)

// Handler reacts to one outcome of an announce attempt for a single
// torrent. Implementations must not block on anything beyond their own
// in-memory state.
type Handler interface {
	OnSuccess(infoHash core.InfoHash, event core.AnnounceEvent, resp *core.AnnounceResponse)
	OnFailure(infoHash core.InfoHash, event core.AnnounceEvent, err error)
}

// Chain is a fixed, ordered list of Handlers. Dispatch runs every handler in
// order for a single outcome; none of them may be skipped based on the
// outcome's content.
type Chain struct {
	handlers []Handler
}

// New builds a Chain that runs handlers in the given order on every
// dispatch.
func New(handlers ...Handler) *Chain {
	return &Chain{handlers: append([]Handler(nil), handlers...)}
}

// OnSuccess implements Handler, fanning the outcome out to every handler in
// order.
func (c *Chain) OnSuccess(infoHash core.InfoHash, event core.AnnounceEvent, resp *core.AnnounceResponse) {
	for _, h := range c.handlers {
		h.OnSuccess(infoHash, event, resp)
	}
}

// OnFailure implements Handler, fanning the outcome out to every handler in
// order.
func (c *Chain) OnFailure(infoHash core.InfoHash, event core.AnnounceEvent, err error) {
	for _, h := range c.handlers {
		h.OnFailure(infoHash, event, err)
	}
}
