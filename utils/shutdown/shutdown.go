// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package shutdown provides a single coordination point for draining the
// running subsystems of seedkeeperd: the entrypoint registers a cleanup func
// for each subsystem it starts (bandwidth dispatcher, hit-and-run tracker,
// orchestrator, torrent file provider, IP probe, elapsed-times store), and
// long-running goroutines can wait on the shared context being cancelled.
package shutdown

import (
	"context"
	"sync"
)

// Handler coordinates graceful shutdown across a set of independently
// registered cleanup funcs, running them in LIFO order exactly once.
type Handler struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	cleanups []func() error
	once     sync.Once
}

// New creates a Handler whose Context is derived from parent.
func New(parent context.Context) *Handler {
	ctx, cancel := context.WithCancel(parent)
	return &Handler{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context returns a context which is cancelled when Shutdown is called.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// AddCleanup registers f to run on Shutdown. Cleanups run in LIFO order,
// mirroring how nested defers would unwind if the subsystems were stopped
// inline.
func (h *Handler) AddCleanup(f func() error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanups = append(h.cleanups, f)
}

// Shutdown cancels the Handler's context and runs all registered cleanups in
// LIFO order. Safe to call multiple times; only the first call has effect.
func (h *Handler) Shutdown() {
	h.once.Do(func() {
		h.cancel()

		h.mu.Lock()
		cleanups := h.cleanups
		h.mu.Unlock()

		for i := len(cleanups) - 1; i >= 0; i-- {
			// Errors are not actionable once shutdown is underway; subsystems
			// log their own failures before returning them here.
			_ = cleanups[i]()
		}
	})
}
