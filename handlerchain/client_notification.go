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

// ClientNotificationHandler reacts to four conditions the orchestrator
// needs to know about, each as a narrow callback rather than a reference to
// the orchestrator itself: no peers left to seed to, the upload ratio
// target has been reached, the torrent has finished stopping, and too many
// consecutive announce attempts have failed.
type ClientNotificationHandler struct {
	registry Registry

	uploadRatioTarget float64 // -1 disables ratio-based archival

	onNoMorePeers             func(infoHash core.InfoHash)
	onUploadRatioLimitReached func(infoHash core.InfoHash)
	onTorrentHasStopped       func(infoHash core.InfoHash)
	onTooManyFailedInARow     func(infoHash core.InfoHash)
}

// ClientNotificationCallbacks bundles the orchestrator reactions a
// ClientNotificationHandler invokes. Any nil callback is treated as a
// no-op.
type ClientNotificationCallbacks struct {
	OnNoMorePeers             func(infoHash core.InfoHash)
	OnUploadRatioLimitReached func(infoHash core.InfoHash)
	OnTorrentHasStopped       func(infoHash core.InfoHash)
	OnTooManyFailedInARow     func(infoHash core.InfoHash)
}

// NewClientNotificationHandler creates a ClientNotificationHandler.
// uploadRatioTarget of -1 disables the ratio check entirely, per spec.
func NewClientNotificationHandler(registry Registry, uploadRatioTarget float64, cb ClientNotificationCallbacks) *ClientNotificationHandler {
	h := &ClientNotificationHandler{
		registry:                  registry,
		uploadRatioTarget:         uploadRatioTarget,
		onNoMorePeers:             cb.OnNoMorePeers,
		onUploadRatioLimitReached: cb.OnUploadRatioLimitReached,
		onTorrentHasStopped:       cb.OnTorrentHasStopped,
		onTooManyFailedInARow:     cb.OnTooManyFailedInARow,
	}
	if h.onNoMorePeers == nil {
		h.onNoMorePeers = func(core.InfoHash) {}
	}
	if h.onUploadRatioLimitReached == nil {
		h.onUploadRatioLimitReached = func(core.InfoHash) {}
	}
	if h.onTorrentHasStopped == nil {
		h.onTorrentHasStopped = func(core.InfoHash) {}
	}
	if h.onTooManyFailedInARow == nil {
		h.onTooManyFailedInARow = func(core.InfoHash) {}
	}
	return h
}

// OnSuccess implements Handler.
func (h *ClientNotificationHandler) OnSuccess(infoHash core.InfoHash, event core.AnnounceEvent, resp *core.AnnounceResponse) {
	if event == core.Stopped {
		h.onTorrentHasStopped(infoHash)
		return
	}

	if resp.Seeders() < 1 || resp.Leechers() < 1 {
		h.onNoMorePeers(infoHash)
	}

	if h.uploadRatioTarget >= 0 {
		if a, ok := h.registry.Announcer(infoHash); ok {
			if length, ok := h.registry.Length(infoHash); ok && length > 0 {
				uploaded, _, _ := a.Snapshot()
				ratio := float64(uploaded) / float64(length)
				if ratio >= h.uploadRatioTarget {
					h.onUploadRatioLimitReached(infoHash)
				}
			}
		}
	}
}

// OnFailure implements Handler.
func (h *ClientNotificationHandler) OnFailure(infoHash core.InfoHash, event core.AnnounceEvent, err error) {
	if a, ok := h.registry.Announcer(infoHash); ok && a.TooManyFailures() {
		h.onTooManyFailedInARow(infoHash)
	}
}
