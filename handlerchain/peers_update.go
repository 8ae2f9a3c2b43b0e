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

// PeersUpdateHandler feeds a successful announce's reported seeder/leecher
// counts into the bandwidth dispatcher, which uses them to weight the
// torrent's next speed allocation. A failed announce carries no new peer
// information, so it is a no-op.
type PeersUpdateHandler struct {
	bw *bandwidth.Dispatcher
}

// NewPeersUpdateHandler creates a PeersUpdateHandler.
func NewPeersUpdateHandler(bw *bandwidth.Dispatcher) *PeersUpdateHandler {
	return &PeersUpdateHandler{bw: bw}
}

// OnSuccess implements Handler.
func (h *PeersUpdateHandler) OnSuccess(infoHash core.InfoHash, event core.AnnounceEvent, resp *core.AnnounceResponse) {
	h.bw.UpdatePeers(infoHash, resp.Seeders(), resp.Leechers())
}

// OnFailure implements Handler.
func (h *PeersUpdateHandler) OnFailure(infoHash core.InfoHash, event core.AnnounceEvent, err error) {}
