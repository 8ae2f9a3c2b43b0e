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
package orchestrator

import (
	"context"

	"github.com/seedkeeper/seedkeeper/core"
	"github.com/seedkeeper/seedkeeper/trackerclient"
)

// schedulingLoop repeatedly pulls due requests off the delay queue and
// submits each to the executor, then sleeps for PollInterval before the
// next pull. GetAvailable is itself an interruptible blocking wait, so a
// quiet queue parks the loop rather than spinning it.
func (o *Orchestrator) schedulingLoop() {
	defer o.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-o.stop
		cancel()
	}()

	for {
		select {
		case <-o.stop:
			return
		default:
		}

		entries := o.queue.GetAvailable(ctx)
		for _, e := range entries {
			o.dispatch(e.InfoHash)
		}

		select {
		case <-o.clk.After(o.config.PollInterval):
		case <-o.stop:
			return
		}
	}
}

// dispatch submits the current announce for infoHash and moves it to the
// tail of the active-set ordering (MRU discipline).
func (o *Orchestrator) dispatch(infoHash core.InfoHash) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Errorf("recovered from panic dispatching %s: %v", infoHash, r)
		}
	}()

	o.mu.Lock()
	a, ok := o.active[infoHash]
	if ok {
		o.activeOrder = removeFromOrder(o.activeOrder, infoHash)
		o.activeOrder = append(o.activeOrder, infoHash)
	}
	o.mu.Unlock()
	if !ok {
		// Removed from the active set between being enqueued and becoming
		// due (e.g. archived). Nothing to announce.
		return
	}

	event := a.NextEvent()
	url := a.CurrentTrackerURL()
	if url == "" {
		o.log.Warnf("no tracker url for %s, dropping announce", infoHash)
		return
	}
	uploaded, downloaded, left := a.Snapshot()

	o.events.WillAnnounce(infoHash, event)

	o.executor.Submit(trackerclient.Task{
		InfoHash:   infoHash,
		PeerID:     o.peerID,
		TrackerURL: url,
		Event:      event,
		Uploaded:   uploaded,
		Downloaded: downloaded,
		Left:       left,
	})
}
