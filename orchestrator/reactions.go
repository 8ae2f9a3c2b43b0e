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

import "github.com/seedkeeper/seedkeeper/core"

// OnTorrentFileAdded is the torrentfile.Listener reaction to a new torrent
// appearing. It joins the active set immediately if there is room.
func (o *Orchestrator) OnTorrentFileAdded(mi *core.MetaInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return
	}
	if o.config.SimultaneousSeed != -1 && len(o.active) >= o.config.SimultaneousSeed {
		return
	}
	o.activateLocked(mi, 0)
}

// OnTorrentFileRemoved is the torrentfile.Listener reaction to a torrent's
// file disappearing (deleted, or archived by one of the reactions below).
// The stopped announce is delayed so any already in-flight request for this
// torrent has a chance to settle first.
func (o *Orchestrator) OnTorrentFileRemoved(infoHash core.InfoHash) {
	o.mu.RLock()
	a, ok := o.active[infoHash]
	o.mu.RUnlock()
	if !ok {
		return
	}
	a.RequestStop()
	o.queue.AddOrReplace(infoHash, core.Stopped, o.config.RemoveDelay)
}

// OnTorrentHasStopped removes infoHash from the active set once its final
// stopped announce has succeeded, and tries to promote a replacement from
// the pool of not-yet-active torrents.
func (o *Orchestrator) OnTorrentHasStopped(infoHash core.InfoHash) {
	o.mu.Lock()
	delete(o.active, infoHash)
	o.activeOrder = removeFromOrder(o.activeOrder, infoHash)
	stopped := o.stopped
	o.mu.Unlock()

	o.hitrun.StopSeeding(infoHash)
	o.hitrun.Forget(infoHash)
	o.bw.UnregisterTorrent(infoHash)

	if stopped {
		return
	}
	o.promoteReplacement()
}

// OnHitAndRunViolation is the hit-and-run tracker's onViolation callback: a
// torrent that failed to reach its required seeding time within the
// configured non-seeding grace period is archived like any other
// policy-driven removal.
func (o *Orchestrator) OnHitAndRunViolation(infoHash core.InfoHash) {
	o.log.Warnf("hit-and-run violation for %s, archiving", infoHash)
	o.archive(infoHash)
}

// promoteReplacement activates a uniformly random torrent from the pool not
// currently in the active set. It is a silent no-op if none is available.
func (o *Orchestrator) promoteReplacement() {
	o.mu.RLock()
	if o.stopped {
		o.mu.RUnlock()
		return
	}
	excluded := make(map[core.InfoHash]bool, len(o.active))
	for h := range o.active {
		excluded[h] = true
	}
	o.mu.RUnlock()

	mi, err := o.provider.GetTorrentNotIn(excluded)
	if err != nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return
	}
	o.activateLocked(mi, 0)
}

// OnNoMorePeers is the ClientNotification reaction to an announce reporting
// zero peers of either kind. Archiving the file triggers OnTorrentFileRemoved
// synchronously, from within the provider's Archive call.
func (o *Orchestrator) OnNoMorePeers(infoHash core.InfoHash) {
	if o.config.KeepTorrentWithZeroLeechers {
		return
	}
	o.archive(infoHash)
}

// OnUploadRatioLimitReached archives a torrent once its fabricated upload
// ratio crosses the configured target.
func (o *Orchestrator) OnUploadRatioLimitReached(infoHash core.InfoHash) {
	o.archive(infoHash)
}

// OnTooManyFailedInARow reacts to an announcer exhausting its consecutive
// failure budget. The reference behavior this was modeled on ships with
// this reaction disabled; ArchiveOnTooManyFailures defaults to false, in
// which case the torrent is simply dropped from the active set and left on
// disk rather than archived and replaced.
func (o *Orchestrator) OnTooManyFailedInARow(infoHash core.InfoHash) {
	if !o.config.ArchiveOnTooManyFailures {
		o.log.Warnf("%s exceeded its consecutive failure budget, dropping from active set", infoHash)
		o.mu.Lock()
		delete(o.active, infoHash)
		o.activeOrder = removeFromOrder(o.activeOrder, infoHash)
		o.mu.Unlock()
		o.hitrun.StopSeeding(infoHash)
		o.hitrun.Forget(infoHash)
		o.bw.UnregisterTorrent(infoHash)
		return
	}
	o.archive(infoHash)
}

func (o *Orchestrator) archive(infoHash core.InfoHash) {
	if err := o.provider.Archive(infoHash); err != nil {
		o.log.Warnf("archive %s: %s", infoHash, err)
	}
}
