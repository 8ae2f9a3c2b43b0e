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
package core

// AnnounceEvent is the "event" query parameter sent with an announce
// request, describing the torrent's transition at the time of the request.
type AnnounceEvent string

const (
	// None is sent on regular, periodic announces.
	None AnnounceEvent = "none"

	// Started is sent on the first announce issued for a torrent.
	Started AnnounceEvent = "started"

	// Completed is sent once, the first time a torrent reaches 100% and the
	// client transitions from leeching to seeding. A pure seed emulator that
	// never downloads never emits this event for its own torrents, but the
	// type still models it since trackers expect to see it in the wild.
	Completed AnnounceEvent = "completed"

	// Stopped is sent when the client is ceasing to seed a torrent.
	Stopped AnnounceEvent = "stopped"
)

// AnnounceResponse is the bencoded reply to an announce request. FailureReason
// is populated instead of the interval/peer-count fields when the tracker
// rejects the request outright.
type AnnounceResponse struct {
	Interval      int64  `bencode:"interval"`
	MinInterval   int64  `bencode:"min interval,omitempty"`
	Complete      int64  `bencode:"complete"`
	Incomplete    int64  `bencode:"incomplete"`
	FailureReason string `bencode:"failure reason,omitempty"`
}

// Failed reports whether the tracker rejected the announce.
func (r *AnnounceResponse) Failed() bool {
	return r.FailureReason != ""
}

// Seeders returns the number of complete peers (seeders) reported.
func (r *AnnounceResponse) Seeders() int64 {
	return r.Complete
}

// Leechers returns the number of incomplete peers (leechers) reported.
func (r *AnnounceResponse) Leechers() int64 {
	return r.Incomplete
}
