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

// Package trackerclient builds and sends announce requests that mimic the
// configured emulated client's exact fingerprint.
package trackerclient

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	uuid "github.com/satori/go.uuid"

	"github.com/seedkeeper/seedkeeper/clientprofile"
	"github.com/seedkeeper/seedkeeper/core"
	"github.com/seedkeeper/seedkeeper/ipprobe"
)

// Request is a fully-built announce ready to be sent: a URL (with query
// string) and a set of headers.
type Request struct {
	URL     string
	Headers map[string]string
}

// Accessor builds Requests for a torrent's current tracker URL and
// transfer state, per the configured client profile.
type Accessor struct {
	profile *clientprofile.Profile
	prober  ipprobe.Prober

	mu   sync.Mutex
	keys map[core.InfoHash]string
}

// NewAccessor creates an Accessor for the given client profile and IP
// source.
func NewAccessor(profile *clientprofile.Profile, prober ipprobe.Prober) *Accessor {
	return &Accessor{
		profile: profile,
		prober:  prober,
		keys:    make(map[core.InfoHash]string),
	}
}

func (a *Accessor) sessionKey(h core.InfoHash) string {
	if a.profile.KeyPolicy == clientprofile.PerRequest {
		return newKey()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	k, ok := a.keys[h]
	if !ok {
		k = newKey()
		a.keys[h] = k
	}
	return k
}

func newKey() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewV4().String(), "-", "")[:8])
}

// defaultQueryOrder is the parameter order used when the client profile
// carries no QueryTemplate, and as the fallback order for any parameter the
// template omits.
var defaultQueryOrder = []string{"port", "uploaded", "downloaded", "left", "compact", "numwant", "key", "event"}

// Build constructs the announce Request for trackerURL, reflecting event
// and the torrent's current peer-id and transfer counters.
func (a *Accessor) Build(
	trackerURL string,
	peerID core.PeerID,
	infoHash core.InfoHash,
	event core.AnnounceEvent,
	uploaded, downloaded, left int64,
) (Request, error) {
	ip, port := a.prober.Addr()
	if ip == "" {
		return Request{}, fmt.Errorf("trackerclient: no ip available from prober")
	}

	numwant := a.profile.NumWant
	if event == core.Stopped {
		numwant = a.profile.NumWantOnStop
	}

	params := map[string]string{
		"port":       strconv.Itoa(port),
		"uploaded":   strconv.FormatInt(uploaded, 10),
		"downloaded": strconv.FormatInt(downloaded, 10),
		"left":       strconv.FormatInt(left, 10),
		"compact":    "1",
		"numwant":    strconv.Itoa(numwant),
		"key":        a.sessionKey(infoHash),
	}
	if event != core.None {
		params["event"] = string(event)
	}

	// info_hash and peer_id carry raw bytes and must be percent-encoded
	// manually; everything else follows the client profile's QueryTemplate
	// (falling back to defaultQueryOrder), since real trackers don't care
	// about order but real clients have a fixed one worth mimicking.
	query := a.orderedQuery(params) +
		"&info_hash=" + percentEncodeBytes(infoHash.Bytes()) +
		"&peer_id=" + percentEncodeBytes(peerID[:])

	req := Request{
		URL: trackerURL + "?" + query,
		Headers: map[string]string{
			"User-Agent":      a.profile.UserAgent,
			"Accept-Encoding": a.profile.AcceptEncoding,
			"Connection":      a.profile.Connection,
		},
	}
	return req, nil
}

// orderedQuery renders params as a query string, writing keys named in the
// client profile's QueryTemplate first, in that order, then any remaining
// params from params in defaultQueryOrder. A template that names an unknown
// key or omits a present one never drops a parameter: it only reorders.
func (a *Accessor) orderedQuery(params map[string]string) string {
	order := a.profile.QueryTemplate
	if len(order) == 0 {
		order = defaultQueryOrder
	}

	var sb strings.Builder
	written := make(map[string]bool, len(params))
	write := func(name string) {
		v, ok := params[name]
		if !ok || written[name] {
			return
		}
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(v))
		written[name] = true
	}

	for _, name := range order {
		write(name)
	}
	for _, name := range defaultQueryOrder {
		write(name)
	}
	return sb.String()
}

// percentEncodeBytes percent-encodes raw bytes per RFC 3986's
// "unreserved characters" rule, matching how real BitTorrent clients encode
// info_hash and peer_id (url.QueryEscape would also escape space as '+',
// which trackers don't expect here).
func percentEncodeBytes(b []byte) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	for _, c := range b {
		if isUnreserved(c) {
			sb.WriteByte(c)
		} else {
			sb.WriteByte('%')
			sb.WriteByte(hex[c>>4])
			sb.WriteByte(hex[c&0xF])
		}
	}
	return sb.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '~'
}
