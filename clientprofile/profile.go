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

// Package clientprofile loads the fingerprint of the BitTorrent client being
// emulated: its User-Agent, peer-id prefix, announce key policy, and the
// handful of other details that make an announce indistinguishable from one
// sent by the real client.
package clientprofile

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/seedkeeper/seedkeeper/core"
)

// KeyPolicy controls how often the announce "key" parameter, used by
// trackers to recognize a client across IP changes, is regenerated.
type KeyPolicy string

const (
	// PerRequest generates a new key for every single announce.
	PerRequest KeyPolicy = "per_request"

	// PerTorrent generates one key per torrent, reused for that torrent's
	// entire lifetime.
	PerTorrent KeyPolicy = "per_torrent"
)

// Profile is an emulated BitTorrent client's fingerprint, loaded from
// <root>/clients/<name>.json.
type Profile struct {
	UserAgent      string    `json:"userAgent"`
	PeerIDPrefix   string    `json:"peerIDPrefix"`
	QueryTemplate  []string  `json:"queryTemplate"`
	KeyPolicy      KeyPolicy `json:"keyPolicy"`
	NumWant        int       `json:"numwant"`
	NumWantOnStop  int       `json:"numwantOnStop"`
	AcceptEncoding string    `json:"acceptEncoding"`
	Connection     string    `json:"connection"`
}

func (p *Profile) applyDefaults() {
	if p.KeyPolicy == "" {
		p.KeyPolicy = PerTorrent
	}
	if p.NumWant == 0 {
		p.NumWant = 50
	}
	if p.Connection == "" {
		p.Connection = "close"
	}
}

// Validate reports whether p has the minimum fields required to build an
// announce request.
func (p *Profile) Validate() error {
	if p.UserAgent == "" {
		return fmt.Errorf("clientprofile: userAgent is required")
	}
	if len(p.PeerIDPrefix) == 0 || len(p.PeerIDPrefix) > 20 {
		return fmt.Errorf("clientprofile: peerIDPrefix must be 1-20 bytes, got %d", len(p.PeerIDPrefix))
	}
	if p.KeyPolicy != PerRequest && p.KeyPolicy != PerTorrent {
		return fmt.Errorf("clientprofile: invalid keyPolicy %q", p.KeyPolicy)
	}
	return nil
}

// GeneratePeerID returns a 20-byte peer-id shaped like the real client's:
// PeerIDPrefix verbatim, padded out with random bytes to fill the remaining
// length.
func (p *Profile) GeneratePeerID() core.PeerID {
	var id core.PeerID
	n := copy(id[:], p.PeerIDPrefix)
	rand.Read(id[n:])
	return id
}

// Load reads and validates a Profile from path.
func Load(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open client profile: %s", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads and validates a Profile from r.
func Parse(r io.Reader) (*Profile, error) {
	var p Profile
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode client profile: %s", err)
	}
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
