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
package trackerclient

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seedkeeper/seedkeeper/clientprofile"
	"github.com/seedkeeper/seedkeeper/core"
	"github.com/seedkeeper/seedkeeper/ipprobe"
)

func testProfile(keyPolicy clientprofile.KeyPolicy) *clientprofile.Profile {
	return &clientprofile.Profile{
		UserAgent:      "qBittorrent/4.3.0",
		PeerIDPrefix:   "-qB4300-",
		KeyPolicy:      keyPolicy,
		NumWant:        200,
		NumWantOnStop:  0,
		AcceptEncoding: "gzip",
		Connection:     "close",
	}
}

func TestBuildIncludesRequiredParams(t *testing.T) {
	require := require.New(t)

	a := NewAccessor(testProfile(clientprofile.PerTorrent), ipprobe.Static{IP: "1.2.3.4", Port: 6881})
	h := core.InfoHashFixture()
	peerID := core.PeerIDFixture()

	req, err := a.Build("http://tracker.example/announce", peerID, h, core.Started, 100, 200, 300)
	require.NoError(err)
	require.True(strings.HasPrefix(req.URL, "http://tracker.example/announce?"))
	require.Contains(req.URL, "uploaded=100")
	require.Contains(req.URL, "downloaded=200")
	require.Contains(req.URL, "left=300")
	require.Contains(req.URL, "event=started")
	require.Contains(req.URL, "port=6881")
	require.Contains(req.URL, "info_hash=")
	require.Contains(req.URL, "peer_id=")
	require.Equal("qBittorrent/4.3.0", req.Headers["User-Agent"])
}

func TestBuildOmitsEventOnNone(t *testing.T) {
	require := require.New(t)

	a := NewAccessor(testProfile(clientprofile.PerTorrent), ipprobe.Static{IP: "1.2.3.4", Port: 6881})
	req, err := a.Build("http://t", core.PeerIDFixture(), core.InfoHashFixture(), core.None, 0, 0, 0)
	require.NoError(err)
	require.NotContains(req.URL, "event=")
}

func TestBuildUsesNumWantOnStop(t *testing.T) {
	require := require.New(t)

	a := NewAccessor(testProfile(clientprofile.PerTorrent), ipprobe.Static{IP: "1.2.3.4", Port: 6881})
	req, err := a.Build("http://t", core.PeerIDFixture(), core.InfoHashFixture(), core.Stopped, 0, 0, 0)
	require.NoError(err)
	require.Contains(req.URL, "numwant=0")
}

func TestPerTorrentKeyIsStableAcrossCalls(t *testing.T) {
	require := require.New(t)

	a := NewAccessor(testProfile(clientprofile.PerTorrent), ipprobe.Static{IP: "1.2.3.4", Port: 6881})
	h := core.InfoHashFixture()
	peerID := core.PeerIDFixture()

	req1, err := a.Build("http://t", peerID, h, core.Started, 0, 0, 0)
	require.NoError(err)
	req2, err := a.Build("http://t", peerID, h, core.None, 0, 0, 0)
	require.NoError(err)

	key1 := extractQueryParam(t, req1.URL, "key")
	key2 := extractQueryParam(t, req2.URL, "key")
	require.Equal(key1, key2)
}

func TestPerRequestKeyChangesEveryCall(t *testing.T) {
	require := require.New(t)

	a := NewAccessor(testProfile(clientprofile.PerRequest), ipprobe.Static{IP: "1.2.3.4", Port: 6881})
	h := core.InfoHashFixture()
	peerID := core.PeerIDFixture()

	req1, err := a.Build("http://t", peerID, h, core.Started, 0, 0, 0)
	require.NoError(err)
	req2, err := a.Build("http://t", peerID, h, core.None, 0, 0, 0)
	require.NoError(err)

	key1 := extractQueryParam(t, req1.URL, "key")
	key2 := extractQueryParam(t, req2.URL, "key")
	require.NotEqual(key1, key2)
}

func TestBuildFailsWithoutAnAddress(t *testing.T) {
	require := require.New(t)

	a := NewAccessor(testProfile(clientprofile.PerTorrent), ipprobe.Static{})
	_, err := a.Build("http://t", core.PeerIDFixture(), core.InfoHashFixture(), core.Started, 0, 0, 0)
	require.Error(err)
}

func TestBuildHonorsQueryTemplateOrdering(t *testing.T) {
	require := require.New(t)

	profile := testProfile(clientprofile.PerTorrent)
	profile.QueryTemplate = []string{"key", "port", "compact"}

	a := NewAccessor(profile, ipprobe.Static{IP: "1.2.3.4", Port: 6881})
	req, err := a.Build("http://t", core.PeerIDFixture(), core.InfoHashFixture(), core.None, 0, 0, 0)
	require.NoError(err)

	query := strings.SplitN(req.URL, "?", 2)[1]
	keyIdx := strings.Index(query, "key=")
	portIdx := strings.Index(query, "port=")
	compactIdx := strings.Index(query, "compact=")
	require.True(keyIdx < portIdx)
	require.True(portIdx < compactIdx)

	// uploaded wasn't named in the template, so it still appears, just after
	// every templated key.
	require.Contains(query, "uploaded=0")
	require.True(compactIdx < strings.Index(query, "uploaded="))
}

func extractQueryParam(t *testing.T, rawURL, key string) string {
	parts := strings.SplitN(rawURL, "?", 2)
	require.Len(t, parts, 2)
	v, err := url.ParseQuery(parts[1])
	require.NoError(t, err)
	return v.Get(key)
}
