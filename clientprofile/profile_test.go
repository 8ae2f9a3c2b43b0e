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
package clientprofile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const _validJSON = `{
	"userAgent": "qBittorrent/4.3.0",
	"peerIDPrefix": "-qB4300-",
	"queryTemplate": ["info_hash", "peer_id", "port", "uploaded", "downloaded", "left", "event"],
	"keyPolicy": "per_torrent",
	"numwant": 200,
	"numwantOnStop": 0,
	"acceptEncoding": "gzip",
	"connection": "close"
}`

func TestParseValidProfile(t *testing.T) {
	require := require.New(t)

	p, err := Parse(strings.NewReader(_validJSON))
	require.NoError(err)
	require.Equal("qBittorrent/4.3.0", p.UserAgent)
	require.Equal(PerTorrent, p.KeyPolicy)
	require.Equal(200, p.NumWant)
}

func TestParseAppliesDefaults(t *testing.T) {
	require := require.New(t)

	p, err := Parse(strings.NewReader(`{"userAgent": "x", "peerIDPrefix": "-XX0001-"}`))
	require.NoError(err)
	require.Equal(PerTorrent, p.KeyPolicy)
	require.Equal(50, p.NumWant)
	require.Equal("close", p.Connection)
}

func TestParseRejectsMissingUserAgent(t *testing.T) {
	require := require.New(t)
	_, err := Parse(strings.NewReader(`{"peerIDPrefix": "-XX0001-"}`))
	require.Error(err)
}

func TestParseRejectsOversizedPeerIDPrefix(t *testing.T) {
	require := require.New(t)
	_, err := Parse(strings.NewReader(`{"userAgent": "x", "peerIDPrefix": "012345678901234567890"}`))
	require.Error(err)
}

func TestParseRejectsInvalidKeyPolicy(t *testing.T) {
	require := require.New(t)
	_, err := Parse(strings.NewReader(`{"userAgent": "x", "peerIDPrefix": "-XX0001-", "keyPolicy": "bogus"}`))
	require.Error(err)
}
