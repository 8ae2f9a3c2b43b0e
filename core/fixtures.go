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

import (
	"fmt"

	"github.com/seedkeeper/seedkeeper/internal/randutil"
)

// PeerIDFixture returns a randomly generated PeerID.
func PeerIDFixture() PeerID {
	p, err := RandomPeerID()
	if err != nil {
		panic(err)
	}
	return p
}

// PeerContextFixture returns a randomly generated PeerContext.
func PeerContextFixture() PeerContext {
	pctx, err := NewPeerContext(RandomPeerIDFactory, "zone1", randutil.IP(), randutil.Port())
	if err != nil {
		panic(err)
	}
	return pctx
}

// MetaInfoFixture returns a randomly generated, single-file MetaInfo with a
// single-tier announce list.
func MetaInfoFixture() *MetaInfo {
	name := fmt.Sprintf("fixture-%s", randutil.Text(8))
	announce := fmt.Sprintf("http://%s/announce", randutil.IP())
	mi, err := NewMetaInfo(name, announce, nil, int64(1<<20), int64(1<<14), string(randutil.Text(20)))
	if err != nil {
		panic(err)
	}
	return mi
}

// MultiTierMetaInfoFixture returns a randomly generated MetaInfo with
// multiple announce tiers, each with multiple trackers, per BEP-12.
func MultiTierMetaInfoFixture(numTiers, perTier int) *MetaInfo {
	name := fmt.Sprintf("fixture-%s", randutil.Text(8))
	tiers := make([][]string, numTiers)
	for i := range tiers {
		tier := make([]string, perTier)
		for j := range tier {
			tier[j] = fmt.Sprintf("http://%s/announce", randutil.IP())
		}
		tiers[i] = tier
	}
	mi, err := NewMetaInfo(name, tiers[0][0], tiers, int64(1<<20), int64(1<<14), string(randutil.Text(20)))
	if err != nil {
		panic(err)
	}
	return mi
}

// InfoHashFixture returns a randomly generated InfoHash.
func InfoHashFixture() InfoHash {
	return MetaInfoFixture().InfoHash()
}

// AnnounceResponseFixture returns a successful AnnounceResponse fixture.
func AnnounceResponseFixture() *AnnounceResponse {
	return &AnnounceResponse{
		Interval:   1800,
		Complete:   10,
		Incomplete: 5,
	}
}
