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
package hitandrun

import (
	"sync"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seedkeeper/seedkeeper/core"
)

func TestTotalSeedingTimeIsAdditiveAcrossRestarts(t *testing.T) {
	require := require.New(t)

	clk := clock.NewMock()
	tr := New(Config{}, clk, zap.NewNop().Sugar(), nil)
	h := core.InfoHashFixture()

	tr.StartSeeding(h)
	clk.Add(time.Hour)
	tr.StopSeeding(h)
	require.Equal(time.Hour, tr.TotalSeedingTime(h))

	clk.Add(30 * time.Minute) // not seeding; must not count
	tr.StartSeeding(h)
	clk.Add(2 * time.Hour)
	tr.StopSeeding(h)

	require.Equal(3*time.Hour, tr.TotalSeedingTime(h))
}

func TestTotalSeedingTimeIncludesInProgressSession(t *testing.T) {
	require := require.New(t)

	clk := clock.NewMock()
	tr := New(Config{}, clk, zap.NewNop().Sugar(), nil)
	h := core.InfoHashFixture()

	tr.StartSeeding(h)
	clk.Add(45 * time.Minute)
	require.Equal(45*time.Minute, tr.TotalSeedingTime(h))
}

func TestReviewFlagsViolationAfterMaxNonSeedingTime(t *testing.T) {
	require := require.New(t)

	clk := clock.NewMock()

	var mu sync.Mutex
	var violated []core.InfoHash
	tr := New(Config{
		ReviewInterval:      time.Second,
		RequiredSeedingTime: 7 * 24 * time.Hour,
		MaxNonSeedingTime:   time.Hour,
	}, clk, zap.NewNop().Sugar(), func(h core.InfoHash) {
		mu.Lock()
		defer mu.Unlock()
		violated = append(violated, h)
	})

	h := core.InfoHashFixture()
	tr.StartSeeding(h)
	clk.Add(time.Minute)
	tr.StopSeeding(h)

	tr.Start()
	defer tr.Stop()

	clk.Add(time.Hour + time.Second)

	require.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(violated) == 1 && violated[0] == h
	}, time.Second, time.Millisecond)
}

func TestReviewNeverFlagsATorrentThatMetRequiredSeedingTime(t *testing.T) {
	require := require.New(t)

	clk := clock.NewMock()

	var called bool
	tr := New(Config{
		ReviewInterval:      time.Second,
		RequiredSeedingTime: time.Hour,
		MaxNonSeedingTime:   time.Minute,
	}, clk, zap.NewNop().Sugar(), func(core.InfoHash) { called = true })

	h := core.InfoHashFixture()
	tr.StartSeeding(h)
	clk.Add(2 * time.Hour) // exceeds RequiredSeedingTime
	tr.StopSeeding(h)

	tr.Start()
	defer tr.Stop()

	clk.Add(5 * time.Minute)
	time.Sleep(10 * time.Millisecond)
	require.False(called)
}

func TestReviewOnlyFiresOnceForASingleViolation(t *testing.T) {
	require := require.New(t)

	clk := clock.NewMock()

	var mu sync.Mutex
	var count int
	tr := New(Config{
		ReviewInterval:    time.Second,
		MaxNonSeedingTime: time.Minute,
	}, clk, zap.NewNop().Sugar(), func(core.InfoHash) {
		mu.Lock()
		defer mu.Unlock()
		count++
	})

	h := core.InfoHashFixture()
	tr.StartSeeding(h)
	clk.Add(time.Second)
	tr.StopSeeding(h)

	tr.Start()
	defer tr.Stop()

	clk.Add(5 * time.Minute)

	require.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	got := count
	mu.Unlock()
	require.Equal(1, got)
}

func TestForgetDropsBookkeeping(t *testing.T) {
	require := require.New(t)

	clk := clock.NewMock()
	tr := New(Config{}, clk, zap.NewNop().Sugar(), nil)
	h := core.InfoHashFixture()

	tr.StartSeeding(h)
	clk.Add(time.Hour)
	tr.StopSeeding(h)
	tr.Forget(h)

	require.Equal(time.Duration(0), tr.TotalSeedingTime(h))
}
