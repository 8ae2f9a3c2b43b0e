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
package delayqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"

	"github.com/seedkeeper/seedkeeper/core"
)

func TestGetAvailableBlocksUntilReady(t *testing.T) {
	require := require.New(t)

	clk := clock.NewMock()
	q := New(clk)

	h := core.InfoHashFixture()
	q.AddOrReplace(h, core.Started, 10*time.Second)

	done := make(chan []Entry)
	go func() {
		done <- q.GetAvailable(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("GetAvailable returned before entry was ready")
	case <-time.After(50 * time.Millisecond):
	}

	clk.Add(10 * time.Second)

	select {
	case entries := <-done:
		require.Len(entries, 1)
		require.Equal(h, entries[0].InfoHash)
		require.Equal(core.Started, entries[0].Event)
	case <-time.After(time.Second):
		t.Fatal("GetAvailable did not unblock after clock advanced")
	}
}

func TestAddOrReplaceReplacesPendingEntry(t *testing.T) {
	require := require.New(t)

	clk := clock.NewMock()
	q := New(clk)

	h := core.InfoHashFixture()
	q.AddOrReplace(h, core.Started, 10*time.Second)
	q.AddOrReplace(h, core.Stopped, 5*time.Second)

	require.Equal(1, q.Len())

	clk.Add(5 * time.Second)

	entries := q.GetAvailable(context.Background())
	require.Len(entries, 1)
	require.Equal(core.Stopped, entries[0].Event)
}

func TestGetAvailableReturnsAllReadyEntriesInOrder(t *testing.T) {
	require := require.New(t)

	clk := clock.NewMock()
	q := New(clk)

	h1 := core.InfoHashFixture()
	h2 := core.InfoHashFixture()
	h3 := core.InfoHashFixture()

	q.AddOrReplace(h1, core.Started, 3*time.Second)
	q.AddOrReplace(h2, core.Started, 1*time.Second)
	q.AddOrReplace(h3, core.Started, 2*time.Second)

	clk.Add(3 * time.Second)

	entries := q.GetAvailable(context.Background())
	require.Len(entries, 3)
	require.Equal(h2, entries[0].InfoHash)
	require.Equal(h3, entries[1].InfoHash)
	require.Equal(h1, entries[2].InfoHash)
}

func TestDrainAllReturnsEverythingWithoutBlocking(t *testing.T) {
	require := require.New(t)

	clk := clock.NewMock()
	q := New(clk)

	q.AddOrReplace(core.InfoHashFixture(), core.Started, time.Hour)
	q.AddOrReplace(core.InfoHashFixture(), core.Started, time.Minute)

	entries := q.DrainAll()
	require.Len(entries, 2)
	require.Equal(0, q.Len())

	require.Empty(q.DrainAll())
}

func TestGetAvailableUnblocksOnContextCancel(t *testing.T) {
	require := require.New(t)

	clk := clock.NewMock()
	q := New(clk)
	q.AddOrReplace(core.InfoHashFixture(), core.Started, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan []Entry)
	go func() {
		done <- q.GetAvailable(ctx)
	}()

	cancel()

	select {
	case entries := <-done:
		require.Nil(entries)
	case <-time.After(time.Second):
		t.Fatal("GetAvailable did not unblock on context cancel")
	}
}

func TestNoDuplicateEntriesUnderConcurrentReplace(t *testing.T) {
	require := require.New(t)

	clk := clock.NewMock()
	q := New(clk)
	h := core.InfoHashFixture()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.AddOrReplace(h, core.None, 0)
		}()
	}
	wg.Wait()

	require.Equal(1, q.Len())

	entries := q.DrainAll()
	require.Len(entries, 1)
}
