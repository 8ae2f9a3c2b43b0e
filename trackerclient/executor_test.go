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
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/seedkeeper/seedkeeper/clientprofile"
	"github.com/seedkeeper/seedkeeper/core"
	"github.com/seedkeeper/seedkeeper/ipprobe"
)

type fakeHandler struct {
	mu        sync.Mutex
	successes []core.AnnounceResponse
	failures  []error
}

func (f *fakeHandler) OnSuccess(infoHash core.InfoHash, event core.AnnounceEvent, resp *core.AnnounceResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.successes = append(f.successes, *resp)
}

func (f *fakeHandler) OnFailure(infoHash core.InfoHash, event core.AnnounceEvent, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, err)
}

func (f *fakeHandler) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.successes), len(f.failures)
}

func newTestExecutor(handler Handler, srvURL string) (*Executor, string) {
	profile := &clientprofile.Profile{
		UserAgent:    "test-client",
		PeerIDPrefix: "-TC0001-",
		KeyPolicy:    clientprofile.PerTorrent,
		NumWant:      50,
	}
	accessor := NewAccessor(profile, ipprobe.Static{IP: "127.0.0.1", Port: 6881})
	return NewExecutor(Config{MaxWorkers: 2}, accessor, handler), srvURL
}

func TestExecutorDispatchesSuccess(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "d8:completei5e10:incompletei2e8:intervali1800ee")
	}))
	defer srv.Close()

	handler := &fakeHandler{}
	exec, url := newTestExecutor(handler, srv.URL)

	exec.Submit(Task{
		InfoHash:   core.InfoHashFixture(),
		PeerID:     core.PeerIDFixture(),
		TrackerURL: url,
		Event:      core.Started,
	})
	exec.AwaitRunningTasks()

	successes, failures := handler.counts()
	require.Equal(1, successes)
	require.Equal(0, failures)
	require.EqualValues(5, handler.successes[0].Seeders())
	require.EqualValues(2, handler.successes[0].Leechers())
}

func TestExecutorDispatchesFailureReason(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "d14:failure reason17:torrent not founde")
	}))
	defer srv.Close()

	handler := &fakeHandler{}
	exec, url := newTestExecutor(handler, srv.URL)

	exec.Submit(Task{
		InfoHash:   core.InfoHashFixture(),
		PeerID:     core.PeerIDFixture(),
		TrackerURL: url,
		Event:      core.None,
	})
	exec.AwaitRunningTasks()

	successes, failures := handler.counts()
	require.Equal(0, successes)
	require.Equal(1, failures)
}

func TestExecutorDispatchesFailureOnBadStatus(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	handler := &fakeHandler{}
	exec, url := newTestExecutor(handler, srv.URL)

	exec.Submit(Task{
		InfoHash:   core.InfoHashFixture(),
		PeerID:     core.PeerIDFixture(),
		TrackerURL: url,
		Event:      core.None,
	})
	exec.AwaitRunningTasks()

	_, failures := handler.counts()
	require.Equal(1, failures)
}

func TestSubmitDoesNotBlockCaller(t *testing.T) {
	require := require.New(t)

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
		fmt.Fprint(w, "d8:completei1e10:incompletei1e8:intervali60ee")
	}))
	defer srv.Close()

	handler := &fakeHandler{}
	exec, url := newTestExecutor(handler, srv.URL)

	done := make(chan struct{})
	go func() {
		exec.Submit(Task{InfoHash: core.InfoHashFixture(), PeerID: core.PeerIDFixture(), TrackerURL: url, Event: core.None})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit should return immediately, without waiting on the in-flight request")
	}

	close(block)
	exec.AwaitRunningTasks()
}
