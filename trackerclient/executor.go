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
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackpal/bencode-go"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/seedkeeper/seedkeeper/core"
	"github.com/seedkeeper/seedkeeper/utils/syncutil"
)

// Config governs the executor's worker pool size and HTTP transport
// tuning.
type Config struct {
	MaxWorkers          int64         `yaml:"max_workers" json:"maxWorkers"`
	ConnectTimeout      time.Duration `yaml:"connect_timeout" json:"connectTimeout"`
	ReadTimeout         time.Duration `yaml:"read_timeout" json:"readTimeout"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host" json:"maxIdleConnsPerHost"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host" json:"maxConnsPerHost"`
}

func (c *Config) applyDefaults() {
	if c.MaxWorkers == 0 {
		c.MaxWorkers = 4
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Second
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = 100
	}
	if c.MaxConnsPerHost == 0 {
		c.MaxConnsPerHost = 200
	}
}

// Handler receives the outcome of a submitted announce attempt.
type Handler interface {
	OnSuccess(infoHash core.InfoHash, event core.AnnounceEvent, resp *core.AnnounceResponse)
	OnFailure(infoHash core.InfoHash, event core.AnnounceEvent, err error)
}

// Task is a single announce attempt ready to be sent.
type Task struct {
	InfoHash   core.InfoHash
	PeerID     core.PeerID
	TrackerURL string
	Event      core.AnnounceEvent
	Uploaded   int64
	Downloaded int64
	Left       int64
}

// Executor sends announce Tasks against a bounded pool of workers, parses
// the bencoded tracker response, and dispatches the outcome to a Handler.
// Submit never blocks the caller: work is handed off to a goroutine which
// then waits for a free worker slot.
type Executor struct {
	config   Config
	accessor *Accessor
	handler  Handler
	client   *http.Client
	sem      *semaphore.Weighted
	wg       sync.WaitGroup

	// workerLoad tracks how many tasks each numbered slot has processed,
	// purely for diagnostics; slot assignment is by round-robin counter.
	workerLoad *syncutil.Counters
	nextSlot   int64
	slotMu     sync.Mutex
}

// NewExecutor creates an Executor. handler is invoked from whichever worker
// goroutine completes a given Task, never from Submit's caller.
func NewExecutor(config Config, accessor *Accessor, handler Handler) *Executor {
	config.applyDefaults()

	dialer := &net.Dialer{Timeout: config.ConnectTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		MaxConnsPerHost:     config.MaxConnsPerHost,
	}

	return &Executor{
		config:   config,
		accessor: accessor,
		handler:  handler,
		client: &http.Client{
			Timeout:   config.ConnectTimeout + config.ReadTimeout,
			Transport: transport,
		},
		sem:        semaphore.NewWeighted(config.MaxWorkers),
		workerLoad: syncutil.NewCounters(int(config.MaxWorkers)),
	}
}

// Submit hands t off for asynchronous execution and returns immediately.
func (e *Executor) Submit(t Task) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.sem.Acquire(context.Background(), 1); err != nil {
			return
		}
		defer e.sem.Release(1)
		e.run(t)
	}()
}

// AwaitRunningTasks blocks until every previously Submitted Task has
// finished and its outcome has been dispatched to the Handler.
func (e *Executor) AwaitRunningTasks() {
	e.wg.Wait()
}

func (e *Executor) run(t Task) {
	slot := e.claimSlot()
	defer e.workerLoad.Increment(slot)

	req, err := e.accessor.Build(t.TrackerURL, t.PeerID, t.InfoHash, t.Event, t.Uploaded, t.Downloaded, t.Left)
	if err != nil {
		e.handler.OnFailure(t.InfoHash, t.Event, errors.Wrap(err, "build announce request"))
		return
	}

	httpReq, err := http.NewRequest(http.MethodGet, req.URL, nil)
	if err != nil {
		e.handler.OnFailure(t.InfoHash, t.Event, errors.Wrap(err, "new http request"))
		return
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		e.handler.OnFailure(t.InfoHash, t.Event, errors.Wrap(err, "send announce"))
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e.handler.OnFailure(t.InfoHash, t.Event, errors.Wrap(err, "read announce response"))
		return
	}
	if resp.StatusCode != http.StatusOK {
		e.handler.OnFailure(t.InfoHash, t.Event, errors.Errorf(
			"announce returned status %d: %s", resp.StatusCode, string(body)))
		return
	}

	var ar core.AnnounceResponse
	if err := bencode.Unmarshal(bytes.NewReader(body), &ar); err != nil {
		e.handler.OnFailure(t.InfoHash, t.Event, errors.Wrap(err, "unmarshal announce response"))
		return
	}
	if ar.Failed() {
		e.handler.OnFailure(t.InfoHash, t.Event, errors.Errorf("tracker rejected announce: %s", ar.FailureReason))
		return
	}

	e.handler.OnSuccess(t.InfoHash, t.Event, &ar)
}

func (e *Executor) claimSlot() int {
	e.slotMu.Lock()
	defer e.slotMu.Unlock()
	slot := int(e.nextSlot % e.config.MaxWorkers)
	e.nextSlot++
	return slot
}
