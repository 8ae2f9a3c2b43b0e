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

// Package ipprobe supplies the public IP/port an emulated client reports in
// its announces, refreshed periodically so long-lived seeds don't appear to
// sit behind a suspiciously static address.
package ipprobe

import (
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"go.uber.org/zap"

	"github.com/seedkeeper/seedkeeper/utils/httputil"
)

// Prober exposes the address an Announcer should report to trackers.
type Prober interface {
	Addr() (ip string, port int)
}

// Static is a Prober that always reports a fixed address, used by tests.
// The config file has no setting that selects it; seedkeeperd always uses
// HTTPProber.
type Static struct {
	IP   string
	Port int
}

// Addr implements Prober.
func (s Static) Addr() (string, int) {
	return s.IP, s.Port
}

// Config governs how frequently HTTPProber refreshes its address.
type Config struct {
	Endpoint        string        `yaml:"endpoint" json:"endpoint"`
	RefreshInterval time.Duration `yaml:"refresh_interval" json:"refreshInterval"`
	Port            int           `yaml:"port" json:"port"`
}

func (c *Config) applyDefaults() {
	if c.RefreshInterval == 0 {
		c.RefreshInterval = 90 * time.Minute
	}
	if c.Endpoint == "" {
		c.Endpoint = "https://api.ipify.org"
	}
}

// HTTPProber fetches the caller's public IP from an HTTP(S) endpoint that
// echoes it back as a plain-text body, and refreshes it on a timer.
type HTTPProber struct {
	config Config
	clk    clock.Clock
	log    *zap.SugaredLogger

	mu sync.RWMutex
	ip string

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHTTPProber creates an HTTPProber and performs an initial synchronous
// fetch so Addr never returns an empty IP once construction succeeds.
func NewHTTPProber(config Config, clk clock.Clock, log *zap.SugaredLogger) (*HTTPProber, error) {
	config.applyDefaults()
	p := &HTTPProber{
		config: config,
		clk:    clk,
		log:    log,
		stop:   make(chan struct{}),
	}
	if err := p.refresh(); err != nil {
		return nil, err
	}
	return p, nil
}

// Addr implements Prober.
func (p *HTTPProber) Addr() (string, int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ip, p.config.Port
}

// Start launches the background refresh loop.
func (p *HTTPProber) Start() {
	p.wg.Add(1)
	go p.loop()
}

// Stop halts the refresh loop and blocks until it exits.
func (p *HTTPProber) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	p.wg.Wait()
}

func (p *HTTPProber) loop() {
	defer p.wg.Done()

	ticker := p.clk.Ticker(p.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.tick()
		case <-p.stop:
			return
		}
	}
}

func (p *HTTPProber) tick() {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("recovered from panic refreshing public ip: %v", r)
		}
	}()
	if err := p.refresh(); err != nil {
		p.log.Warnf("failed to refresh public ip: %s", err)
	}
}

func (p *HTTPProber) refresh() error {
	resp, err := httputil.Get(p.config.Endpoint, httputil.SendTimeout(10*time.Second))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	ip := strings.TrimSpace(string(body))
	if net := strings.Split(ip, ":"); len(net) > 1 {
		// Some echo endpoints return "ip:port"; keep only the host part.
		if _, err := strconv.Atoi(net[len(net)-1]); err == nil {
			ip = strings.Join(net[:len(net)-1], ":")
		}
	}

	p.mu.Lock()
	p.ip = ip
	p.mu.Unlock()
	return nil
}
