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
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/seedkeeper/seedkeeper/announcer"
	"github.com/seedkeeper/seedkeeper/bandwidth"
	"github.com/seedkeeper/seedkeeper/clientprofile"
	"github.com/seedkeeper/seedkeeper/config"
	"github.com/seedkeeper/seedkeeper/core"
	"github.com/seedkeeper/seedkeeper/delayqueue"
	"github.com/seedkeeper/seedkeeper/handlerchain"
	"github.com/seedkeeper/seedkeeper/hitandrun"
	"github.com/seedkeeper/seedkeeper/ipprobe"
	"github.com/seedkeeper/seedkeeper/orchestrator"
	"github.com/seedkeeper/seedkeeper/torrentfile"
	"github.com/seedkeeper/seedkeeper/trackerclient"
	"github.com/seedkeeper/seedkeeper/utils/shutdown"
)

func main() {
	root := flag.String("root", "", "configuration root directory (contains config.json, torrents/, clients/, elapsed-times.json)")
	flag.Parse()

	if *root == "" {
		panic("must specify -root")
	}

	zlog, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer zlog.Sync()
	log := zlog.Sugar()

	cfg, err := config.Load(filepath.Join(*root, "config.json"))
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	profile, err := clientprofile.Load(filepath.Join(*root, "clients", cfg.Client+".json"))
	if err != nil {
		log.Fatalf("load client profile %q: %s", cfg.Client, err)
	}

	clk := clock.New()

	prober, err := ipprobe.NewHTTPProber(ipprobe.Config{}, clk, log)
	if err != nil {
		log.Fatalf("create ip prober: %s", err)
	}
	prober.Start()

	torrentsDir := filepath.Join(*root, "torrents")
	if err := os.MkdirAll(torrentsDir, 0755); err != nil {
		log.Fatalf("create torrents dir: %s", err)
	}
	provider, err := torrentfile.New(torrentfile.Config{}, torrentsDir, log)
	if err != nil {
		log.Fatalf("create torrent file provider: %s", err)
	}
	if err := provider.Scan(); err != nil {
		log.Fatalf("scan torrents dir: %s", err)
	}

	queue := delayqueue.New(clk)

	accessor := trackerclient.NewAccessor(profile, prober)

	stats := tally.NoopScope

	bw := bandwidth.New(bandwidth.Config{
		MinUploadRate: cfg.MinUploadRate,
		MaxUploadRate: cfg.MaxUploadRate,
	}, clk, log, stats)

	events := orchestrator.NewEventLog(log, stats)

	elapsedTimesPath := filepath.Join(*root, "elapsed-times.json")

	orchCfg := orchestrator.Config{
		SimultaneousSeed:            cfg.SimultaneousSeed,
		KeepTorrentWithZeroLeechers: cfg.KeepTorrentWithZeroLeechers,
	}

	// orch is referenced by the hit-and-run tracker's onViolation callback
	// before it exists; the closure only runs after New returns below and
	// the review loop starts.
	var orch *orchestrator.Orchestrator
	hitrun := hitandrun.New(hitandrun.Config{
		MaxNonSeedingTime:   time.Duration(cfg.MaxNonSeedingTimeMs) * time.Millisecond,
		RequiredSeedingTime: time.Duration(cfg.RequiredSeedingTimeMs) * time.Millisecond,
	}, clk, log, func(h core.InfoHash) {
		orch.OnHitAndRunViolation(h)
	})
	if err := hitandrun.LoadStore(elapsedTimesPath, hitrun); err != nil {
		log.Fatalf("load elapsed-times store: %s", err)
	}

	peerID := profile.GeneratePeerID()

	// orch is created with no executor yet: the executor's handler chain
	// needs a Registry view onto orch, so orch must exist first. SetExecutor
	// closes the cycle once the chain is built below.
	orch = orchestrator.New(orchCfg, announcer.Config{}, peerID, provider, queue, nil, bw, hitrun, events, clk, log)

	registry := registryAdapter{orch}
	chain := handlerchain.New(
		handlerchain.NewTrackerUpdateHandler(registry, bw),
		handlerchain.NewPeersUpdateHandler(bw),
		handlerchain.NewReschedulingHandler(registry, queue, defaultMaxBackoff),
		handlerchain.NewClientNotificationHandler(registry, cfg.UploadRatioTarget, handlerchain.ClientNotificationCallbacks{
			OnNoMorePeers:             orch.OnNoMorePeers,
			OnUploadRatioLimitReached: orch.OnUploadRatioLimitReached,
			OnTorrentHasStopped:       orch.OnTorrentHasStopped,
			OnTooManyFailedInARow:     orch.OnTooManyFailedInARow,
		}),
		handlerchain.NewEventPublicationHandler(events),
	)
	executor := trackerclient.NewExecutor(trackerclient.Config{}, accessor, chain)
	orch.SetExecutor(executor)

	sh := shutdown.New(context.Background())

	bw.Start()
	sh.AddCleanup(func() error { bw.Stop(); return nil })

	hitrun.Start()
	sh.AddCleanup(func() error { hitrun.Stop(); return nil })

	orch.Start()
	sh.AddCleanup(func() error { orch.Stop(); return nil })

	provider.Start()
	sh.AddCleanup(func() error { provider.Stop(); return nil })

	sh.AddCleanup(func() error { prober.Stop(); return nil })
	sh.AddCleanup(func() error { return hitandrun.SaveStore(elapsedTimesPath, hitrun) })

	go persistElapsedTimesPeriodically(sh.Context(), clk, elapsedTimesPath, hitrun, log)

	log.Infof("seedkeeperd running against %s", *root)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	sh.Shutdown()
}

// defaultMaxBackoff caps the retry delay after a failed announce, matching
// the announcer package's own default backoff ceiling.
const defaultMaxBackoff = 5 * time.Minute

// persistElapsedTimesPeriodically rewrites elapsed-times.json on a fixed
// cadence, so a crash between reviews loses at most one interval's worth of
// seeding-time bookkeeping.
func persistElapsedTimesPeriodically(ctx context.Context, clk clock.Clock, path string, t *hitandrun.Tracker, log *zap.SugaredLogger) {
	ticker := clk.Ticker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := hitandrun.SaveStore(path, t); err != nil {
				log.Warnf("persist elapsed times: %s", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// registryAdapter adapts *orchestrator.Orchestrator to handlerchain.Registry.
// The orchestrator package itself never imports handlerchain; wiring is done
// here, at the composition root, by structural typing.
type registryAdapter struct {
	orch *orchestrator.Orchestrator
}

func (r registryAdapter) Announcer(h core.InfoHash) (*announcer.Announcer, bool) {
	return r.orch.Announcer(h)
}

func (r registryAdapter) Length(h core.InfoHash) (int64, bool) {
	return r.orch.Length(h)
}
