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
package torrentfile

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/seedkeeper/seedkeeper/core"
)

// ErrNoMoreTorrentsAvailable is returned by GetTorrentNotIn when every known
// torrent is present in the exclusion set.
var ErrNoMoreTorrentsAvailable = errors.New("no more torrents available")

// Listener receives add/remove notifications as the watched directory
// changes. Implementations must not block; Provider invokes them
// synchronously on its watch goroutine.
type Listener interface {
	OnTorrentFileAdded(mi *core.MetaInfo)
	OnTorrentFileRemoved(infoHash core.InfoHash)
}

// Provider watches a directory of .torrent files and maintains the set of
// successfully parsed torrents, keyed by info-hash.
type Provider struct {
	config  Config
	dir     string
	archive string
	log     *zap.SugaredLogger

	watcher *fsnotify.Watcher

	mu       sync.RWMutex
	torrents map[core.InfoHash]*core.MetaInfo
	paths    map[core.InfoHash]string // infoHash -> source file path, for removal lookups
	listener Listener

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a Provider rooted at dir. The archive subdirectory is created
// if it does not already exist; New fails if it exists and is not a
// directory.
func New(config Config, dir string, log *zap.SugaredLogger) (*Provider, error) {
	config.applyDefaults()

	archive := filepath.Join(dir, config.ArchiveDirName)
	fi, err := os.Stat(archive)
	if err == nil {
		if !fi.IsDir() {
			return nil, fmt.Errorf("%s exists and is not a directory", archive)
		}
	} else if os.IsNotExist(err) {
		if err := os.MkdirAll(archive, 0755); err != nil {
			return nil, fmt.Errorf("create archive dir: %s", err)
		}
	} else {
		return nil, fmt.Errorf("stat archive dir: %s", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new watcher: %s", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %s", dir, err)
	}

	return &Provider{
		config:   config,
		dir:      dir,
		archive:  archive,
		log:      log,
		watcher:  watcher,
		torrents: make(map[core.InfoHash]*core.MetaInfo),
		paths:    make(map[core.InfoHash]string),
		stop:     make(chan struct{}),
	}, nil
}

// SetListener installs the callback invoked on add/remove. Must be called
// before Start to avoid missing early events.
func (p *Provider) SetListener(l Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = l
}

// Scan parses every .torrent file already present in the directory. Call
// once before Start to pick up files that existed before the watch began.
func (p *Provider) Scan() error {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return fmt.Errorf("read dir: %s", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), ".torrent") {
			continue
		}
		p.handleCreate(filepath.Join(p.dir, e.Name()))
	}
	return nil
}

// Start launches the background watch loop.
func (p *Provider) Start() {
	p.wg.Add(1)
	go p.loop()
}

// Stop halts the watch loop and closes the underlying filesystem watch.
// Calls after the first are no-ops.
func (p *Provider) Stop() {
	select {
	case <-p.stop:
		return
	default:
	}
	close(p.stop)
	p.wg.Wait()
	p.watcher.Close()
}

func (p *Provider) loop() {
	defer p.wg.Done()
	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			p.handleEvent(event)
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.log.Errorf("torrent file watch error: %s", err)
		case <-p.stop:
			return
		}
	}
}

func (p *Provider) handleEvent(event fsnotify.Event) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("recovered from panic handling watch event for %s: %v", event.Name, r)
		}
	}()

	if !strings.HasSuffix(event.Name, ".torrent") {
		return
	}
	if strings.HasPrefix(event.Name, p.archive) {
		return
	}
	switch {
	case event.Op&fsnotify.Create != 0:
		p.handleCreate(event.Name)
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		p.handleRemove(event.Name)
	case event.Op&fsnotify.Write != 0:
		// Modify is delivered as a delete-then-create pair so listeners
		// always see a consistent record.
		p.handleRemove(event.Name)
		p.handleCreate(event.Name)
	}
}

func (p *Provider) handleCreate(path string) {
	f, err := os.Open(path)
	if err != nil {
		p.log.Errorf("open %s: %s", path, err)
		return
	}
	mi, err := core.Parse(f)
	f.Close()
	if err != nil {
		p.log.Warnf("parse %s: %s, archiving", path, err)
		p.archiveFile(path)
		return
	}
	if !validSize(mi) {
		p.log.Warnf("%s: piece length / total size mismatch, archiving", path)
		p.archiveFile(path)
		return
	}

	p.mu.Lock()
	p.torrents[mi.InfoHash()] = mi
	p.paths[mi.InfoHash()] = path
	listener := p.listener
	p.mu.Unlock()

	if listener != nil {
		listener.OnTorrentFileAdded(mi)
	}
}

// validSize checks that the declared piece geometry can actually cover the
// declared content length.
func validSize(mi *core.MetaInfo) bool {
	if mi.PieceLength() <= 0 || mi.NumPieces() <= 0 {
		return false
	}
	return mi.PieceLength()*int64(mi.NumPieces()) >= mi.Length()
}

func (p *Provider) handleRemove(path string) {
	p.mu.Lock()
	var removed core.InfoHash
	var found bool
	for h, p2 := range p.paths {
		if p2 == path {
			removed, found = h, true
			break
		}
	}
	if found {
		delete(p.torrents, removed)
		delete(p.paths, removed)
	}
	listener := p.listener
	p.mu.Unlock()

	if found && listener != nil {
		listener.OnTorrentFileRemoved(removed)
	}
}

func (p *Provider) archiveFile(path string) {
	if err := p.moveToArchive(path); err != nil {
		p.log.Errorf("archive %s: %s", path, err)
	}
}

func (p *Provider) moveToArchive(path string) error {
	dst := filepath.Join(p.archive, filepath.Base(path))
	return os.Rename(path, dst)
}

// Archive moves the .torrent file backing infoHash into the archive
// directory and then runs the same remove handling a manual deletion would:
// the map entries are cleared and OnTorrentFileRemoved fires synchronously,
// before Archive returns. The watcher's own event for the move then finds
// no matching entry and is ignored.
func (p *Provider) Archive(infoHash core.InfoHash) error {
	p.mu.RLock()
	path, ok := p.paths[infoHash]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown info hash: %s", infoHash)
	}
	if err := p.moveToArchive(path); err != nil {
		return fmt.Errorf("archive %s: %s", path, err)
	}
	p.handleRemove(path)
	return nil
}

// Get returns the parsed MetaInfo for infoHash, if known.
func (p *Provider) Get(infoHash core.InfoHash) (*core.MetaInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	mi, ok := p.torrents[infoHash]
	return mi, ok
}

// List returns a snapshot of every currently known torrent.
func (p *Provider) List() []*core.MetaInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*core.MetaInfo, 0, len(p.torrents))
	for _, mi := range p.torrents {
		out = append(out, mi)
	}
	return out
}

// GetTorrentNotIn returns a uniformly random torrent whose info-hash is not
// in excluded. Returns ErrNoMoreTorrentsAvailable if no such torrent exists.
func (p *Provider) GetTorrentNotIn(excluded map[core.InfoHash]bool) (*core.MetaInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	candidates := make([]*core.MetaInfo, 0, len(p.torrents))
	for h, mi := range p.torrents {
		if !excluded[h] {
			candidates = append(candidates, mi)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoMoreTorrentsAvailable
	}
	return candidates[rand.Intn(len(candidates))], nil
}
