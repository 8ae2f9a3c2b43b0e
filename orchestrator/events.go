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
package orchestrator

import (
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/seedkeeper/seedkeeper/core"
)

// WillAnnouncer is the narrow capability the scheduling loop needs to
// publish a pre-dispatch event, satisfied by EventLog alongside the rest of
// handlerchain.EventBus.
type WillAnnouncer interface {
	WillAnnounce(infoHash core.InfoHash, event core.AnnounceEvent)
}

// EventLog is the sole production implementation of handlerchain.EventBus:
// it publishes every announce outcome as a structured log line and a tally
// counter. Tests substitute a recording fake instead.
type EventLog struct {
	log   *zap.SugaredLogger
	stats tally.Scope
}

// NewEventLog creates an EventLog. stats may be nil, in which case only
// logging occurs.
func NewEventLog(log *zap.SugaredLogger, stats tally.Scope) *EventLog {
	return &EventLog{log: log, stats: stats}
}

// WillAnnounce implements handlerchain.EventBus and WillAnnouncer.
func (e *EventLog) WillAnnounce(infoHash core.InfoHash, event core.AnnounceEvent) {
	e.log.Debugf("announcing %s (%s)", infoHash, event)
	if e.stats != nil {
		e.stats.Counter("announce.attempt").Inc(1)
	}
}

// SuccessfullyAnnounce implements handlerchain.EventBus.
func (e *EventLog) SuccessfullyAnnounce(infoHash core.InfoHash, event core.AnnounceEvent) {
	e.log.Infof("announced %s (%s)", infoHash, event)
	if e.stats != nil {
		e.stats.Counter("announce.success").Inc(1)
	}
}

// FailedToAnnounce implements handlerchain.EventBus.
func (e *EventLog) FailedToAnnounce(infoHash core.InfoHash, event core.AnnounceEvent, err error) {
	e.log.Warnf("failed to announce %s (%s): %s", infoHash, event, err)
	if e.stats != nil {
		e.stats.Counter("announce.failure").Inc(1)
	}
}
