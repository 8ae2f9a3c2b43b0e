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
package handlerchain

import (
	"github.com/seedkeeper/seedkeeper/announcer"
	"github.com/seedkeeper/seedkeeper/core"
)

// Registry is the narrow capability handlers use to look up per-torrent
// state they don't own. It is satisfied by the orchestrator's active-torrent
// set, but handlers never hold a reference to the orchestrator itself.
type Registry interface {
	// Announcer returns the Announcer tracking infoHash, if still active.
	Announcer(infoHash core.InfoHash) (*announcer.Announcer, bool)

	// Length returns the torrent's total size in bytes, used to compute
	// upload ratio.
	Length(infoHash core.InfoHash) (int64, bool)
}
