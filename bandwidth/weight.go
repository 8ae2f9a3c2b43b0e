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
package bandwidth

// Weight computes how large a torrent's share of the global upload budget
// should be, given its current peer counts. A torrent with no seeders or no
// leechers has nothing to usefully seed to and gets zero weight; otherwise
// weight grows with the square of leecher demand and is dampened by seeder
// supply already available to those leechers.
func Weight(seeders, leechers int64) int64 {
	if seeders <= 0 || leechers <= 0 {
		return 0
	}
	return (leechers * leechers) / (seeders + 1)
}
