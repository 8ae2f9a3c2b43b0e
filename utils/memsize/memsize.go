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

// Package memsize formats byte and bit counts as human-readable strings, for
// use in logging fabricated upload/download speeds and byte totals.
package memsize

import "fmt"

// Byte-based size units.
const (
	B  uint64 = 1
	KB        = B * 1024
	MB        = KB * 1024
	GB        = MB * 1024
	TB        = GB * 1024
)

// Bit-based size units, used for reporting speeds.
const (
	Bit  uint64 = 1
	Kbit        = Bit * 1024
	Mbit        = Kbit * 1024
	Gbit        = Mbit * 1024
	Tbit        = Gbit * 1024
)

// Format renders bytes as a human-readable string using the largest unit
// that keeps the value >= 1.
func Format(bytes uint64) string {
	return format(bytes, "B", TB, GB, MB, KB, B)
}

// BitFormat renders bits as a human-readable string using the largest unit
// that keeps the value >= 1.
func BitFormat(bits uint64) string {
	return format(bits, "bit", Tbit, Gbit, Mbit, Kbit, Bit)
}

func format(v uint64, base string, units ...uint64) string {
	if v == 0 {
		return "0" + base
	}
	unitNames := []string{"T", "G", "M", "K", ""}
	for i, unit := range units {
		if unit == B || unit == Bit {
			break
		}
		if v >= unit {
			return fmt.Sprintf("%.2f%s%s", float64(v)/float64(unit), unitNames[i], base)
		}
	}
	return fmt.Sprintf("%.2f%s", float64(v), base)
}
