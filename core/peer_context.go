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
package core

import "errors"

// PeerContext defines the identity the emulated client announces itself
// under. It has nothing to do with any real network socket: Port is the
// value placed in the announce query, and IP is whatever the connection
// probe (package ipprobe) last discovered as our public address.
type PeerContext struct {

	// IP and Port specify the address the peer will announce itself as.
	IP   string `json:"ip"`
	Port int    `json:"port"`

	// PeerID the peer will identify itself as.
	PeerID PeerID `json:"peer_id"`

	// Zone is an optional locality tag, reported to trackers that support it.
	Zone string `json:"zone"`
}

// NewPeerContext creates a new PeerContext.
func NewPeerContext(f PeerIDFactory, zone, ip string, port int) (PeerContext, error) {
	if ip == "" {
		return PeerContext{}, errors.New("no ip supplied")
	}
	if port == 0 {
		return PeerContext{}, errors.New("no port supplied")
	}
	peerID, err := f.GeneratePeerID(ip, port)
	if err != nil {
		return PeerContext{}, err
	}
	return PeerContext{
		IP:     ip,
		Port:   port,
		PeerID: peerID,
		Zone:   zone,
	}, nil
}
