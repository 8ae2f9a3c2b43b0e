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

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/jackpal/bencode-go"
)

const sha1Size = 20

// info is the "info" dictionary of a .torrent file, the sub-document whose
// bencoded bytes are hashed to produce the InfoHash. We never need to
// reconstruct or verify piece data, so the piece hashes are carried through
// opaquely rather than parsed into individual SHA1 sums.
type info struct {
	Name        string `bencode:"name"`
	PieceLength int64  `bencode:"piece length"`
	Pieces      string `bencode:"pieces"`
	Length      int64  `bencode:"length,omitempty"`
}

// Hash computes the InfoHash of info by bencoding it and taking the SHA1 of
// the resulting bytes, per the BitTorrent wire format.
func (info *info) Hash() (InfoHash, error) {
	var b bytes.Buffer
	if err := bencode.Marshal(&b, *info); err != nil {
		return InfoHash{}, fmt.Errorf("bencode: %s", err)
	}
	return NewInfoHashFromBytes(b.Bytes()), nil
}

// MetaInfo is a parsed .torrent file. A seed emulator never downloads or
// verifies the underlying content, so MetaInfo exists purely to produce an
// InfoHash and the tracker tier list used to drive announces.
type MetaInfo struct {
	Announce     string     `bencode:"announce"`
	AnnounceList [][]string `bencode:"announce-list,omitempty"`
	info         info
	infoHash     InfoHash
}

// metaInfoWire mirrors the top-level bencode dictionary of a .torrent file.
type metaInfoWire struct {
	Announce     string     `bencode:"announce"`
	AnnounceList [][]string `bencode:"announce-list,omitempty"`
	Info         info       `bencode:"info"`
}

// Parse decodes a .torrent file from r.
func Parse(r io.Reader) (*MetaInfo, error) {
	var w metaInfoWire
	if err := bencode.Unmarshal(r, &w); err != nil {
		return nil, fmt.Errorf("bencode: %s", err)
	}
	if w.Info.PieceLength <= 0 {
		return nil, errors.New("info dict missing piece length")
	}
	if w.Announce == "" && len(w.AnnounceList) == 0 {
		return nil, errors.New("no announce url present")
	}
	h, err := w.Info.Hash()
	if err != nil {
		return nil, fmt.Errorf("compute info hash: %s", err)
	}
	return &MetaInfo{
		Announce:     w.Announce,
		AnnounceList: w.AnnounceList,
		info:         w.Info,
		infoHash:     h,
	}, nil
}

// NewMetaInfo builds a MetaInfo for a fabricated torrent given its announce
// tiers and a synthetic content length. pieceLength and pieces are carried
// through only so the info hash is well-formed and reproducible; no actual
// piece data is ever read or verified.
func NewMetaInfo(name, announce string, announceList [][]string, length, pieceLength int64, pieces string) (*MetaInfo, error) {
	if pieceLength <= 0 {
		return nil, errors.New("piece length must be positive")
	}
	i := info{
		Name:        name,
		PieceLength: pieceLength,
		Pieces:      pieces,
		Length:      length,
	}
	h, err := i.Hash()
	if err != nil {
		return nil, fmt.Errorf("compute info hash: %s", err)
	}
	return &MetaInfo{
		Announce:     announce,
		AnnounceList: announceList,
		info:         i,
		infoHash:     h,
	}, nil
}

// InfoHash returns the torrent's InfoHash.
func (mi *MetaInfo) InfoHash() InfoHash {
	return mi.infoHash
}

// Name returns the suggested name of the torrent's content.
func (mi *MetaInfo) Name() string {
	return mi.info.Name
}

// Length returns the declared length of the torrent's content.
func (mi *MetaInfo) Length() int64 {
	return mi.info.Length
}

// PieceLength returns the declared piece length.
func (mi *MetaInfo) PieceLength() int64 {
	return mi.info.PieceLength
}

// NumPieces returns the number of SHA1 piece hashes carried in the info
// dictionary, derived from the length of the opaque pieces string.
func (mi *MetaInfo) NumPieces() int {
	return len(mi.info.Pieces) / sha1Size
}

// Tiers returns the tracker announce tiers in BEP-12 priority order: the
// top-level announce url as the sole member of the first tier if
// announce-list is absent, else announce-list verbatim.
func (mi *MetaInfo) Tiers() [][]string {
	if len(mi.AnnounceList) > 0 {
		return mi.AnnounceList
	}
	if mi.Announce == "" {
		return nil
	}
	return [][]string{{mi.Announce}}
}

// Write bencodes mi as a .torrent file to w.
func (mi *MetaInfo) Write(w io.Writer) error {
	wire := metaInfoWire{
		Announce:     mi.Announce,
		AnnounceList: mi.AnnounceList,
		Info:         mi.info,
	}
	return bencode.Marshal(w, wire)
}
