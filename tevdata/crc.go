// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tevdata

import (
	"hash/crc32"
	"sort"
)

// crcTable is the standard zlib/IEEE 802.3 CRC-32 polynomial table, the
// only checksum scheme TEVD uses.
var crcTable = crc32.MakeTable(crc32.IEEE)

// CRCOf computes the CRC-32 (IEEE) of buf.
func CRCOf(buf []byte) uint32 {
	return crc32.Checksum(buf, crcTable)
}

// CRCAccumulator builds a CRC-32 incrementally, either from raw bytes or
// from big-endian 32-bit words.
type CRCAccumulator struct {
	crc uint32
}

// NewCRCAccumulator returns a fresh, zero-valued accumulator.
func NewCRCAccumulator() *CRCAccumulator {
	return &CRCAccumulator{}
}

// Update folds raw bytes into the accumulator.
func (a *CRCAccumulator) Update(buf []byte) {
	a.crc = crc32.Update(a.crc, crcTable, buf)
}

// UpdateUint32 folds v, encoded as a big-endian 32-bit word, into the
// accumulator.
func (a *CRCAccumulator) UpdateUint32(v uint32) {
	a.Update(PutUint32(v))
}

// Sum returns the CRC-32 accumulated so far.
func (a *CRCAccumulator) Sum() uint32 {
	return a.crc
}

// ArchiveCRC computes the archive-level CRC from a set of per-entry CRCs:
// sort them ascending, then feed each as a big-endian 32-bit word
// into a fresh accumulator. This makes the result independent of the
// iteration order of the archive's entry map.
func ArchiveCRC(entryCRCs []uint32) uint32 {
	sorted := append([]uint32(nil), entryCRCs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	acc := NewCRCAccumulator()
	for _, c := range sorted {
		acc.UpdateUint32(c)
	}
	return acc.Sum()
}
