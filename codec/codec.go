// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package codec provides the compression collaborator that drives
// COMPRESSED_FILE payloads: the archive format stores them opaquely and
// never compresses or decompresses them itself. Callers building
// COMPRESSED_FILE entries pick a concrete Codec to do that work.
package codec

// Codec compresses and decompresses whole payloads in memory. TEVD entries
// are small enough in the common case that a single in-memory round trip
// is the natural shape; codecs that are naturally streaming (flate, zstd)
// just buffer internally.
type Codec interface {
	// Compress returns the compressed form of raw.
	Compress(raw []byte) ([]byte, error)

	// Decompress returns the decompressed form of stored. uncompressedSize
	// is a hint (taken from the entry's header field) that implementations
	// may use to pre-size their output buffer; it is not authoritative.
	Decompress(stored []byte, uncompressedSize int) ([]byte, error)
}
