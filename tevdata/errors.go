// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tevdata

import (
	"go.chromium.org/luci/common/errors"
)

// ErrMalformedInput is returned when a buffer is too short to contain the
// field being decoded.
type ErrMalformedInput struct {
	Field string
	Want  int
	Got   int
}

func (e *ErrMalformedInput) Error() string {
	return errors.Reason("malformed input: %s wants %d bytes, got %d", e.Field, e.Want, e.Got).Err().Error()
}

// ErrArchiveCorrupt is returned when the archive-level CRC does not match
// the CRC recomputed from the entries actually present.
type ErrArchiveCorrupt struct {
	Want uint32
	Got  uint32
}

func (e *ErrArchiveCorrupt) Error() string {
	return errors.Reason("archive corrupt: header crc 0x%08x != computed 0x%08x", e.Want, e.Got).Err().Error()
}

// ErrEntryCorrupt is returned when a single entry's CRC does not match its
// serialized payload.
type ErrEntryCorrupt struct {
	Handle int32
	Want   uint32
	Got    uint32
}

func (e *ErrEntryCorrupt) Error() string {
	return errors.Reason("entry %d corrupt: header crc 0x%08x != computed 0x%08x", e.Handle, e.Want, e.Got).Err().Error()
}

// ErrUnknownEntryKind is returned when an entry's kind byte is outside the
// closed set {FILE, DIRECTORY, SYMLINK, COMPRESSED_FILE}.
type ErrUnknownEntryKind struct {
	Kind byte
}

func (e *ErrUnknownEntryKind) Error() string {
	return errors.Reason("unknown entry kind 0x%02x", e.Kind).Err().Error()
}

// ErrDirectoryFull is returned when a directory's child count would exceed
// the 16-bit child count field's range.
type ErrDirectoryFull struct {
	Handle int32
}

func (e *ErrDirectoryFull) Error() string {
	return errors.Reason("directory %d is full (65535 children)", e.Handle).Err().Error()
}

// ErrPayloadTooLarge is returned when a payload length would overflow the
// 48-bit length field.
type ErrPayloadTooLarge struct {
	Len uint64
}

func (e *ErrPayloadTooLarge) Error() string {
	return errors.Reason("payload of %d bytes exceeds 2^48-1", e.Len).Err().Error()
}

// MaxUint48 is the largest value representable in a 48-bit field.
const MaxUint48 = (uint64(1) << 48) - 1

// MaxDirectoryChildren is the largest number of children a directory's
// 16-bit count field can represent.
const MaxDirectoryChildren = 65535
