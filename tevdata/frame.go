// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tevdata

import (
	"io"
)

// EntryFrame is the result of reading just enough of an entry to know its
// handle, kind, and how many more bytes belong to it, without
// materializing the payload. The skim package's index build and
// entryBlockSize are both built on this.
type EntryFrame struct {
	// Handle is the handle read from the frame. If IsSentinel is true,
	// Handle equals FooterSentinel and no other field is meaningful.
	Handle uint32

	IsSentinel bool

	Kind Kind

	// EntryCRC is the CRC-32 recorded in the entry's header. Skimming
	// callers use it to maintain the archive-level CRC without ever
	// materializing payloads.
	EntryCRC uint32

	// SkipBytes is the number of payload bytes remaining after the
	// kind-specific size prefix has already been consumed by
	// ReadEntryFrame. The caller is responsible for skipping (or
	// reading) exactly this many bytes before the next frame begins.
	SkipBytes int64

	// HeaderBytesRead is always 281 for a non-sentinel frame: the full
	// fixed header only. The kind-specific size prefix that ReadEntryFrame
	// also consumed is not counted here; callers add its length (6, 6, 2
	// or 0 bytes by kind) themselves. It's surfaced so callers computing
	// absolute offsets don't need to hardcode HeaderSize a second time.
	HeaderBytesRead int64
}

// ReadEntryFrame reads one entry's handle, and if it is not the footer
// sentinel, the rest of its fixed header plus the kind-specific size
// prefix, returning enough information for the caller to skip straight to
// the next frame.
func ReadEntryFrame(r io.Reader) (*EntryFrame, error) {
	handleBuf, err := readFull(r, 4)
	if err != nil {
		return nil, err
	}
	handle, _ := Uint32(handleBuf)
	if handle == FooterSentinel {
		return &EntryFrame{Handle: handle, IsSentinel: true}, nil
	}

	if _, err := readFull(r, 4); err != nil { // parent_handle
		return nil, err
	}
	kindBuf, err := readFull(r, 1)
	if err != nil {
		return nil, err
	}
	kind := Kind(kindBuf[0])

	// name(256) + created_at(6) + modified_at(6) + entry crc(4)
	rest, err := readFull(r, nameLen+6+6+4)
	if err != nil {
		return nil, err
	}
	entryCRC, _ := Uint32(rest[len(rest)-4:])

	frame := &EntryFrame{Handle: handle, Kind: kind, EntryCRC: entryCRC, HeaderBytesRead: HeaderSize}

	switch kind {
	case KindFile:
		lenBuf, err := readFull(r, 6)
		if err != nil {
			return nil, err
		}
		n, _ := Uint48(lenBuf)
		frame.SkipBytes = int64(n)

	case KindCompressedFile:
		storedLenBuf, err := readFull(r, 6)
		if err != nil {
			return nil, err
		}
		storedLen, _ := Uint48(storedLenBuf)
		frame.SkipBytes = int64(storedLen) + 6

	case KindDirectory:
		countBuf, err := readFull(r, 2)
		if err != nil {
			return nil, err
		}
		count, _ := Uint16(countBuf)
		frame.SkipBytes = int64(count) * 4

	case KindSymlink:
		frame.SkipBytes = 4

	default:
		return nil, &ErrUnknownEntryKind{Kind: byte(kind)}
	}

	return frame, nil
}
