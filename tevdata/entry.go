// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tevdata

import (
	"io"

	"go.chromium.org/luci/common/errors"
)

// Kind identifies an entry's payload shape.
type Kind byte

// The closed set of entry kinds TEVD understands.
const (
	KindFile           Kind = 0x01
	KindDirectory      Kind = 0x02
	KindSymlink        Kind = 0x03
	KindCompressedFile Kind = 0x11
)

// Valid reports whether k is one of the four kinds TEVD defines.
func (k Kind) Valid() bool {
	switch k {
	case KindFile, KindDirectory, KindSymlink, KindCompressedFile:
		return true
	}
	return false
}

// HeaderSize is the fixed size, in bytes, of every entry's header.
const HeaderSize = 281

const (
	offHandle    = 0
	offParent    = 4
	offKind      = 8
	offName      = 9
	nameLen      = 256
	offCreatedAt = offName + nameLen // 265
	offModified  = offCreatedAt + 6  // 271
	offCRC       = offModified + 6   // 277
)

// Entry is a single node in a TEVD archive: a file, compressed file,
// directory, or symlink. Exactly one field group below is populated,
// matching Kind.
type Entry struct {
	Handle     int32
	Parent     int32
	Kind       Kind
	Name       []byte // logical (unpadded) name, at most 256 bytes
	CreatedAt  uint64 // 48-bit seconds, epoch-agnostic
	ModifiedAt uint64 // 48-bit seconds, epoch-agnostic

	// FileData holds the payload for KindFile.
	FileData []byte

	// CompressedData and UncompressedSize hold the payload for
	// KindCompressedFile. The core stores CompressedData opaquely; it
	// never compresses or decompresses it.
	CompressedData   []byte
	UncompressedSize uint64

	// Children holds the ordered child handle list for KindDirectory.
	Children []int32

	// Target holds the symlink target handle for KindSymlink.
	Target int32

	// HeaderCRC32 is the CRC-32 value recorded in this entry's header the
	// last time it was parsed from disk (via DeserializeEntry) or
	// serialized (via Serialize). It is zero for an Entry built by hand
	// that has never been through either. Compare it against a fresh
	// CRC() call to detect whether the in-memory payload still matches
	// what was last written.
	HeaderCRC32 uint32
}

// HandleBits returns e.Handle reinterpreted as an unsigned 32-bit bit
// pattern, which is how handles should be compared against the reserved
// sentinel value.
func (e *Entry) HandleBits() uint32 {
	return uint32(e.Handle)
}

// payloadRegion serializes the kind-specific payload bytes (beginning with
// the size prefix, where one exists) that the entry CRC is computed over.
func (e *Entry) payloadRegion() ([]byte, error) {
	switch e.Kind {
	case KindFile:
		if uint64(len(e.FileData)) > MaxUint48 {
			return nil, &ErrPayloadTooLarge{Len: uint64(len(e.FileData))}
		}
		buf := make([]byte, 0, 6+len(e.FileData))
		buf = append(buf, PutUint48(uint64(len(e.FileData)))...)
		buf = append(buf, e.FileData...)
		return buf, nil

	case KindCompressedFile:
		if uint64(len(e.CompressedData)) > MaxUint48 {
			return nil, &ErrPayloadTooLarge{Len: uint64(len(e.CompressedData))}
		}
		buf := make([]byte, 0, 12+len(e.CompressedData))
		buf = append(buf, PutUint48(uint64(len(e.CompressedData)))...)
		buf = append(buf, PutUint48(e.UncompressedSize)...)
		buf = append(buf, e.CompressedData...)
		return buf, nil

	case KindDirectory:
		if len(e.Children) > MaxDirectoryChildren {
			return nil, &ErrDirectoryFull{Handle: e.Handle}
		}
		buf := make([]byte, 0, 2+4*len(e.Children))
		buf = append(buf, PutUint16(uint16(len(e.Children)))...)
		for _, c := range e.Children {
			buf = append(buf, PutUint32(uint32(c))...)
		}
		return buf, nil

	case KindSymlink:
		return PutUint32(uint32(e.Target)), nil
	}
	return nil, &ErrUnknownEntryKind{Kind: byte(e.Kind)}
}

// CRC computes the entry CRC: the CRC-32 of the serialized payload
// region alone, not including the header.
func (e *Entry) CRC() (uint32, error) {
	region, err := e.payloadRegion()
	if err != nil {
		return 0, err
	}
	return CRCOf(region), nil
}

// Serialize encodes the entry into its on-disk byte layout: the 281 byte
// header (its CRC field filled in from the freshly serialized payload
// region) followed by the kind-specific payload.
func (e *Entry) Serialize() ([]byte, error) {
	region, err := e.payloadRegion()
	if err != nil {
		return nil, errors.Annotate(err, "serializing entry %d", e.Handle).Err()
	}
	crc := CRCOf(region)
	e.HeaderCRC32 = crc

	out := make([]byte, 0, HeaderSize+len(region))
	out = append(out, PutUint32(uint32(e.Handle))...)
	out = append(out, PutUint32(uint32(e.Parent))...)
	out = append(out, byte(e.Kind))
	out = append(out, PadName(e.Name, nameLen)...)
	out = append(out, PutUint48(e.CreatedAt)...)
	out = append(out, PutUint48(e.ModifiedAt)...)
	out = append(out, PutUint32(crc)...)
	out = append(out, region...)
	return out, nil
}

// SerializedSize returns the exact byte length Serialize would produce,
// without allocating the payload region twice.
func (e *Entry) SerializedSize() (int64, error) {
	region, err := e.payloadRegion()
	if err != nil {
		return 0, err
	}
	return int64(HeaderSize + len(region)), nil
}

func readFull(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Annotate(err, "short read, wanted %d bytes", n).Err()
	}
	return buf, nil
}

// DeserializeEntry reads one full entry (header + payload) from r. If
// strictCRC is true and the recomputed payload CRC doesn't match the
// header's CRC field, an *ErrEntryCorrupt is returned alongside the
// (still fully parsed) entry; callers that want to tolerate corruption
// can inspect the error type and keep the entry anyway.
func DeserializeEntry(r io.Reader, strictCRC bool) (*Entry, error) {
	handleBuf, err := readFull(r, 4)
	if err != nil {
		return nil, err
	}
	parentBuf, err := readFull(r, 4)
	if err != nil {
		return nil, err
	}
	kindBuf, err := readFull(r, 1)
	if err != nil {
		return nil, err
	}
	nameBuf, err := readFull(r, nameLen)
	if err != nil {
		return nil, err
	}
	createdBuf, err := readFull(r, 6)
	if err != nil {
		return nil, err
	}
	modifiedBuf, err := readFull(r, 6)
	if err != nil {
		return nil, err
	}
	crcBuf, err := readFull(r, 4)
	if err != nil {
		return nil, err
	}

	handle, _ := Uint32(handleBuf)
	parent, _ := Uint32(parentBuf)
	kind := Kind(kindBuf[0])
	created, _ := Uint48(createdBuf)
	modified, _ := Uint48(modifiedBuf)
	headerCRC, _ := Uint32(crcBuf)

	e := &Entry{
		Handle:      int32(handle),
		Parent:      int32(parent),
		Kind:        kind,
		Name:        UnpadName(nameBuf),
		CreatedAt:   created,
		ModifiedAt:  modified,
		HeaderCRC32: headerCRC,
	}

	region, err := readPayloadRegion(r, kind)
	if err != nil {
		return nil, errors.Annotate(err, "reading payload for entry %d", e.Handle).Err()
	}
	if err := populatePayload(e, kind, region); err != nil {
		return nil, err
	}

	actualCRC := CRCOf(region)
	if actualCRC != headerCRC {
		corrupt := &ErrEntryCorrupt{Handle: e.Handle, Want: headerCRC, Got: actualCRC}
		if strictCRC {
			return e, corrupt
		}
	}
	return e, nil
}

// readPayloadRegion reads the kind-specific payload region (size prefix,
// where one exists, plus the payload bytes themselves) in full, so it can
// be fed straight into CRCOf and into populatePayload.
func readPayloadRegion(r io.Reader, kind Kind) ([]byte, error) {
	switch kind {
	case KindFile:
		lenBuf, err := readFull(r, 6)
		if err != nil {
			return nil, err
		}
		n, _ := Uint48(lenBuf)
		data, err := readFull(r, int(n))
		if err != nil {
			return nil, err
		}
		return append(lenBuf, data...), nil

	case KindCompressedFile:
		storedLenBuf, err := readFull(r, 6)
		if err != nil {
			return nil, err
		}
		uncompressedLenBuf, err := readFull(r, 6)
		if err != nil {
			return nil, err
		}
		storedLen, _ := Uint48(storedLenBuf)
		data, err := readFull(r, int(storedLen))
		if err != nil {
			return nil, err
		}
		region := append(storedLenBuf, uncompressedLenBuf...)
		return append(region, data...), nil

	case KindDirectory:
		countBuf, err := readFull(r, 2)
		if err != nil {
			return nil, err
		}
		count, _ := Uint16(countBuf)
		childBytes, err := readFull(r, int(count)*4)
		if err != nil {
			return nil, err
		}
		return append(countBuf, childBytes...), nil

	case KindSymlink:
		return readFull(r, 4)
	}
	return nil, &ErrUnknownEntryKind{Kind: byte(kind)}
}

// populatePayload decodes an already-read payload region into e's
// kind-specific fields.
func populatePayload(e *Entry, kind Kind, region []byte) error {
	switch kind {
	case KindFile:
		n, _ := Uint48(region[:6])
		e.FileData = append([]byte(nil), region[6:6+n]...)

	case KindCompressedFile:
		storedLen, _ := Uint48(region[:6])
		uncompressedLen, _ := Uint48(region[6:12])
		e.UncompressedSize = uncompressedLen
		e.CompressedData = append([]byte(nil), region[12:12+storedLen]...)

	case KindDirectory:
		count, _ := Uint16(region[:2])
		children := make([]int32, count)
		for i := 0; i < int(count); i++ {
			v, _ := Uint32(region[2+i*4 : 2+i*4+4])
			children[i] = int32(v)
		}
		e.Children = children

	case KindSymlink:
		v, _ := Uint32(region[:4])
		e.Target = int32(v)

	default:
		return &ErrUnknownEntryKind{Kind: byte(kind)}
	}
	return nil
}
