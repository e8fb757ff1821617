// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tevdata

import (
	"io"

	"go.chromium.org/luci/common/errors"
)

// HeaderSize47 is the fixed size of the archive header.
const HeaderSize47 = 47

// DiskNameSize is the fixed width of the disk_name header field.
const DiskNameSize = 32

// FooterFrameSize is the fixed portion of the footer framing: the 4 byte
// sentinel plus the 2 byte EOF mark, not counting the variable-length
// footer_bytes trailer in between.
const FooterFrameSize = 4 + 2

// ArchiveCRCOffset is the absolute offset of the archive CRC field within
// the 47 byte header: magic(4) + capacity(6) + disk_name(32).
const ArchiveCRCOffset = 4 + 6 + DiskNameSize

// Header is the archive-level header: everything before the first
// entry.
type Header struct {
	Capacity   uint64 // 48-bit byte count; 0 marks the archive read-only
	DiskName   []byte // logical (unpadded) name, at most 32 bytes
	ArchiveCRC uint32
	Version    byte
}

// WriteHeader serializes h, including the leading magic, to w.
func WriteHeader(w io.Writer, h Header) error {
	if err := WriteMagic(w); err != nil {
		return err
	}
	buf := make([]byte, 0, HeaderSize47-len(Magic))
	buf = append(buf, PutUint48(h.Capacity)...)
	buf = append(buf, PadName(h.DiskName, DiskNameSize)...)
	buf = append(buf, PutUint32(h.ArchiveCRC)...)
	buf = append(buf, h.Version)
	_, err := w.Write(buf)
	return err
}

// ReadHeader reads and validates the magic, then parses the remainder of
// the 47 byte archive header from r.
func ReadHeader(r io.Reader) (Header, error) {
	if err := ReadMagic(r); err != nil {
		return Header{}, err
	}
	capBuf, err := readFull(r, 6)
	if err != nil {
		return Header{}, errors.Annotate(err, "reading capacity").Err()
	}
	nameBuf, err := readFull(r, DiskNameSize)
	if err != nil {
		return Header{}, errors.Annotate(err, "reading disk name").Err()
	}
	crcBuf, err := readFull(r, 4)
	if err != nil {
		return Header{}, errors.Annotate(err, "reading archive crc").Err()
	}
	verBuf, err := readFull(r, 1)
	if err != nil {
		return Header{}, errors.Annotate(err, "reading spec version").Err()
	}

	capacity, _ := Uint48(capBuf)
	crc, _ := Uint32(crcBuf)

	return Header{
		Capacity:   capacity,
		DiskName:   UnpadName(nameBuf),
		ArchiveCRC: crc,
		Version:    verBuf[0],
	}, nil
}

// WriteFooter writes the footer sentinel, footerBytes, and the EOF mark to
// w.
func WriteFooter(w io.Writer, footerBytes []byte) error {
	if _, err := w.Write(PutUint32(FooterSentinel)); err != nil {
		return err
	}
	if _, err := w.Write(footerBytes); err != nil {
		return err
	}
	_, err := w.Write(EOFMark[:])
	return err
}

// ReadFooterTrailer reads the footer_bytes trailer and validates the EOF
// mark, given that the sentinel itself ends at absolute offset
// sentinelEnd and the archive is totalSize bytes long overall. Works for
// both the whole-buffer in-memory parse and the skimmer's on-disk parse,
// since both *bytes.Reader and *os.File satisfy io.ReaderAt.
func ReadFooterTrailer(r io.ReaderAt, sentinelEnd, totalSize int64) ([]byte, error) {
	if totalSize < sentinelEnd+2 {
		return nil, &ErrMalformedInput{Field: "footer", Want: int(sentinelEnd + 2 - totalSize), Got: 0}
	}
	footerLen := totalSize - sentinelEnd - 2
	footerBytes := make([]byte, footerLen)
	if footerLen > 0 {
		if _, err := r.ReadAt(footerBytes, sentinelEnd); err != nil {
			return nil, errors.Annotate(err, "reading footer bytes").Err()
		}
	}
	eofBuf := make([]byte, 2)
	if _, err := r.ReadAt(eofBuf, totalSize-2); err != nil {
		return nil, errors.Annotate(err, "reading EOF mark").Err()
	}
	if eofBuf[0] != EOFMark[0] || eofBuf[1] != EOFMark[1] {
		return nil, &ErrMalformedInput{Field: "EOF mark", Want: int(EOFMark[0])<<8 | int(EOFMark[1]), Got: int(eofBuf[0])<<8 | int(eofBuf[1])}
	}
	return footerBytes, nil
}

// ReadOnly reports whether the footer's flag byte marks the archive
// read-only. This bit is only meaningful when capacity > 0; a
// capacity of 0 forces read-only regardless of this bit, which callers in
// the archive/skim packages handle separately.
func ReadOnly(footerBytes []byte) bool {
	return len(footerBytes) > 0 && footerBytes[0]&1 != 0
}

// SetReadOnly sets or clears bit 0 of the footer's flag byte, leaving the
// remaining bits and the rest of footerBytes untouched. footerBytes is
// grown to at least 1 byte if necessary.
func SetReadOnly(footerBytes []byte, readOnly bool) []byte {
	out := footerBytes
	if len(out) == 0 {
		out = make([]byte, 1)
	} else {
		out = append([]byte(nil), out...)
	}
	if readOnly {
		out[0] |= 1
	} else {
		out[0] &^= 1
	}
	return out
}
