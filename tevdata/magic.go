// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tevdata

import (
	"io"

	"go.chromium.org/luci/common/errors"
)

// Magic is the 4 byte signature at the start of every TEVD archive.
const Magic = "TEVd"

// Version is the spec version written into the archive header.
const Version byte = 0x03

// FooterSentinel terminates the entry stream and is never a valid handle.
const FooterSentinel uint32 = 0xFEFEFEFE

// EOFMark is the literal two bytes closing out every archive.
var EOFMark = [2]byte{0xFF, 0x19}

var magicBytes = []byte(Magic)

// WriteMagic writes the 4 byte "TEVd" signature to w.
func WriteMagic(w io.Writer) error {
	_, err := w.Write(magicBytes)
	return err
}

// ReadMagic reads and validates the 4 byte signature from r.
func ReadMagic(r io.Reader) error {
	buf := make([]byte, len(magicBytes))
	if _, err := io.ReadFull(r, buf); err != nil {
		return errors.Annotate(err, "reading magic").Err()
	}
	if string(buf) != Magic {
		return &ErrBadMagic{Got: append([]byte(nil), buf...)}
	}
	return nil
}

// ErrBadMagic is returned when an archive's header does not begin with the
// TEVD magic bytes.
type ErrBadMagic struct {
	Got []byte
}

func (e *ErrBadMagic) Error() string {
	return errors.Reason("bad magic: %q", string(e.Got)).Err().Error()
}
