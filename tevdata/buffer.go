// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tevdata

import "go.chromium.org/luci/common/errors"

// Buffer is a contiguous byte container addressable by 64-bit indices. It
// is used as the append-only builder that accumulates an archive's
// serialized bytes before they're handed back to the caller as a []byte.
type Buffer struct {
	data   []byte
	cursor int64
}

// NewBuffer returns an empty Buffer pre-sized to hold capacity bytes
// without reallocating.
func NewBuffer(capacity int64) *Buffer {
	return &Buffer{data: make([]byte, 0, capacity)}
}

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int64 {
	return int64(len(b.data))
}

// Bytes returns the buffer's contents. The returned slice aliases the
// Buffer's storage; callers must not retain it across further writes.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// AppendByte appends a single byte at the cursor.
func (b *Buffer) AppendByte(c byte) {
	b.data = append(b.data, c)
	b.cursor++
}

// AppendBytes appends buf at the cursor.
func (b *Buffer) AppendBytes(buf []byte) {
	b.data = append(b.data, buf...)
	b.cursor += int64(len(buf))
}

// Write implements io.Writer by appending p at the cursor, so a Buffer can
// be passed anywhere tevdata's Write*-style encoders expect an io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	b.AppendBytes(p)
	return len(p), nil
}

// Append is a convenience wrapper accepting either a single byte or a byte
// slice through one dispatch-by-type entry point.
func (b *Buffer) Append(v interface{}) {
	switch x := v.(type) {
	case byte:
		b.AppendByte(x)
	case []byte:
		b.AppendBytes(x)
	default:
		panic(errors.Reason("Buffer.Append: unsupported type %T", v).Err())
	}
}

// IterateBytes visits every byte in order, stopping early if f returns
// false.
func (b *Buffer) IterateBytes(f func(i int64, c byte) bool) {
	for i, c := range b.data {
		if !f(int64(i), c) {
			return
		}
	}
}

// IterateWords32 visits consecutive 4-byte big-endian words. If the
// buffer's length isn't a multiple of 4, the trailing 1-3 bytes are
// silently ignored; the archive-level CRC relies on exactly this
// behavior when folding a sequence of already-4-byte-aligned CRC values.
func (b *Buffer) IterateWords32(f func(i int64, word uint32) bool) {
	n := int64(len(b.data)) / 4
	for i := int64(0); i < n; i++ {
		w, _ := Uint32(b.data[i*4 : i*4+4])
		if !f(i, w) {
			return
		}
	}
}

// ReadAt reads n bytes starting at the 64-bit offset off.
func (b *Buffer) ReadAt(off int64, n int64) ([]byte, error) {
	if off < 0 || n < 0 || off+n > int64(len(b.data)) {
		return nil, &ErrMalformedInput{Field: "Buffer.ReadAt", Want: int(n), Got: len(b.data) - int(off)}
	}
	return b.data[off : off+n], nil
}

// WriteAt overwrites n bytes starting at the 64-bit offset off with buf.
// The Buffer must already be large enough; WriteAt never grows it.
func (b *Buffer) WriteAt(off int64, buf []byte) error {
	if off < 0 || off+int64(len(buf)) > int64(len(b.data)) {
		return &ErrMalformedInput{Field: "Buffer.WriteAt", Want: len(buf), Got: len(b.data) - int(off)}
	}
	copy(b.data[off:], buf)
	return nil
}
