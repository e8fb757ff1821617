// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package codec

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"

	"go.chromium.org/luci/common/errors"
)

// LZ4Codec implements Codec using github.com/pierrec/lz4/v4.
type LZ4Codec struct{}

// LZ4 is a ready-to-use LZ4Codec.
var LZ4 = LZ4Codec{}

func (LZ4Codec) Compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, errors.Annotate(err, "writing to lz4 stream").Err()
	}
	if err := w.Close(); err != nil {
		return nil, errors.Annotate(err, "closing lz4 stream").Err()
	}
	return buf.Bytes(), nil
}

func (LZ4Codec) Decompress(stored []byte, uncompressedSize int) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(stored))
	var buf bytes.Buffer
	buf.Grow(uncompressedSize)
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, errors.Annotate(err, "reading lz4 stream").Err()
	}
	return buf.Bytes(), nil
}
