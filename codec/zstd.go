// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package codec

import (
	"github.com/klauspost/compress/zstd"

	"go.chromium.org/luci/common/errors"
)

// ZstdCodec implements Codec using github.com/klauspost/compress/zstd.
type ZstdCodec struct{}

// Zstd is a ready-to-use ZstdCodec.
var Zstd = ZstdCodec{}

func (ZstdCodec) Compress(raw []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errors.Annotate(err, "opening zstd encoder").Err()
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

func (ZstdCodec) Decompress(stored []byte, uncompressedSize int) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Annotate(err, "opening zstd decoder").Err()
	}
	defer dec.Close()
	out := make([]byte, 0, uncompressedSize)
	raw, err := dec.DecodeAll(stored, out)
	if err != nil {
		return nil, errors.Annotate(err, "decoding zstd stream").Err()
	}
	return raw, nil
}
