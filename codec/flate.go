// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package codec

import (
	"bytes"
	"compress/flate"
	"io"

	"go.chromium.org/luci/common/errors"
)

// FlateCodec implements Codec using compress/flate.
type FlateCodec struct {
	// Level is passed to flate.NewWriter unchanged, so zero selects
	// flate.NoCompression; Flate below uses flate.DefaultCompression.
	Level int
}

// Flate is a ready-to-use FlateCodec at the default compression level.
var Flate = FlateCodec{Level: flate.DefaultCompression}

func (c FlateCodec) Compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, c.Level)
	if err != nil {
		return nil, errors.Annotate(err, "opening flate writer").Err()
	}
	if _, err := w.Write(raw); err != nil {
		return nil, errors.Annotate(err, "writing to flate stream").Err()
	}
	if err := w.Close(); err != nil {
		return nil, errors.Annotate(err, "closing flate stream").Err()
	}
	return buf.Bytes(), nil
}

func (c FlateCodec) Decompress(stored []byte, uncompressedSize int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(stored))
	defer r.Close()
	out := make([]byte, 0, uncompressedSize)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, errors.Annotate(err, "reading flate stream").Err()
	}
	return buf.Bytes(), nil
}
