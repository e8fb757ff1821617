// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"go.chromium.org/luci/common/errors"

	"github.com/minjaesong/TerranVirtualDisk/codec"
	"github.com/minjaesong/TerranVirtualDisk/tevdata"
)

// NewCompressedFile builds a KindCompressedFile entry by running raw
// through the given codec. The core archive format never compresses or
// decompresses payloads itself; this is a convenience for callers who
// already have a codec.Codec in hand.
func NewCompressedFile(c codec.Codec, handle, parent int32, name []byte, raw []byte) (*tevdata.Entry, error) {
	stored, err := c.Compress(raw)
	if err != nil {
		return nil, errors.Annotate(err, "compressing payload for entry %d", handle).Err()
	}
	return &tevdata.Entry{
		Handle:           handle,
		Parent:           parent,
		Kind:             tevdata.KindCompressedFile,
		Name:             append([]byte(nil), name...),
		CompressedData:   stored,
		UncompressedSize: uint64(len(raw)),
	}, nil
}

// DecompressedPayload decompresses a KindCompressedFile entry's stored
// bytes back to the original payload using c. It returns an error if e
// isn't a compressed file entry, or if the decompressed length doesn't
// match the entry's recorded UncompressedSize.
func DecompressedPayload(c codec.Codec, e *tevdata.Entry) ([]byte, error) {
	if e.Kind != tevdata.KindCompressedFile {
		return nil, errors.Reason("entry %d is not a compressed file", e.Handle).Err()
	}
	raw, err := c.Decompress(e.CompressedData, int(e.UncompressedSize))
	if err != nil {
		return nil, errors.Annotate(err, "decompressing entry %d", e.Handle).Err()
	}
	if uint64(len(raw)) != e.UncompressedSize {
		return nil, errors.Reason("entry %d: decompressed %d bytes, header says %d", e.Handle, len(raw), e.UncompressedSize).Err()
	}
	return raw, nil
}
