// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package skim

import (
	"io"
	"os"

	"go.chromium.org/luci/common/errors"

	"github.com/minjaesong/TerranVirtualDisk/tevdata"
)

// kindSizePrefixLen is the number of payload-region bytes ReadEntryFrame
// consumes as a size prefix before SkipBytes begins, per kind. It
// is needed to reconstruct a full serialized entry length from a frame,
// since SkipBytes alone only covers what's left after the prefix.
var kindSizePrefixLen = map[tevdata.Kind]int64{
	tevdata.KindFile:           6,
	tevdata.KindCompressedFile: 6,
	tevdata.KindDirectory:      2,
	tevdata.KindSymlink:        0,
}

// entryBlockSize returns the exact number of bytes handle's serialized
// entry occupies, header included, along with
// its kind, without reading the payload itself.
func (s *Skimmer) entryBlockSize(handle int32) (size int64, kind tevdata.Kind, ok bool, err error) {
	off, present := s.entryToOffset[handle]
	if !present {
		return 0, 0, false, nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return 0, 0, false, errors.Annotate(err, "opening %q", s.path).Err()
	}
	defer f.Close()

	if _, err := f.Seek(off, io.SeekStart); err != nil {
		return 0, 0, false, errors.Annotate(err, "seeking to entry %d", handle).Err()
	}

	frame, err := tevdata.ReadEntryFrame(f)
	if err != nil {
		return 0, 0, false, errors.Annotate(err, "reading frame for entry %d", handle).Err()
	}
	if frame.IsSentinel {
		return 0, 0, false, errors.Reason("offset for handle %d pointed at the footer sentinel", handle).Err()
	}

	prefix, known := kindSizePrefixLen[frame.Kind]
	if !known {
		return 0, 0, false, &tevdata.ErrUnknownEntryKind{Kind: byte(frame.Kind)}
	}

	return frame.HeaderBytesRead + prefix + frame.SkipBytes, frame.Kind, true, nil
}
