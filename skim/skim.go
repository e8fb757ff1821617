// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package skim

import (
	"context"
	"io"
	"math/rand"
	"os"
	"time"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/minjaesong/TerranVirtualDisk/charset"
	"github.com/minjaesong/TerranVirtualDisk/tevdata"
)

// RootHandle is the handle permanently reserved for the root directory.
const RootHandle int32 = 0

type openOptionData struct {
	verifyOnFetch bool
	charset       charset.Decoder
}

// OpenOption functions can be supplied to Open to configure optional
// verification and display behavior.
type OpenOption func(*openOptionData)

// WithVerifyOnFetch controls whether Fetch recomputes and checks an
// entry's CRC before returning it.
// Defaults to true.
func WithVerifyOnFetch(verify bool) OpenOption {
	return func(o *openOptionData) { o.verifyOnFetch = verify }
}

// WithCharset supplies the decoder DisplayName renders name bytes with.
// Defaults to charset.UTF8.
func WithCharset(d charset.Decoder) OpenOption {
	return func(o *openOptionData) { o.charset = d }
}

// Skimmer opens a TEVD archive file and maintains a handle-to-offset index
// over it, without ever holding the whole file in memory.
//
// A Skimmer is single-owner: one logical caller at a time. Multiple
// Skimmers may coexist over the same file for read-only use, but
// concurrent mutation through more than one is undefined.
type Skimmer struct {
	path string

	header      tevdata.Header
	footerBytes []byte

	entryToOffset  map[int32]int64
	entryCRCs      map[int32]uint32
	footerPosition int64

	opts openOptionData

	rng *rand.Rand
}

// Open builds a handle-to-offset index over the archive at path: it skips
// the 47 byte archive header, then repeatedly reads an entry's frame until
// the footer sentinel is observed.
func Open(ctx context.Context, path string, opts ...OpenOption) (*Skimmer, error) {
	o := openOptionData{
		verifyOnFetch: true,
		charset:       charset.UTF8,
	}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Annotate(err, "opening %q", path).Err()
	}
	defer f.Close()

	header, err := tevdata.ReadHeader(f)
	if err != nil {
		return nil, errors.Annotate(err, "reading archive header").Err()
	}

	entryToOffset := map[int32]int64{}
	entryCRCs := map[int32]uint32{}
	var footerPosition int64 = -1

	for {
		pos, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, errors.Annotate(err, "getting cursor position").Err()
		}

		frame, err := tevdata.ReadEntryFrame(f)
		if err != nil {
			return nil, errors.Annotate(err, "indexing entry at offset %d", pos).Err()
		}
		if frame.IsSentinel {
			footerPosition = pos
			break
		}

		entryToOffset[int32(frame.Handle)] = pos
		entryCRCs[int32(frame.Handle)] = frame.EntryCRC
		if frame.SkipBytes > 0 {
			if _, err := f.Seek(frame.SkipBytes, io.SeekCurrent); err != nil {
				return nil, errors.Annotate(err, "skipping payload for entry at offset %d", pos).Err()
			}
		}
	}

	stat, err := f.Stat()
	if err != nil {
		return nil, errors.Annotate(err, "statting %q", path).Err()
	}
	footerBytes, err := tevdata.ReadFooterTrailer(f, footerPosition+4, stat.Size())
	if err != nil {
		return nil, errors.Annotate(err, "reading footer").Err()
	}

	logging.Debugf(ctx, "skim: indexed %d entries in %q", len(entryToOffset), path)

	return &Skimmer{
		path:           path,
		header:         header,
		footerBytes:    footerBytes,
		entryToOffset:  entryToOffset,
		entryCRCs:      entryCRCs,
		footerPosition: footerPosition,
		opts:           o,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Fetch looks up handle's offset and, if present, reopens the file, seeks
// to it, and returns the fully materialized entry. It returns (nil, nil)
// if no entry with that handle exists.
func (s *Skimmer) Fetch(handle int32) (*tevdata.Entry, error) {
	off, ok := s.entryToOffset[handle]
	if !ok {
		return nil, nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Annotate(err, "opening %q", s.path).Err()
	}
	defer f.Close()

	if _, err := f.Seek(off, io.SeekStart); err != nil {
		return nil, errors.Annotate(err, "seeking to entry %d", handle).Err()
	}

	e, err := tevdata.DeserializeEntry(f, s.opts.verifyOnFetch)
	if err != nil {
		return nil, errors.Annotate(err, "fetching entry %d", handle).Err()
	}
	return e, nil
}

// DisplayName decodes e's raw name bytes through the Skimmer's configured
// charset collaborator.
func (s *Skimmer) DisplayName(e *tevdata.Entry) (string, error) {
	return s.opts.charset.Decode(e.Name)
}

// ReadOnly reports whether the archive is read-only: capacity 0
// forces it regardless of the footer flag.
func (s *Skimmer) ReadOnly() bool {
	if s.header.Capacity == 0 {
		return true
	}
	return tevdata.ReadOnly(s.footerBytes)
}

// Handles returns every handle currently indexed, in unspecified order.
func (s *Skimmer) Handles() []int32 {
	out := make([]int32, 0, len(s.entryToOffset))
	for h := range s.entryToOffset {
		out = append(out, h)
	}
	return out
}

// archiveCRCOf folds a per-entry CRC map into the archive-level CRC.
func archiveCRCOf(crcs map[int32]uint32) uint32 {
	vals := make([]uint32, 0, len(crcs))
	for _, c := range crcs {
		vals = append(vals, c)
	}
	return tevdata.ArchiveCRC(vals)
}

// generateUniqueHandle draws a handle not already present in the index
// and not equal to the reserved sentinel.
func (s *Skimmer) generateUniqueHandle() int32 {
	for {
		h := int32(s.rng.Uint32())
		if uint32(h) == tevdata.FooterSentinel {
			continue
		}
		if _, exists := s.entryToOffset[h]; exists {
			continue
		}
		return h
	}
}
