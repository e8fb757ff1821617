// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/minjaesong/TerranVirtualDisk/tevdata"
)

type loadOptionData struct {
	strictCRC   bool
	concurrency int
}

// LoadOption functions can be supplied to Load to configure strictness and
// verification concurrency.
type LoadOption func(*loadOptionData)

// WithStrictCRC controls whether a CRC mismatch (per-entry or
// archive-level) aborts Load with an error, or is merely logged and
// tolerated. Defaults to true.
func WithStrictCRC(strict bool) LoadOption {
	return func(o *loadOptionData) { o.strictCRC = strict }
}

// WithConcurrency sets how many goroutines verify entry CRCs in parallel
// after the (necessarily sequential) entry stream has been parsed.
// Defaults to runtime.GOMAXPROCS(0).
func WithConcurrency(n int) LoadOption {
	return func(o *loadOptionData) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// Load performs a streaming parse of a whole archive's bytes: it
// reads the header, then repeatedly parses one entry until the footer
// sentinel is observed, then reads footer_bytes up to the EOF mark.
//
// Per-entry and archive-level CRCs are verified; see WithStrictCRC for how
// a mismatch is handled.
func Load(ctx context.Context, data []byte, opts ...LoadOption) (*Archive, error) {
	o := loadOptionData{
		strictCRC:   true,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(&o)
	}

	br := bytes.NewReader(data)
	header, err := tevdata.ReadHeader(br)
	if err != nil {
		return nil, errors.Annotate(err, "reading archive header").Err()
	}

	entries := map[int32]*tevdata.Entry{}
	var sentinelEnd int64 = -1

	for {
		pos, _ := br.Seek(0, io.SeekCurrent)

		peek := make([]byte, 4)
		if _, err := io.ReadFull(br, peek); err != nil {
			return nil, errors.Annotate(err, "scanning for footer sentinel").Err()
		}
		handle, _ := tevdata.Uint32(peek)
		if handle == tevdata.FooterSentinel {
			sentinelEnd = pos + 4
			break
		}

		if _, err := br.Seek(pos, io.SeekStart); err != nil {
			return nil, errors.Annotate(err, "rewinding to entry start").Err()
		}
		// strictCRC is always false here: CRC verification is deferred
		// to the concurrent pass below so a single corrupt entry
		// doesn't abort the otherwise-sequential parse before we've
		// even seen the whole entry stream.
		e, err := tevdata.DeserializeEntry(br, false)
		if err != nil {
			return nil, errors.Annotate(err, "parsing entry at offset %d", pos).Err()
		}
		entries[e.Handle] = e
	}

	footerBytes, err := tevdata.ReadFooterTrailer(br, sentinelEnd, int64(len(data)))
	if err != nil {
		return nil, errors.Annotate(err, "reading footer").Err()
	}

	if err := verifyCRCs(ctx, entries, header.ArchiveCRC, o); err != nil {
		return nil, err
	}

	return &Archive{
		Capacity:    header.Capacity,
		DiskName:    header.DiskName,
		FooterBytes: footerBytes,
		entries:     entries,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// verifyCRCs fans per-entry CRC recomputation out across o.concurrency
// goroutines, then checks the archive-level CRC once every entry's CRC is
// known good.
func verifyCRCs(ctx context.Context, entries map[int32]*tevdata.Entry, wantArchiveCRC uint32, o loadOptionData) error {
	handles := make([]int32, 0, len(entries))
	for h := range entries {
		handles = append(handles, h)
	}

	crcs := make([]uint32, len(handles))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i, h := range handles {
		i, h := i, h
		g.Go(func() error {
			e := entries[h]
			actual, err := e.CRC()
			if err != nil {
				return errors.Annotate(err, "computing crc for entry %d", h).Err()
			}
			crcs[i] = actual
			if actual != e.HeaderCRC32 {
				mismatch := &tevdata.ErrEntryCorrupt{Handle: h, Want: e.HeaderCRC32, Got: actual}
				if o.strictCRC {
					return mismatch
				}
				logging.Warningf(ctx, "tevd: tolerating corrupt entry: %s", mismatch)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	archiveCRC := tevdata.ArchiveCRC(crcs)
	if archiveCRC != wantArchiveCRC {
		mismatch := &tevdata.ErrArchiveCorrupt{Want: wantArchiveCRC, Got: archiveCRC}
		if o.strictCRC {
			return mismatch
		}
		logging.Warningf(ctx, "tevd: tolerating corrupt archive: %s", mismatch)
	}
	return nil
}
