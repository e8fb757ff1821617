// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package skim

import (
	"context"
	"os"
	"sort"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/minjaesong/TerranVirtualDisk/tevdata"
)

// FixChildCounts is the legacy repair pass: archives
// produced by implementations that did not maintain directory child lists
// transactionally during append/delete/create_path can end up with
// directory entries whose Children list disagrees with the actual
// parent-handle census. This rewrites every directory's Children list
// from that census, via a whole-file rewrite.
//
// This is kept only as a compatibility tool. The append, delete, and
// CreatePath operations in this package maintain child lists correctly
// as they go, so a correctly-produced archive never needs this pass.
// It rewrites each directory's full Children list rather than patching
// the 2-byte count field in place; patching the count alone without
// resizing the trailing child array would desynchronize every offset
// after it.
func (s *Skimmer) FixChildCounts(ctx context.Context) error {
	if s.ReadOnly() {
		return errors.Reason("archive %q is read-only", s.path).Err()
	}

	handles := make([]int32, 0, len(s.entryToOffset))
	for h := range s.entryToOffset {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	entries := make(map[int32]*tevdata.Entry, len(handles))
	for _, h := range handles {
		e, err := s.Fetch(h)
		if err != nil {
			logging.Warningf(ctx, "skim: tolerating corrupt entry %d during child-count repair: %v", h, err)
		}
		if e == nil {
			continue
		}
		entries[h] = e
	}

	census := make(map[int32][]int32, len(entries))
	for _, h := range handles {
		e, ok := entries[h]
		if !ok || h == RootHandle {
			continue
		}
		census[e.Parent] = append(census[e.Parent], h)
	}
	for parent, children := range census {
		sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })
		census[parent] = children
	}

	for _, h := range handles {
		e, ok := entries[h]
		if !ok || e.Kind != tevdata.KindDirectory {
			continue
		}
		e.Children = census[h]
	}

	tmp := tmpPath(s.path)
	st, err := s.writeFixedTempFile(tmp, handles, entries)
	if err != nil {
		return errors.Annotate(err, "writing repaired temp file").Err()
	}

	if err := commitReplace(ctx, s.path, tmp, nil); err != nil {
		return err
	}

	s.entryToOffset = st.offsets
	s.entryCRCs = st.crcs
	s.header.ArchiveCRC = st.archiveCRC
	s.footerPosition = st.footerPosition

	return nil
}

func (s *Skimmer) writeFixedTempFile(tmp string, handles []int32, entries map[int32]*tevdata.Entry) (*rewriteState, error) {
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Annotate(err, "creating %q", tmp).Err()
	}

	fail := func(err error, reason string) (*rewriteState, error) {
		out.Close()
		return nil, errors.Annotate(err, "%s", reason).Err()
	}

	if err := tevdata.WriteHeader(out, s.header); err != nil {
		return fail(err, "writing header")
	}

	newOffsets := make(map[int32]int64, len(handles))
	newCRCs := make(map[int32]uint32, len(handles))
	pos := int64(tevdata.HeaderSize47)

	write := func(h int32) error {
		e, ok := entries[h]
		if !ok {
			return nil
		}
		b, err := e.Serialize()
		if err != nil {
			return errors.Annotate(err, "serializing entry %d", h).Err()
		}
		if _, err := out.Write(b); err != nil {
			return err
		}
		newOffsets[h] = pos
		newCRCs[h] = e.HeaderCRC32
		pos += int64(len(b))
		return nil
	}

	if err := write(RootHandle); err != nil {
		return fail(err, "writing root entry")
	}
	for _, h := range handles {
		if h == RootHandle {
			continue
		}
		if err := write(h); err != nil {
			return fail(err, "writing entry")
		}
	}

	footerPosition := pos
	if err := tevdata.WriteFooter(out, s.footerBytes); err != nil {
		return fail(err, "writing footer")
	}

	archiveCRC := archiveCRCOf(newCRCs)
	if _, err := out.WriteAt(tevdata.PutUint32(archiveCRC), tevdata.ArchiveCRCOffset); err != nil {
		return fail(err, "patching archive crc")
	}

	if err := out.Close(); err != nil {
		return nil, errors.Annotate(err, "closing %q", tmp).Err()
	}

	return &rewriteState{
		offsets:        newOffsets,
		crcs:           newCRCs,
		archiveCRC:     archiveCRC,
		footerPosition: footerPosition,
	}, nil
}
