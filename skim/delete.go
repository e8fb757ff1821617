// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package skim

import (
	"context"
	"io"
	"os"

	"go.chromium.org/luci/common/errors"

	"github.com/minjaesong/TerranVirtualDisk/tevdata"
)

// Delete rewrites the archive omitting the given handles: the header is
// written first (its archive CRC recomputed over the survivors), then the
// root entry at its new offset, then every other surviving entry in index
// order, and finally the buffered footer. Deleting the root handle is
// refused.
func (s *Skimmer) Delete(ctx context.Context, handles []int32) error {
	if s.ReadOnly() {
		return errors.Reason("archive %q is read-only", s.path).Err()
	}

	toDelete := make(map[int32]bool, len(handles))
	affectedParents := make(map[int32]bool, len(handles))
	for _, h := range handles {
		if h == RootHandle {
			return errors.Reason("cannot delete the root entry").Err()
		}
		toDelete[h] = true

		e, err := s.Fetch(h)
		if err != nil {
			return errors.Annotate(err, "fetching entry %d before delete", h).Err()
		}
		if e != nil {
			affectedParents[e.Parent] = true
		}
	}

	tmp := tmpPath(s.path)
	st, err := s.writeDeleteTempFile(tmp, toDelete, affectedParents)
	if err != nil {
		return errors.Annotate(err, "writing delete temp file").Err()
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

// rewriteState is the index state writeDeleteTempFile accumulates for the
// surviving entries, applied to the Skimmer only after a successful commit.
type rewriteState struct {
	offsets        map[int32]int64
	crcs           map[int32]uint32
	archiveCRC     uint32
	footerPosition int64
}

func (s *Skimmer) writeDeleteTempFile(tmp string, toDelete, affectedParents map[int32]bool) (*rewriteState, error) {
	src, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Annotate(err, "opening %q", s.path).Err()
	}
	defer src.Close()

	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Annotate(err, "creating %q", tmp).Err()
	}

	failf := func(err error, reason string) (*rewriteState, error) {
		out.Close()
		return nil, errors.Annotate(err, "%s", reason).Err()
	}

	if err := tevdata.WriteHeader(out, s.header); err != nil {
		return failf(err, "writing header")
	}

	newOffsets := make(map[int32]int64, len(s.entryToOffset))
	newCRCs := make(map[int32]uint32, len(s.entryCRCs))
	pos := int64(tevdata.HeaderSize47)

	writeSurvivor := func(handle int32) error {
		size, kind, ok, err := s.entryBlockSize(handle)
		if err != nil {
			return errors.Annotate(err, "sizing entry %d", handle).Err()
		}
		if !ok {
			return errors.Reason("entry %d vanished from the index", handle).Err()
		}

		// Directories whose children set lost a member get re-serialized
		// with a filtered Children list, maintaining the invariant
		// transactionally instead of leaving it to a repair pass.
		if kind == tevdata.KindDirectory && affectedParents[handle] {
			e, err := s.Fetch(handle)
			if err != nil {
				return errors.Annotate(err, "fetching directory %d to repair its children", handle).Err()
			}
			for c := range toDelete {
				e.Children = removeHandle(e.Children, c)
			}

			b, err := e.Serialize()
			if err != nil {
				return errors.Annotate(err, "serializing repaired directory %d", handle).Err()
			}
			if _, err := out.Write(b); err != nil {
				return errors.Annotate(err, "writing repaired directory %d", handle).Err()
			}
			newOffsets[handle] = pos
			newCRCs[handle] = e.HeaderCRC32
			pos += int64(len(b))
			return nil
		}

		off := s.entryToOffset[handle]
		if _, err := src.Seek(off, io.SeekStart); err != nil {
			return errors.Annotate(err, "seeking to entry %d", handle).Err()
		}
		if _, err := io.CopyN(out, src, size); err != nil {
			return errors.Annotate(err, "copying entry %d", handle).Err()
		}
		newOffsets[handle] = pos
		newCRCs[handle] = s.entryCRCs[handle]
		pos += size
		return nil
	}

	if _, ok := s.entryToOffset[RootHandle]; ok {
		if err := writeSurvivor(RootHandle); err != nil {
			return failf(err, "writing root entry")
		}
	}

	for handle := range s.entryToOffset {
		if handle == RootHandle || toDelete[handle] {
			continue
		}
		if err := writeSurvivor(handle); err != nil {
			return failf(err, "writing surviving entry")
		}
	}

	footerPosition := pos
	if err := tevdata.WriteFooter(out, s.footerBytes); err != nil {
		return failf(err, "writing footer")
	}

	// Repaired directories changed their entry CRCs, so the archive CRC
	// written with the header above is stale; patch it in place.
	archiveCRC := archiveCRCOf(newCRCs)
	if _, err := out.WriteAt(tevdata.PutUint32(archiveCRC), tevdata.ArchiveCRCOffset); err != nil {
		return failf(err, "patching archive crc")
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
