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

// Append writes entries to the end of the entry stream in one temp-file
// pass: it copies the unchanged prefix [0, footerPosition)
// verbatim, writes each entry's serialized bytes while recording the
// offset it lands at, then rewrites the footer, and commits via the
// temp-file rename protocol.
//
// If an entry's handle is already indexed, the new offset silently
// supersedes the old one; the previous bytes become unreferenced and are
// reclaimed only by a future rewrite (such as Delete or FixChildCounts).
func (s *Skimmer) Append(ctx context.Context, entries []*tevdata.Entry) error {
	if s.ReadOnly() {
		return errors.Reason("archive %q is read-only", s.path).Err()
	}
	if len(entries) == 0 {
		return nil
	}

	entries, err := s.linkIntoParents(entries)
	if err != nil {
		return errors.Annotate(err, "linking new entries into their parent directories").Err()
	}

	tmp := tmpPath(s.path)
	newCRC, err := s.writeAppendTempFile(tmp, entries)
	if err != nil {
		return errors.Annotate(err, "writing append temp file").Err()
	}

	newOffsets := make(map[int32]int64, len(entries))
	pos := s.footerPosition
	for _, e := range entries {
		size, err := e.SerializedSize()
		if err != nil {
			return errors.Annotate(err, "sizing entry %d", e.Handle).Err()
		}
		newOffsets[e.Handle] = pos
		pos += size
	}

	if err := commitReplace(ctx, s.path, tmp, nil); err != nil {
		return err
	}

	for h, off := range newOffsets {
		s.entryToOffset[h] = off
	}
	for _, e := range entries {
		s.entryCRCs[e.Handle] = e.HeaderCRC32
	}
	s.header.ArchiveCRC = newCRC
	s.footerPosition = pos

	return nil
}

// writeAppendTempFile writes the appended state into tmp and returns the
// archive-level CRC it patched into the copied header, reflecting the new
// entry set.
func (s *Skimmer) writeAppendTempFile(tmp string, entries []*tevdata.Entry) (uint32, error) {
	src, err := os.Open(s.path)
	if err != nil {
		return 0, errors.Annotate(err, "opening %q", s.path).Err()
	}
	defer src.Close()

	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, errors.Annotate(err, "creating %q", tmp).Err()
	}

	if _, err := io.CopyN(out, src, s.footerPosition); err != nil {
		out.Close()
		return 0, errors.Annotate(err, "copying unchanged prefix").Err()
	}

	for _, e := range entries {
		b, err := e.Serialize()
		if err != nil {
			out.Close()
			return 0, errors.Annotate(err, "serializing entry %d", e.Handle).Err()
		}
		if _, err := out.Write(b); err != nil {
			out.Close()
			return 0, errors.Annotate(err, "writing entry %d", e.Handle).Err()
		}
	}

	if err := tevdata.WriteFooter(out, s.footerBytes); err != nil {
		out.Close()
		return 0, errors.Annotate(err, "writing footer").Err()
	}

	// The prefix copy carried the old archive CRC along; patch the header
	// field so the committed file's CRC covers the appended entries too.
	newCRCs := make(map[int32]uint32, len(s.entryCRCs)+len(entries))
	for h, c := range s.entryCRCs {
		newCRCs[h] = c
	}
	for _, e := range entries {
		newCRCs[e.Handle] = e.HeaderCRC32
	}
	newCRC := archiveCRCOf(newCRCs)
	if _, err := out.WriteAt(tevdata.PutUint32(newCRC), tevdata.ArchiveCRCOffset); err != nil {
		out.Close()
		return 0, errors.Annotate(err, "patching archive crc").Err()
	}

	return newCRC, out.Close()
}
