// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"go.chromium.org/luci/common/errors"

	"github.com/minjaesong/TerranVirtualDisk/tevdata"
)

// Save re-serializes the archive: header, then every entry back to back in
// unspecified order, then the footer framing. The archive-level CRC
// is recomputed fresh from the current entries, so Save always reflects
// whatever mutations Insert/Remove have made since Load or New.
func (a *Archive) Save() ([]byte, error) {
	entryBytes := make([][]byte, 0, len(a.entries))
	crcs := make([]uint32, 0, len(a.entries))

	for _, e := range a.entries {
		b, err := e.Serialize()
		if err != nil {
			return nil, errors.Annotate(err, "serializing entry %d", e.Handle).Err()
		}
		entryBytes = append(entryBytes, b)
		crcs = append(crcs, e.HeaderCRC32)
	}

	size, err := a.UsedBytes()
	if err != nil {
		return nil, err
	}
	buf := tevdata.NewBuffer(size)

	header := tevdata.Header{
		Capacity:   a.Capacity,
		DiskName:   a.DiskName,
		ArchiveCRC: tevdata.ArchiveCRC(crcs),
		Version:    tevdata.Version,
	}

	if err := tevdata.WriteHeader(buf, header); err != nil {
		return nil, errors.Annotate(err, "writing archive header").Err()
	}

	for _, b := range entryBytes {
		buf.AppendBytes(b)
	}

	if err := tevdata.WriteFooter(buf, a.FooterBytes); err != nil {
		return nil, errors.Annotate(err, "writing footer").Err()
	}

	return buf.Bytes(), nil
}
