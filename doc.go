// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package tevd implements TEVD, a single-file virtual-disk archive format
// that embeds a filesystem-like tree of files, directories, and symlinks,
// each addressed by a stable 32-bit handle rather than a path.
//
// Unlike tar or zip, TEVD has no central "index then data" split: every
// entry is self-describing and self-contained (header, name, timestamps,
// CRC, and payload back to back), terminated by a sentinel handle and a
// small footer. That makes it equally natural to load whole into memory
// (see the archive package) or to skim in place on disk, maintaining only
// a handle-to-offset index and touching the file itself just for the
// entries actually requested (see the skim package).
//
// It has a fairly basic format:
//   - 47 byte archive header: magic "TEVd", capacity, disk name, archive
//     CRC, spec version.
//   - entries, back to back, in any order. Each entry is a 281 byte header
//     (handle, parent handle, kind, name, timestamps, entry CRC) followed
//     by a kind-specific payload (file bytes, compressed-file bytes plus
//     an uncompressed-size field, a directory's child handle list, or a
//     symlink's target handle).
//   - a 4 byte sentinel (0xFEFEFEFE) marking the end of the entry stream,
//     a variable-length footer (its first byte holding flag bits, bit 0
//     being read-only), and a 2 byte EOF mark (0xFF 0x19).
//
// The archive-level CRC is the CRC-32 of the sorted sequence of per-entry
// CRCs, which makes it independent of entry iteration order: two archives
// holding the same entries always carry the same archive CRC regardless of
// how their entry maps happen to be ordered in memory.
//
// The core format does not compress payloads and does not interpret name
// bytes as any particular charset; both concerns are left to collaborators
// (see the codec and charset packages) driven through the interfaces this
// module exports.
package tevd
