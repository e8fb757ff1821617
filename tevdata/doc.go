// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package tevdata implements the low-level byte encoding for the TEVD
// format: big-endian integer primitives, CRC-32 computation, the large
// append-only byte buffer used while building an archive, and the
// fixed-layout serialization of entries, archive headers, and footers.
//
// Everything in this package is pure encoding/decoding of byte slices; it
// knows nothing about files, temp-file commits, or in-memory entry maps.
// The archive and skim packages both build on top of it so that their
// output is bit-for-bit identical for the same logical archive.
package tevdata
