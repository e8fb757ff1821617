// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package archive implements the in-memory TEVD engine: parsing a
// whole archive's bytes into an entry map, mutating that map directly, and
// re-serializing it. It is the engine of choice when an archive comfortably
// fits in memory; for archives you want to touch without loading in full,
// see the skim package, which shares tevdata's serialization routines so
// both engines produce byte-identical output for the same logical archive.
package archive
