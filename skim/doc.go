// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package skim implements the streaming TEVD engine: it opens an
// archive file, builds a handle-to-offset index by skimming past every
// entry's payload without reading it, and answers Fetch/Append/Delete/
// CreatePath by seeking directly to the bytes it needs. Mutations go
// through the temp-file commit protocol so a crash partway
// through never leaves the archive file in a state that can't be
// recovered by inspection alone.
//
// Unlike the archive package, a Skimmer never holds the whole archive in
// memory; it keeps only its index and reopens the file for each call,
// closing it on every exit path.
package skim
