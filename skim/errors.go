// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package skim

import "go.chromium.org/luci/common/errors"

// ErrAlreadyExists is returned by CreatePath when the target path already
// exists and overwrite was false.
type ErrAlreadyExists struct {
	Path string
}

func (e *ErrAlreadyExists) Error() string {
	return errors.Reason("path %q already exists", e.Path).Err().Error()
}

// ErrNotADirectory is returned when a path traversal expects a directory
// but meets another kind.
type ErrNotADirectory struct {
	Path   string
	Handle int32
}

func (e *ErrNotADirectory) Error() string {
	return errors.Reason("path %q: entry %d is not a directory", e.Path, e.Handle).Err().Error()
}

// ErrCommitFailed is returned when the temp-file rename/copy sequence
// fails partway through. The archive is left recoverable: either the
// original survives under its `_old` name, or the commit finished and
// only cleanup was skipped. It is never left without either `current`
// or `old` present.
type ErrCommitFailed struct {
	Step string
	Err  error
}

func (e *ErrCommitFailed) Error() string {
	return errors.Annotate(e.Err, "commit failed at step %q", e.Step).Err().Error()
}

func (e *ErrCommitFailed) Unwrap() error { return e.Err }
