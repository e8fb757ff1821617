// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package skim

import (
	"context"
	"io"
	"os"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
)

// The fixed filename suffixes commit uses for its working siblings.
const (
	suffixOld  = "_old"
	suffixTmp  = "_tmp"
	suffixTmp2 = "_tmp2"
)

func oldPath(path string) string  { return path + suffixOld }
func tmpPath(path string) string  { return path + suffixTmp }
func tmp2Path(path string) string { return path + suffixTmp2 }

// commitReplace executes the five-step commit protocol over a
// freshly written tmpFile representing the desired next state for path.
// repair, if non-nil, computes tmp2 from tmpFile (a repair pass); when nil,
// tmp2 is simply tmpFile itself, per "if no repair is needed, tmp_file2
// equals tmp_file."
func commitReplace(ctx context.Context, path, tmp string, repair func(tmp, tmp2 string) error) (err error) {
	old := oldPath(path)
	tmp2 := tmp

	if repair != nil {
		tmp2 = tmp2Path(path)
		if err := repair(tmp, tmp2); err != nil {
			return errors.Annotate(err, "running repair pass").Err()
		}
	}

	if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
		return &ErrCommitFailed{Step: "remove stale old", Err: err}
	}

	if err := os.Rename(path, old); err != nil {
		return &ErrCommitFailed{Step: "rename current to old", Err: err}
	}

	if err := copyFile(tmp2, path); err != nil {
		if rerr := os.Rename(old, path); rerr != nil {
			logging.Warningf(ctx, "skim: commit rollback also failed: %v (original error: %v)", rerr, err)
		}
		return &ErrCommitFailed{Step: "copy tmp2 to current", Err: err}
	}

	if tmp2 != tmp {
		if err := os.Remove(tmp2); err != nil && !os.IsNotExist(err) {
			logging.Warningf(ctx, "skim: failed to remove %q after commit: %v", tmp2, err)
		}
	}
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		logging.Warningf(ctx, "skim: failed to remove %q after commit: %v", tmp, err)
	}

	return nil
}

// copyFile copies src to dst, creating or truncating dst. An explicit
// copy is used here rather than os.Rename so the commit still works when
// tmp2 and the destination live on different filesystems.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Annotate(err, "opening %q", src).Err()
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Annotate(err, "creating %q", dst).Err()
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Annotate(err, "copying %q to %q", src, dst).Err()
	}
	return out.Close()
}
