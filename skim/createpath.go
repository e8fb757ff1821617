// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package skim

import (
	"bytes"
	"context"
	"strings"
	"time"

	"go.chromium.org/luci/common/errors"

	"github.com/minjaesong/TerranVirtualDisk/tevdata"
)

// splitPath breaks path on '/' or '\' and drops empty segments, so
// leading/trailing/doubled separators are tolerated.
func splitPath(path string) []string {
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' })
	return parts
}

// CreatePath walks path from the root, matching each segment against
// child names, and either replaces the file at the full path (when it
// already exists and overwrite is true) or extends the tree with a new
// directory chain terminating in a file entry carrying data. It returns
// the handle of the resulting file entry.
func (s *Skimmer) CreatePath(ctx context.Context, path string, data []byte, overwrite bool) (int32, error) {
	if s.ReadOnly() {
		return 0, errors.Reason("archive %q is read-only", s.path).Err()
	}

	segments := splitPath(path)
	if len(segments) == 0 {
		return 0, errors.Reason("path %q has no segments", path).Err()
	}

	parentHandle := RootHandle
	parent, err := s.Fetch(parentHandle)
	if err != nil {
		return 0, errors.Annotate(err, "fetching root").Err()
	}
	if parent == nil {
		return 0, errors.Reason("root entry is missing from the index").Err()
	}

	matched := 0
	var target *tevdata.Entry

	for i, seg := range segments {
		child, err := s.findChild(parent, seg)
		if err != nil {
			return 0, errors.Annotate(err, "walking path %q", path).Err()
		}
		if child == nil {
			break
		}
		if i == len(segments)-1 {
			target = child
			matched = i + 1
			break
		}
		if child.Kind != tevdata.KindDirectory {
			return 0, &ErrNotADirectory{Path: path, Handle: child.Handle}
		}
		parentHandle = child.Handle
		parent = child
		matched++
	}

	if target != nil {
		if !overwrite {
			return 0, &ErrAlreadyExists{Path: path}
		}
		return s.replacePath(ctx, parentHandle, target, data)
	}

	return s.extendPath(ctx, parentHandle, parent, segments[matched:], data)
}

// findChild returns the child of dir named seg, or nil if none matches.
func (s *Skimmer) findChild(dir *tevdata.Entry, seg string) (*tevdata.Entry, error) {
	want := []byte(seg)
	for _, h := range dir.Children {
		child, err := s.Fetch(h)
		if err != nil {
			return nil, errors.Annotate(err, "fetching child %d", h).Err()
		}
		if child == nil {
			continue // stale child reference; tolerate and keep looking
		}
		if bytes.Equal(child.Name, want) {
			return child, nil
		}
	}
	return nil, nil
}

// replacePath implements the "full path exists, overwrite" branch: delete
// the existing entry and append a fresh file entry in its place, reusing
// its handle and parent.
func (s *Skimmer) replacePath(ctx context.Context, parentHandle int32, target *tevdata.Entry, data []byte) (int32, error) {
	now := nowSeconds()
	replacement := &tevdata.Entry{
		Handle:     target.Handle,
		Parent:     parentHandle,
		Kind:       tevdata.KindFile,
		Name:       target.Name,
		FileData:   data,
		CreatedAt:  target.CreatedAt,
		ModifiedAt: now,
	}

	if err := s.Delete(ctx, []int32{target.Handle}); err != nil {
		return 0, errors.Annotate(err, "deleting prior entry %d", target.Handle).Err()
	}
	if err := s.Append(ctx, []*tevdata.Entry{replacement}); err != nil {
		return 0, errors.Annotate(err, "appending replacement entry %d", target.Handle).Err()
	}
	return target.Handle, nil
}

// extendPath implements the missing-suffix branch: it builds a chain of
// new directory entries from the append point outward, terminating in a
// file entry, links each directory's Children to the next handle in the
// chain, and commits the whole chain (plus the updated append-point
// entry) in a single Append call.
func (s *Skimmer) extendPath(ctx context.Context, appendPointHandle int32, appendPoint *tevdata.Entry, missing []string, data []byte) (int32, error) {
	now := nowSeconds()

	dirCount := len(missing) - 1
	handles := make([]int32, len(missing))
	for i := range handles {
		handles[i] = s.generateUniqueHandle()
	}
	fileHandle := handles[len(handles)-1]

	updatedAppendPoint := *appendPoint
	updatedAppendPoint.Children = append(append([]int32(nil), appendPoint.Children...), handles[0])

	newEntries := make([]*tevdata.Entry, 0, len(missing)+1)
	newEntries = append(newEntries, &updatedAppendPoint)

	parentHandle := appendPointHandle
	for i := 0; i < dirCount; i++ {
		dir := &tevdata.Entry{
			Handle:     handles[i],
			Parent:     parentHandle,
			Kind:       tevdata.KindDirectory,
			Name:       []byte(missing[i]),
			Children:   []int32{handles[i+1]},
			CreatedAt:  now,
			ModifiedAt: now,
		}
		newEntries = append(newEntries, dir)
		parentHandle = handles[i]
	}

	file := &tevdata.Entry{
		Handle:     fileHandle,
		Parent:     parentHandle,
		Kind:       tevdata.KindFile,
		Name:       []byte(missing[len(missing)-1]),
		FileData:   data,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	newEntries = append(newEntries, file)

	if err := s.Append(ctx, newEntries); err != nil {
		return 0, errors.Annotate(err, "appending new path chain").Err()
	}
	return fileHandle, nil
}

func nowSeconds() uint64 {
	return uint64(time.Now().Unix()) & tevdata.MaxUint48
}
