// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package skim

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/minjaesong/TerranVirtualDisk/archive"
	"github.com/minjaesong/TerranVirtualDisk/tevdata"
)

func TestContainsAndRemoveHandle(t *testing.T) {
	t.Parallel()

	Convey("containsHandle finds a present handle and misses an absent one", t, func() {
		So(containsHandle([]int32{1, 2, 3}, 2), ShouldBeTrue)
		So(containsHandle([]int32{1, 2, 3}, 9), ShouldBeFalse)
		So(containsHandle(nil, 1), ShouldBeFalse)
	})

	Convey("removeHandle drops only the matching handle and preserves order", t, func() {
		So(removeHandle([]int32{1, 2, 3, 2}, 2), ShouldResemble, []int32{1, 3})
		So(removeHandle([]int32{1}, 9), ShouldResemble, []int32{1})
		So(len(removeHandle(nil, 1)), ShouldEqual, 0)
	})
}

func TestLinkIntoParents(t *testing.T) {
	t.Parallel()

	Convey("an entry whose parent is in the same batch gets linked without a fetch", t, func() {
		path := writeArchive(t, nil)
		s, err := Open(context.Background(), path)
		So(err, ShouldBeNil)

		dir := &tevdata.Entry{Handle: 10, Parent: RootHandle, Kind: tevdata.KindDirectory, Name: []byte("d"), Children: []int32{}}
		file := &tevdata.Entry{Handle: 11, Parent: 10, Kind: tevdata.KindFile, Name: []byte("f"), FileData: []byte("x")}

		out, err := s.linkIntoParents([]*tevdata.Entry{dir, file})
		So(err, ShouldBeNil)
		// dir, file, and the root (dir's own parent, fetched and folded in).
		So(len(out), ShouldEqual, 3)
		So(dir.Children, ShouldResemble, []int32{11})
	})

	Convey("an entry whose parent is not in the batch gets it fetched and appended to the result", t, func() {
		path := writeArchive(t, func(a *archive.Archive) {
			a.Insert(&tevdata.Entry{Handle: 5, Parent: archive.RootHandle, Kind: tevdata.KindDirectory, Name: []byte("existing"), Children: []int32{}})
			root := a.Get(archive.RootHandle)
			root.Children = append(root.Children, 5)
		})
		s, err := Open(context.Background(), path)
		So(err, ShouldBeNil)

		file := &tevdata.Entry{Handle: 20, Parent: 5, Kind: tevdata.KindFile, Name: []byte("f"), FileData: []byte("x")}

		out, err := s.linkIntoParents([]*tevdata.Entry{file})
		So(err, ShouldBeNil)
		So(len(out), ShouldEqual, 2)

		var fetchedParent *tevdata.Entry
		for _, e := range out {
			if e.Handle == 5 {
				fetchedParent = e
			}
		}
		So(fetchedParent, ShouldNotBeNil)
		So(fetchedParent.Children, ShouldResemble, []int32{20})
	})

	Convey("linking is idempotent when the child is already present", t, func() {
		path := writeArchive(t, nil)
		s, err := Open(context.Background(), path)
		So(err, ShouldBeNil)

		dir := &tevdata.Entry{Handle: 10, Parent: RootHandle, Kind: tevdata.KindDirectory, Name: []byte("d"), Children: []int32{11}}
		file := &tevdata.Entry{Handle: 11, Parent: 10, Kind: tevdata.KindFile, Name: []byte("f"), FileData: []byte("x")}

		_, err = s.linkIntoParents([]*tevdata.Entry{dir, file})
		So(err, ShouldBeNil)
		So(dir.Children, ShouldResemble, []int32{11})
	})

	Convey("the root entry itself is never linked into a parent", t, func() {
		path := writeArchive(t, nil)
		s, err := Open(context.Background(), path)
		So(err, ShouldBeNil)

		root := &tevdata.Entry{Handle: RootHandle, Parent: RootHandle, Kind: tevdata.KindDirectory, Name: nil, Children: []int32{}}
		out, err := s.linkIntoParents([]*tevdata.Entry{root})
		So(err, ShouldBeNil)
		So(len(out), ShouldEqual, 1)
	})
}
