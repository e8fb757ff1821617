// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package skim

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	. "go.chromium.org/luci/common/testing/assertions"

	"github.com/minjaesong/TerranVirtualDisk/archive"
	"github.com/minjaesong/TerranVirtualDisk/tevdata"
)

// writeArchive builds a fresh archive via the in-memory engine (so the
// bytes are known-good) and writes it to a fresh file under t.TempDir().
func writeArchive(t *testing.T, build func(a *archive.Archive)) string {
	t.Helper()
	a := archive.New(1<<30, []byte("disk"))
	if build != nil {
		build(a)
	}
	data, err := a.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	path := filepath.Join(t.TempDir(), "test.tevd")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestOpenAndFetch(t *testing.T) {
	t.Parallel()

	Convey("Open indexes every entry and Fetch returns them", t, func() {
		path := writeArchive(t, func(a *archive.Archive) {
			a.Insert(&tevdata.Entry{
				Handle: 1, Parent: archive.RootHandle, Kind: tevdata.KindFile,
				Name: []byte("hello.txt"), FileData: []byte("contents"),
			})
			root := a.Get(archive.RootHandle)
			root.Children = append(root.Children, 1)
		})

		s, err := Open(context.Background(), path)
		So(err, ShouldBeNil)

		root, err := s.Fetch(RootHandle)
		So(err, ShouldBeNil)
		So(root.Children, ShouldResemble, []int32{1})

		f, err := s.Fetch(1)
		So(err, ShouldBeNil)
		So(f.FileData, ShouldResemble, []byte("contents"))

		Convey("absent handle returns (nil, nil)", func() {
			got, err := s.Fetch(12345)
			So(err, ShouldBeNil)
			So(got, ShouldBeNil)
		})

		Convey("DisplayName decodes through the configured charset", func() {
			name, err := s.DisplayName(f)
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "hello.txt")
		})
	})

	Convey("ReadOnly archives report ReadOnly true", t, func() {
		path := writeArchive(t, func(a *archive.Archive) {
			_ = a.SetReadOnly(true)
		})
		s, err := Open(context.Background(), path)
		So(err, ShouldBeNil)
		So(s.ReadOnly(), ShouldBeTrue)
	})
}

func TestIndexOffsets(t *testing.T) {
	t.Parallel()

	Convey("the first entry after the header is indexed at offset 47", t, func() {
		// Build the bytes by hand so the entry order is deterministic.
		file := &tevdata.Entry{Handle: 42, Parent: RootHandle, Kind: tevdata.KindFile, Name: []byte("readme"), FileData: []byte("hi")}
		root := &tevdata.Entry{Handle: RootHandle, Parent: RootHandle, Kind: tevdata.KindDirectory, Children: []int32{42}}

		fileBytes, err := file.Serialize()
		So(err, ShouldBeNil)
		rootBytes, err := root.Serialize()
		So(err, ShouldBeNil)

		buf := tevdata.NewBuffer(0)
		So(tevdata.WriteHeader(buf, tevdata.Header{
			Capacity:   1024,
			DiskName:   []byte("hello"),
			ArchiveCRC: tevdata.ArchiveCRC([]uint32{file.HeaderCRC32, root.HeaderCRC32}),
			Version:    tevdata.Version,
		}), ShouldBeNil)
		buf.AppendBytes(fileBytes)
		buf.AppendBytes(rootBytes)
		So(tevdata.WriteFooter(buf, []byte{0}), ShouldBeNil)

		path := filepath.Join(t.TempDir(), "test.tevd")
		So(os.WriteFile(path, buf.Bytes(), 0o644), ShouldBeNil)

		s, err := Open(context.Background(), path)
		So(err, ShouldBeNil)
		So(s.entryToOffset[42], ShouldEqual, int64(tevdata.HeaderSize47))
		So(s.entryToOffset[RootHandle], ShouldEqual, int64(tevdata.HeaderSize47+len(fileBytes)))

		got, err := s.Fetch(42)
		So(err, ShouldBeNil)
		So(got.Name, ShouldResemble, []byte("readme"))
		So(got.FileData, ShouldResemble, []byte("hi"))
	})
}

func TestAppendDelete(t *testing.T) {
	t.Parallel()

	Convey("Append adds a fetchable entry and Delete removes it", t, func() {
		path := writeArchive(t, nil)
		s, err := Open(context.Background(), path)
		So(err, ShouldBeNil)

		newEntry := &tevdata.Entry{
			Handle: 100, Parent: RootHandle, Kind: tevdata.KindFile,
			Name: []byte("new.txt"), FileData: []byte("data"),
		}
		So(s.Append(context.Background(), []*tevdata.Entry{newEntry}), ShouldBeNil)

		got, err := s.Fetch(100)
		So(err, ShouldBeNil)
		So(got.FileData, ShouldResemble, []byte("data"))

		Convey("re-opening the committed file sees the same entry", func() {
			s2, err := Open(context.Background(), path)
			So(err, ShouldBeNil)
			got, err := s2.Fetch(100)
			So(err, ShouldBeNil)
			So(got.FileData, ShouldResemble, []byte("data"))
		})

		Convey("Delete removes it", func() {
			So(s.Delete(context.Background(), []int32{100}), ShouldBeNil)
			got, err := s.Fetch(100)
			So(err, ShouldBeNil)
			So(got, ShouldBeNil)
		})

		Convey("Delete refuses to remove the root", func() {
			err := s.Delete(context.Background(), []int32{RootHandle})
			So(err, ShouldErrLike, "cannot delete the root")
		})
	})

	Convey("Delete unlinks the handle from its parent's Children transactionally", t, func() {
		path := writeArchive(t, nil)
		s, err := Open(context.Background(), path)
		So(err, ShouldBeNil)

		h, err := s.CreatePath(context.Background(), "linked.txt", []byte("v"), false)
		So(err, ShouldBeNil)

		root, err := s.Fetch(RootHandle)
		So(err, ShouldBeNil)
		So(root.Children, ShouldResemble, []int32{h})

		So(s.Delete(context.Background(), []int32{h}), ShouldBeNil)

		root, err = s.Fetch(RootHandle)
		So(err, ShouldBeNil)
		So(root.Children, ShouldResemble, []int32{})
	})

	Convey("Append transactionally links a new child into an existing parent", t, func() {
		path := writeArchive(t, nil)
		s, err := Open(context.Background(), path)
		So(err, ShouldBeNil)

		newFile := &tevdata.Entry{Handle: 77, Parent: RootHandle, Kind: tevdata.KindFile, Name: []byte("x"), FileData: []byte("y")}
		So(s.Append(context.Background(), []*tevdata.Entry{newFile}), ShouldBeNil)

		root, err := s.Fetch(RootHandle)
		So(err, ShouldBeNil)
		So(root.Children, ShouldResemble, []int32{77})
	})

	Convey("Append of a symlink leaves the targeted file untouched", t, func() {
		path := writeArchive(t, func(a *archive.Archive) {
			a.Insert(&tevdata.Entry{Handle: 42, Parent: archive.RootHandle, Kind: tevdata.KindFile, Name: []byte("readme"), FileData: []byte("hi")})
			root := a.Get(archive.RootHandle)
			root.Children = append(root.Children, 42)
		})
		s, err := Open(context.Background(), path)
		So(err, ShouldBeNil)

		link := &tevdata.Entry{Handle: 7, Parent: RootHandle, Kind: tevdata.KindSymlink, Name: []byte("latest"), Target: 42}
		So(s.Append(context.Background(), []*tevdata.Entry{link}), ShouldBeNil)

		s2, err := Open(context.Background(), path)
		So(err, ShouldBeNil)

		got, err := s2.Fetch(7)
		So(err, ShouldBeNil)
		So(got.Kind, ShouldEqual, tevdata.KindSymlink)
		So(got.Target, ShouldEqual, int32(42))

		file, err := s2.Fetch(42)
		So(err, ShouldBeNil)
		So(file.FileData, ShouldResemble, []byte("hi"))
	})

	Convey("a skimmer-mutated file still loads cleanly in the in-memory engine", t, func() {
		path := writeArchive(t, nil)
		s, err := Open(context.Background(), path)
		So(err, ShouldBeNil)

		h, err := s.CreatePath(context.Background(), "a/b/c.txt", []byte{0xAA}, false)
		So(err, ShouldBeNil)
		So(s.Delete(context.Background(), []int32{h}), ShouldBeNil)

		// Load verifies both per-entry and archive-level CRCs by default,
		// so this fails unless Append and Delete kept the header's archive
		// CRC in sync with the mutated entry set.
		data, err := os.ReadFile(path)
		So(err, ShouldBeNil)
		a, err := archive.Load(context.Background(), data)
		So(err, ShouldBeNil)
		So(a.Get(h), ShouldBeNil)
	})

	Convey("Append re-pointing an existing handle supersedes the old offset", t, func() {
		path := writeArchive(t, func(a *archive.Archive) {
			a.Insert(&tevdata.Entry{Handle: 5, Kind: tevdata.KindFile, Name: []byte("a"), FileData: []byte("old")})
		})
		s, err := Open(context.Background(), path)
		So(err, ShouldBeNil)

		updated := &tevdata.Entry{Handle: 5, Kind: tevdata.KindFile, Name: []byte("a"), FileData: []byte("new-and-longer")}
		So(s.Append(context.Background(), []*tevdata.Entry{updated}), ShouldBeNil)

		got, err := s.Fetch(5)
		So(err, ShouldBeNil)
		So(got.FileData, ShouldResemble, []byte("new-and-longer"))
	})
}

func TestCreatePath(t *testing.T) {
	t.Parallel()

	Convey("missing suffix builds a new directory chain", t, func() {
		path := writeArchive(t, nil)
		s, err := Open(context.Background(), path)
		So(err, ShouldBeNil)

		h, err := s.CreatePath(context.Background(), "a/b/c.txt", []byte("payload"), false)
		So(err, ShouldBeNil)

		file, err := s.Fetch(h)
		So(err, ShouldBeNil)
		So(file.FileData, ShouldResemble, []byte("payload"))
		So(file.Kind, ShouldEqual, tevdata.KindFile)

		root, err := s.Fetch(RootHandle)
		So(err, ShouldBeNil)
		So(len(root.Children), ShouldEqual, 1)

		dirA, err := s.Fetch(root.Children[0])
		So(err, ShouldBeNil)
		So(dirA.Kind, ShouldEqual, tevdata.KindDirectory)
		So(len(dirA.Children), ShouldEqual, 1)

		dirB, err := s.Fetch(dirA.Children[0])
		So(err, ShouldBeNil)
		So(dirB.Kind, ShouldEqual, tevdata.KindDirectory)
		So(dirB.Children, ShouldResemble, []int32{h})
	})

	Convey("existing path without overwrite fails", t, func() {
		path := writeArchive(t, func(a *archive.Archive) {
			a.Insert(&tevdata.Entry{Handle: 1, Parent: archive.RootHandle, Kind: tevdata.KindFile, Name: []byte("f.txt"), FileData: []byte("v1")})
			root := a.Get(archive.RootHandle)
			root.Children = append(root.Children, 1)
		})
		s, err := Open(context.Background(), path)
		So(err, ShouldBeNil)

		_, err = s.CreatePath(context.Background(), "f.txt", []byte("v2"), false)
		So(err, ShouldErrLike, "already exists")
	})

	Convey("existing path with overwrite replaces the payload", t, func() {
		path := writeArchive(t, func(a *archive.Archive) {
			a.Insert(&tevdata.Entry{Handle: 1, Parent: archive.RootHandle, Kind: tevdata.KindFile, Name: []byte("f.txt"), FileData: []byte("v1")})
			a.Insert(&tevdata.Entry{Handle: 2, Parent: archive.RootHandle, Kind: tevdata.KindFile, Name: []byte("sibling.txt"), FileData: []byte("untouched")})
			root := a.Get(archive.RootHandle)
			root.Children = append(root.Children, 1, 2)
		})
		s, err := Open(context.Background(), path)
		So(err, ShouldBeNil)

		h, err := s.CreatePath(context.Background(), "f.txt", []byte("v2"), true)
		So(err, ShouldBeNil)
		So(h, ShouldEqual, int32(1))

		got, err := s.Fetch(1)
		So(err, ShouldBeNil)
		So(got.FileData, ShouldResemble, []byte("v2"))

		Convey("the sibling entry copied through the unchanged prefix still fetches correctly", func() {
			sibling, err := s.Fetch(2)
			So(err, ShouldBeNil)
			So(sibling.FileData, ShouldResemble, []byte("untouched"))
		})

		Convey("the root entry itself still fetches correctly after the delete+append pair", func() {
			root, err := s.Fetch(RootHandle)
			So(err, ShouldBeNil)
			So(root.Children, ShouldResemble, []int32{2, 1})
		})

		Convey("re-opening the committed file from disk sees the same state", func() {
			s2, err := Open(context.Background(), path)
			So(err, ShouldBeNil)

			got, err := s2.Fetch(1)
			So(err, ShouldBeNil)
			So(got.FileData, ShouldResemble, []byte("v2"))

			sibling, err := s2.Fetch(2)
			So(err, ShouldBeNil)
			So(sibling.FileData, ShouldResemble, []byte("untouched"))
		})
	})

	Convey("a path segment traversing a non-directory fails", t, func() {
		path := writeArchive(t, func(a *archive.Archive) {
			a.Insert(&tevdata.Entry{Handle: 1, Parent: archive.RootHandle, Kind: tevdata.KindFile, Name: []byte("f"), FileData: []byte("v1")})
			root := a.Get(archive.RootHandle)
			root.Children = append(root.Children, 1)
		})
		s, err := Open(context.Background(), path)
		So(err, ShouldBeNil)

		_, err = s.CreatePath(context.Background(), "f/g.txt", []byte("x"), false)
		So(err, ShouldErrLike, "is not a directory")
	})
}

func TestFixChildCounts(t *testing.T) {
	t.Parallel()

	Convey("repairs a directory's child list from the parent-handle census", t, func() {
		path := writeArchive(t, func(a *archive.Archive) {
			a.Insert(&tevdata.Entry{Handle: 1, Parent: archive.RootHandle, Kind: tevdata.KindFile, Name: []byte("a"), FileData: []byte("1")})
			a.Insert(&tevdata.Entry{Handle: 2, Parent: archive.RootHandle, Kind: tevdata.KindFile, Name: []byte("b"), FileData: []byte("2")})
			// deliberately leave root's Children list empty/stale
		})
		s, err := Open(context.Background(), path)
		So(err, ShouldBeNil)

		root, err := s.Fetch(RootHandle)
		So(err, ShouldBeNil)
		So(root.Children, ShouldResemble, []int32{})

		So(s.FixChildCounts(context.Background()), ShouldBeNil)

		root, err = s.Fetch(RootHandle)
		So(err, ShouldBeNil)
		So(root.Children, ShouldResemble, []int32{1, 2})
	})
}
