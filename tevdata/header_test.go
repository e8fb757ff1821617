// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tevdata

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	. "go.chromium.org/luci/common/testing/assertions"
)

func TestHeader(t *testing.T) {
	t.Parallel()

	Convey("Header round trip", t, func() {
		h := Header{
			Capacity:   1 << 20,
			DiskName:   []byte("test disk"),
			ArchiveCRC: 0xCAFEBABE,
			Version:    Version,
		}

		buf := &bytes.Buffer{}
		So(WriteHeader(buf, h), ShouldBeNil)
		So(buf.Len(), ShouldEqual, HeaderSize47)

		got, err := ReadHeader(bytes.NewReader(buf.Bytes()))
		So(err, ShouldBeNil)
		So(got, ShouldResemble, h)
	})

	Convey("ReadHeader rejects bad magic", t, func() {
		_, err := ReadHeader(bytes.NewReader([]byte{'X', 'X', 'X', 'X'}))
		So(err, ShouldErrLike, "bad magic")
	})

	Convey("Footer framing", t, func() {
		Convey("write then read trailer", func() {
			buf := &bytes.Buffer{}
			footer := []byte{0x01, 0x02, 0x03}
			So(WriteFooter(buf, footer), ShouldBeNil)
			So(buf.Bytes(), ShouldResemble, append(
				append(PutUint32(FooterSentinel), footer...),
				EOFMark[0], EOFMark[1],
			))

			r := bytes.NewReader(buf.Bytes())
			got, err := ReadFooterTrailer(r, int64(len(PutUint32(FooterSentinel))), int64(buf.Len()))
			So(err, ShouldBeNil)
			So(got, ShouldResemble, footer)
		})

		Convey("empty footer_bytes", func() {
			buf := &bytes.Buffer{}
			So(WriteFooter(buf, nil), ShouldBeNil)
			got, err := ReadFooterTrailer(bytes.NewReader(buf.Bytes()), 4, int64(buf.Len()))
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []byte{})
		})

		Convey("bad EOF mark", func() {
			buf := &bytes.Buffer{}
			So(WriteFooter(buf, nil), ShouldBeNil)
			corrupt := buf.Bytes()
			corrupt[len(corrupt)-1] = 0x00
			_, err := ReadFooterTrailer(bytes.NewReader(corrupt), 4, int64(len(corrupt)))
			So(err, ShouldErrLike, "EOF mark")
		})

		Convey("truncated trailer", func() {
			_, err := ReadFooterTrailer(bytes.NewReader([]byte{1, 2}), 4, 5)
			So(err, ShouldErrLike, "footer")
		})
	})

	Convey("ReadOnly / SetReadOnly", t, func() {
		So(ReadOnly(nil), ShouldBeFalse)
		flags := SetReadOnly(nil, true)
		So(ReadOnly(flags), ShouldBeTrue)
		flags = SetReadOnly(flags, false)
		So(ReadOnly(flags), ShouldBeFalse)

		Convey("preserves other bits", func() {
			flags := []byte{0b00000010}
			flags = SetReadOnly(flags, true)
			So(flags[0], ShouldEqual, byte(0b00000011))
		})
	})
}
