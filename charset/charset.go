// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package charset provides the character-set decoder collaborator that
// turns raw entry-name bytes into a displayable string: entry names are
// raw bytes in the wire format, and decoding them is left entirely to
// callers. This package wraps golang.org/x/text/encoding.
package charset

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Decoder renders raw name bytes as a display string.
type Decoder interface {
	Decode(raw []byte) (string, error)
}

// UTF8 treats name bytes as UTF-8, which is how most modern TEVD archives
// will have their names encoded. Invalid sequences are replaced per
// unicode.UTF8's standard replacement-character behavior.
var UTF8 Decoder = encodingDecoder{unicode.UTF8}

// Latin1 treats name bytes as ISO-8859-1, for archives carrying names
// written by older or non-UTF-8-aware tooling.
var Latin1 Decoder = encodingDecoder{charmap.ISO8859_1}

type encodingDecoder struct {
	enc encoding.Encoding
}

func (d encodingDecoder) Decode(raw []byte) (string, error) {
	out, err := d.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
