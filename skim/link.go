// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package skim

import "github.com/minjaesong/TerranVirtualDisk/tevdata"

func containsHandle(children []int32, h int32) bool {
	for _, c := range children {
		if c == h {
			return true
		}
	}
	return false
}

func removeHandle(children []int32, h int32) []int32 {
	out := children[:0:0]
	for _, c := range children {
		if c != h {
			out = append(out, c)
		}
	}
	return out
}

// linkIntoParents ensures every entry's parent directory lists it as a
// child, maintaining directory child lists transactionally rather than
// leaving that to a separate repair pass. Parents
// already present in entries are updated in place; parents not in the
// batch are fetched from the current index, updated, and folded in.
func (s *Skimmer) linkIntoParents(entries []*tevdata.Entry) ([]*tevdata.Entry, error) {
	working := make(map[int32]*tevdata.Entry, len(entries))
	order := make([]int32, 0, len(entries))
	for _, e := range entries {
		working[e.Handle] = e
		order = append(order, e.Handle)
	}

	for _, e := range entries {
		if e.Handle == RootHandle {
			continue
		}
		parent, ok := working[e.Parent]
		if !ok {
			fetched, err := s.Fetch(e.Parent)
			if err != nil {
				return nil, err
			}
			if fetched == nil || fetched.Kind != tevdata.KindDirectory {
				continue
			}
			parent = fetched
			working[e.Parent] = parent
			order = append(order, e.Parent)
		}
		if !containsHandle(parent.Children, e.Handle) {
			parent.Children = append(parent.Children, e.Handle)
		}
	}

	out := make([]*tevdata.Entry, 0, len(order))
	for _, h := range order {
		out = append(out, working[h])
	}
	return out, nil
}
