// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"math/rand"
	"time"

	"go.chromium.org/luci/common/errors"

	"github.com/minjaesong/TerranVirtualDisk/tevdata"
)

// RootHandle is the handle permanently reserved for the root directory.
const RootHandle int32 = 0

// Archive is a fully materialized TEVD archive held in memory.
// The zero value is not usable; construct one with New or Load.
type Archive struct {
	Capacity    uint64
	DiskName    []byte
	FooterBytes []byte

	entries map[int32]*tevdata.Entry
	rng     *rand.Rand
}

// New constructs an empty archive containing only the root directory.
func New(capacity uint64, diskName []byte) *Archive {
	a := &Archive{
		Capacity:    capacity,
		DiskName:    append([]byte(nil), diskName...),
		FooterBytes: []byte{0},
		entries:     map[int32]*tevdata.Entry{},
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	a.entries[RootHandle] = &tevdata.Entry{
		Handle:   RootHandle,
		Parent:   RootHandle,
		Kind:     tevdata.KindDirectory,
		Name:     nil,
		Children: []int32{},
	}
	return a
}

// SetRand replaces the archive's handle-generation RNG. Tests that need
// deterministic handle allocation should call this with a fixed seed.
func (a *Archive) SetRand(rng *rand.Rand) {
	a.rng = rng
}

// ReadOnly reports whether the archive is read-only: either because its
// capacity is 0 (which forces read-only regardless of the footer flag) or
// because the footer's flag byte has the read-only bit set.
func (a *Archive) ReadOnly() bool {
	if a.Capacity == 0 {
		return true
	}
	return tevdata.ReadOnly(a.FooterBytes)
}

// SetReadOnly sets or clears the footer's read-only bit. It returns an
// error if Capacity is 0, since that forces read-only unconditionally and
// the flag would have no effect.
func (a *Archive) SetReadOnly(readOnly bool) error {
	if a.Capacity == 0 {
		return errors.Reason("cannot change read-only flag: capacity is 0").Err()
	}
	a.FooterBytes = tevdata.SetReadOnly(a.FooterBytes, readOnly)
	return nil
}

// Get returns the entry with the given handle, or nil if none exists.
func (a *Archive) Get(handle int32) *tevdata.Entry {
	return a.entries[handle]
}

// Insert adds or replaces the entry in the archive's entry map. It does
// not validate parent linkage or update the parent's child list; callers
// that want the parent/child invariants upheld should go through ChildrenOf/the
// directory's Children slice themselves, or use the skim package's
// higher-level CreatePath.
func (a *Archive) Insert(e *tevdata.Entry) {
	a.entries[e.Handle] = e
}

// Remove deletes the entry with the given handle from the archive's
// entry map. It is a no-op if the handle doesn't exist.
func (a *Archive) Remove(handle int32) {
	delete(a.entries, handle)
}

// ChildrenOf returns the handle list of the directory identified by
// handle. It returns ErrNotADirectory if the entry exists but isn't a
// directory, or nil, nil if the handle doesn't exist.
func (a *Archive) ChildrenOf(handle int32) ([]int32, error) {
	e := a.entries[handle]
	if e == nil {
		return nil, nil
	}
	if e.Kind != tevdata.KindDirectory {
		return nil, &ErrNotADirectory{Handle: handle}
	}
	return e.Children, nil
}

// Entries returns every entry currently in the archive, in unspecified
// order. The returned map aliases the archive's storage; callers must
// treat it as read-only.
func (a *Archive) Entries() map[int32]*tevdata.Entry {
	return a.entries
}

// GenerateUniqueHandle draws a uniformly random signed 32-bit handle,
// rejecting the reserved sentinel and any value already in use.
// Callers may rely on eventual success with overwhelming probability for
// any realistic entry count.
func (a *Archive) GenerateUniqueHandle() int32 {
	for {
		h := int32(a.rng.Uint32())
		if uint32(h) == tevdata.FooterSentinel {
			continue
		}
		if _, exists := a.entries[h]; exists {
			continue
		}
		return h
	}
}

// UsedBytes returns the exact byte length Save would produce for the
// archive's current contents.
func (a *Archive) UsedBytes() (int64, error) {
	total := int64(tevdata.HeaderSize47)
	for _, e := range a.entries {
		size, err := e.SerializedSize()
		if err != nil {
			return 0, errors.Annotate(err, "sizing entry %d", e.Handle).Err()
		}
		total += size
	}
	total += tevdata.FooterFrameSize + int64(len(a.FooterBytes))
	return total, nil
}

// ErrNotADirectory is returned when a path traversal or ChildrenOf call
// expects a directory but finds a different kind of entry.
type ErrNotADirectory struct {
	Handle int32
}

func (e *ErrNotADirectory) Error() string {
	return errors.Reason("entry %d is not a directory", e.Handle).Err().Error()
}
