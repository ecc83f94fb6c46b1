// Copyright 2025 The frozen Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package frozen

import "fmt"

// ctrlMSB distinguishes occupied control bytes: most-significant bit clear
// means the paired slot holds an entry.  Empty (0xFF) and deleted (0x80)
// sentinels both have it set.
const ctrlMSB = 0x80

// SlotRef locates one occupied slot as a byte offset into the snapshot's
// owned buffer.  Offsets stay valid for the life of the buffer -- unlike an
// absolute address, they survive being handed between processes alongside
// the blob.
type SlotRef struct {
	Offset uint64
}

// RawIter enumerates occupied slots by scanning control bytes directly,
// bypassing any typed key/value access.  It is lazy, finite, forward-only
// and non-restartable.
//
// Slots are visited in ascending control-byte order: physical layout order,
// not insertion order and not hash order.  Two captures of the identical
// physical table state therefore yield identical offset sequences.
type RawIter struct {
	ctrl    []byte
	ctrlOff uint64
	stride  uint64
	idx     uint64
	left    uint64
}

// RawIter returns an iterator over the snapshot's occupied slots.  The
// snapshot must be a table view: fresh from Capture or successfully
// Restored.  The empty singleton iterates zero slots.  The iterator borrows
// the snapshot's buffer and must not outlive it.
func (s *Snapshot) RawIter() (*RawIter, error) {
	if len(s.raw) == 0 {
		return &RawIter{}, nil
	}
	if !s.iterable {
		return nil, ErrNotRestored
	}
	return &RawIter{
		ctrl:    s.raw[s.ctrlOff : s.ctrlOff+s.meta.buckets()],
		ctrlOff: s.ctrlOff,
		stride:  s.layout.SlotSize,
		left:    s.meta.Items,
	}, nil
}

// Next yields the next occupied slot.  The slot for the occupied control
// byte at index i sits i+1 strides before the control region (slots are
// laid out in reverse index order).  Exactly Len() slots are yielded in
// total; the scan stops early once they are all accounted for.
func (it *RawIter) Next() (SlotRef, bool) {
	for it.left > 0 && it.idx < uint64(len(it.ctrl)) {
		c := it.ctrl[it.idx]
		it.idx++
		if c&ctrlMSB == 0 {
			it.left--
			return SlotRef{Offset: it.ctrlOff - it.idx*it.stride}, true
		}
	}
	return SlotRef{}, false
}

// Remaining returns how many occupied slots are left to yield.
func (it *RawIter) Remaining() uint64 {
	return it.left
}

// SlotView is the only reinterpretation boundary in the package: it grants
// access to slot bytes after the caller's size/alignment descriptor has
// been validated against the layout stored in the snapshot.  Nothing here
// interprets those bytes -- decoding them as typed keys and values is the
// caller's responsibility and risk.
type SlotView struct {
	s *Snapshot
}

// Reinterpret validates a slot descriptor against the stored table layout
// and, on success, returns a view for reading slot bytes.  slotSize must
// equal the captured slot stride exactly; slotAlign must be a power of two
// no stricter than the control alignment.  A mismatch means the caller's
// idea of the slot type differs from the capture host's and typed access
// would be garbage.
func (s *Snapshot) Reinterpret(slotSize, slotAlign uint64) (*SlotView, error) {
	if len(s.raw) > 0 && !s.iterable {
		return nil, ErrNotRestored
	}
	if slotSize != s.layout.SlotSize {
		return nil, fmt.Errorf("slot size %d, captured stride %d: %w", slotSize, s.layout.SlotSize, ErrSlotLayout)
	}
	if !isPow2(slotAlign) || slotAlign > s.layout.CtrlAlign {
		return nil, fmt.Errorf("slot alignment %d incompatible with control alignment %d: %w",
			slotAlign, s.layout.CtrlAlign, ErrSlotLayout)
	}
	return &SlotView{s: s}, nil
}

// Bytes returns the ref'd slot's bytes.  The slice aliases the snapshot's
// buffer; treat it as read-only.
func (v *SlotView) Bytes(ref SlotRef) []byte {
	return v.s.raw[ref.Offset : ref.Offset+v.s.layout.SlotSize]
}
