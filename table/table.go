// Copyright 2025 The frozen Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package table implements the open-addressing hash table whose physical
// layout the frozen engine captures.  The backing store is a single
// contiguous allocation, and its shape is a documented contract shared with
// the capture/restore engine:
//
//	┌──────────┬─────┬────────┬────────┬──────────────────┬──────────┐
//	│ slot N-1 │ ... │ slot 1 │ slot 0 │ ctrl 0 .. ctrl N-1 │ sentinel │
//	└──────────┴─────┴────────┴────────┴──────────────────┴──────────┘
//	                                   ↑ ctrlOffset (CtrlAlign-aligned)
//
// Slots are fixed-stride opaque byte strings in reverse index order: slot i
// ends where slot i-1 begins, and slot 0 abuts the control region.  One
// control byte per slot encodes its state: 0xFF empty, 0x80 deleted, and
// 0x00-0x7F occupied, holding the low 7 bits of the entry's hash.  The
// trailing group-width sentinel bytes stay 0xFF forever.
//
// The table does not hash or compare: callers supply a 64-bit hash per
// operation and an equality predicate over slot bytes.  It is not safe for
// concurrent use.
package table

import (
	"fmt"
	"math/bits"
	"unsafe"

	"github.com/frostlabs/frozen"
)

const (
	ctrlEmpty   = byte(0xFF)
	ctrlDeleted = byte(0x80)

	minBuckets = 4
)

// Table is a swiss-style flat hash table over opaque fixed-stride slots.
// The zero bucket count ("empty singleton") allocates nothing; the first
// insert does.
type Table struct {
	layout     frozen.TableLayout
	mem        []byte
	ctrlOff    uint64
	bucketMask uint64
	growthLeft uint64
	items      uint64

	// hashes mirrors the full slots so resize can reinsert without knowing
	// the slot encoding.  It lives outside mem and is never captured.
	hashes []uint64
}

// New returns an empty singleton table for the given slot geometry.
func New(layout frozen.TableLayout) *Table {
	return &Table{layout: layout}
}

// NewWithCapacity returns a table pre-sized to hold n entries without
// resizing.
func NewWithCapacity(layout frozen.TableLayout, n uint64) (*Table, error) {
	t := New(layout)
	if n == 0 {
		return t, nil
	}
	if err := t.rehash(capacityToBuckets(n)); err != nil {
		return nil, err
	}
	return t, nil
}

func capacityToBuckets(n uint64) uint64 {
	if n < 4 {
		return 4
	}
	if n < 8 {
		return 8
	}
	// keep the load factor at or below 7/8
	return uint64(1) << bits.Len64(n*8/7-1)
}

func bucketsToCapacity(buckets uint64) uint64 {
	if buckets < 8 {
		return buckets - 1
	}
	return buckets / 8 * 7
}

// Len returns the number of live entries.
func (t *Table) Len() uint64 {
	return t.items
}

// Buckets returns the current bucket count (0 for the empty singleton).
func (t *Table) Buckets() uint64 {
	if t.mem == nil {
		return 0
	}
	return t.bucketMask + 1
}

// GrowthLeft returns how many inserts remain before the next resize.
func (t *Table) GrowthLeft() uint64 {
	return t.growthLeft
}

// Layout returns the slot geometry the table was built with.
func (t *Table) Layout() frozen.TableLayout {
	return t.layout
}

func (t *Table) ctrl() []byte {
	return t.mem[t.ctrlOff:]
}

func (t *Table) slot(i uint64) []byte {
	start := t.ctrlOff - (i+1)*t.layout.SlotSize
	return t.mem[start : start+t.layout.SlotSize]
}

// find locates the bucket holding an entry with the given hash for which eq
// returns true.  The probe walks from the hash's home bucket and stops at
// the first empty control byte; tombstones are stepped over.
func (t *Table) find(hash uint64, eq func(slot []byte) bool) (uint64, bool) {
	if t.mem == nil {
		return 0, false
	}
	h2 := byte(hash & 0x7F)
	ctrl := t.ctrl()
	idx := (hash >> 7) & t.bucketMask
	for i := uint64(0); i <= t.bucketMask; i++ {
		switch c := ctrl[idx]; {
		case c == ctrlEmpty:
			return 0, false
		case c == h2 && eq(t.slot(idx)):
			return idx, true
		}
		idx = (idx + 1) & t.bucketMask
	}
	return 0, false
}

// findInsertSlot returns the first empty-or-deleted bucket on hash's probe
// path.  The load factor guarantees one exists.
func (t *Table) findInsertSlot(hash uint64) (idx uint64, wasDeleted bool) {
	ctrl := t.ctrl()
	idx = (hash >> 7) & t.bucketMask
	for ctrl[idx]&0x80 == 0 {
		idx = (idx + 1) & t.bucketMask
	}
	return idx, ctrl[idx] == ctrlDeleted
}

// Get returns the slot bytes for the entry matching hash and eq.  The slice
// aliases the table's backing store: it is invalidated by the next insert
// and must be treated as read-only.
func (t *Table) Get(hash uint64, eq func(slot []byte) bool) ([]byte, bool) {
	idx, ok := t.find(hash, eq)
	if !ok {
		return nil, false
	}
	return t.slot(idx), true
}

// Put inserts slot under hash, replacing the existing entry matched by eq
// if there is one.  A nil eq skips the lookup and always inserts; callers
// using nil own the no-duplicate guarantee.  len(slot) must equal the
// layout's slot stride.
func (t *Table) Put(hash uint64, slot []byte, eq func(slot []byte) bool) error {
	if uint64(len(slot)) != t.layout.SlotSize {
		return fmt.Errorf("%d-byte slot into a %d-byte-stride table: %w",
			len(slot), t.layout.SlotSize, ErrBadSlotSize)
	}
	if eq != nil {
		if idx, ok := t.find(hash, eq); ok {
			copy(t.slot(idx), slot)
			t.hashes[idx] = hash
			return nil
		}
	}
	for {
		if t.mem == nil {
			if err := t.rehash(minBuckets); err != nil {
				return err
			}
			continue
		}
		idx, wasDeleted := t.findInsertSlot(hash)
		if !wasDeleted && t.growthLeft == 0 {
			if err := t.rehash((t.bucketMask + 1) * 2); err != nil {
				return err
			}
			continue
		}
		t.set(idx, hash, slot)
		if !wasDeleted {
			t.growthLeft--
		}
		t.items++
		return nil
	}
}

func (t *Table) set(idx, hash uint64, slot []byte) {
	t.ctrl()[idx] = byte(hash & 0x7F)
	t.hashes[idx] = hash
	copy(t.slot(idx), slot)
}

// Delete removes the entry matching hash and eq, leaving a tombstone.  It
// reports whether an entry was removed.  Tombstones are reused by later
// inserts but never return growth headroom.
func (t *Table) Delete(hash uint64, eq func(slot []byte) bool) bool {
	idx, ok := t.find(hash, eq)
	if !ok {
		return false
	}
	t.ctrl()[idx] = ctrlDeleted
	t.items--
	return true
}

// rehash moves the table to a fresh allocation of the given bucket count
// and reinserts every live entry using the mirrored hashes.
func (t *Table) rehash(buckets uint64) error {
	ctrlOff, total, err := t.layout.CalculateLayoutFor(buckets)
	if err != nil {
		return err
	}
	oldMem, oldCtrlOff := t.mem, t.ctrlOff
	oldMask, oldHashes := t.bucketMask, t.hashes

	t.mem = make([]byte, total)
	t.ctrlOff = ctrlOff
	t.bucketMask = buckets - 1
	t.hashes = make([]uint64, buckets)
	t.growthLeft = bucketsToCapacity(buckets)
	t.items = 0
	ctrl := t.ctrl()
	for i := range ctrl {
		ctrl[i] = ctrlEmpty
	}

	if oldMem == nil {
		return nil
	}
	stride := t.layout.SlotSize
	for i := uint64(0); i <= oldMask; i++ {
		if oldMem[oldCtrlOff+i]&0x80 != 0 {
			continue
		}
		hash := oldHashes[i]
		start := oldCtrlOff - (i+1)*stride
		idx, _ := t.findInsertSlot(hash)
		t.set(idx, hash, oldMem[start:start+stride])
		t.growthLeft--
		t.items++
	}
	return nil
}

// Metadata returns the scalar state the frozen engine consumes, with
// CtrlAddr pointing at the live control region.
func (t *Table) Metadata() frozen.Metadata {
	m := frozen.Metadata{
		BucketMask: t.bucketMask,
		GrowthLeft: t.growthLeft,
		Items:      t.items,
	}
	if t.mem != nil {
		m.CtrlAddr = uint64(uintptr(unsafe.Pointer(&t.mem[0]))) + t.ctrlOff
	}
	return m
}

// Memory returns the table's backing allocation as a bounds-checked capture
// source, anchored at its live address.
func (t *Table) Memory() frozen.Memory {
	if t.mem == nil {
		return frozen.BufferMemory{}
	}
	return frozen.BufferMemory{
		Base: uint64(uintptr(unsafe.Pointer(&t.mem[0]))),
		Data: t.mem,
	}
}

// Freeze captures the table into an owned snapshot.  The table is read
// directly with no intervening mutation, so the snapshot can never observe
// a torn resize; afterwards the table and snapshot are fully independent.
func (t *Table) Freeze() (*frozen.Snapshot, error) {
	return frozen.Capture(t.Memory(), t.Metadata(), t.layout)
}
