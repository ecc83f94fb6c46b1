// Copyright 2025 The frozen Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package frozen

import (
	"fmt"
	"unsafe"
)

// Metadata is the scalar state of a live table: everything the engine
// consumes besides the backing memory itself.  BucketMask+1 is a power of
// two, except that BucketMask == 0 denotes the empty singleton -- a table
// that never allocated backing storage.  CtrlAddr is the address of the
// control-byte region in the source address space.
type Metadata struct {
	BucketMask uint64
	GrowthLeft uint64
	Items      uint64
	CtrlAddr   uint64
}

func (m Metadata) emptySingleton() bool {
	return m.BucketMask == 0
}

func (m Metadata) buckets() uint64 {
	return m.BucketMask + 1
}

// Snapshot is a deep, instantaneous copy of one table's state.  It owns its
// buffer outright: the source table is free to mutate, resize, or die after
// Capture returns.  A snapshot fresh from Capture is immediately iterable;
// one decoded from a blob must be Restored first.
type Snapshot struct {
	layout TableLayout
	meta   Metadata
	raw    []byte

	// ctrlOff locates the control region inside raw.  Together with raw it
	// stands in for the patched control pointer: an (owning buffer, offset)
	// pair stays valid under GC where a bare address would not.  raw must
	// never be reallocated once iterable is set.
	ctrlOff  uint64
	iterable bool
}

// Capture deep-copies a live table's backing memory through mem.  The slots
// are laid out immediately before the control region, so the allocation
// starts ctrlOffset bytes before meta.CtrlAddr and runs for the layout's
// total span.  The copy is byte-exact and type-oblivious.
//
// The caller must guarantee the source table is not mutated (in particular,
// not resized) while Capture reads it -- the same discipline the source's
// own read API demands.  Capture of the empty singleton reads nothing.
func Capture(mem Memory, meta Metadata, tl TableLayout) (*Snapshot, error) {
	if meta.emptySingleton() {
		return &Snapshot{layout: tl, meta: meta}, nil
	}
	ctrlOff, total, err := tl.CalculateLayoutFor(meta.buckets())
	if err != nil {
		return nil, err
	}
	if meta.CtrlAddr < ctrlOff {
		return nil, fmt.Errorf("control region %#x begins before its allocation (offset %d): %w",
			meta.CtrlAddr, ctrlOff, ErrOutOfBounds)
	}
	start := meta.CtrlAddr - ctrlOff
	raw := make([]byte, total)
	if err := mem.ReadAt(raw, start); err != nil {
		return nil, fmt.Errorf("copying %d bytes at %#x: %w", total, start, err)
	}
	return &Snapshot{
		layout:   tl,
		meta:     meta,
		raw:      raw,
		ctrlOff:  ctrlOff,
		iterable: true,
	}, nil
}

// Layout returns the slot geometry recorded at capture time.
func (s *Snapshot) Layout() TableLayout {
	return s.layout
}

// Metadata returns the captured scalar state.  After a successful Restore,
// CtrlAddr points into the snapshot's own buffer.
func (s *Snapshot) Metadata() Metadata {
	return s.meta
}

// Len returns the number of occupied slots.
func (s *Snapshot) Len() uint64 {
	return s.meta.Items
}

// Size returns the length in bytes of the captured buffer: the full span of
// the source allocation, or 0 for the empty singleton.
func (s *Snapshot) Size() uint64 {
	return uint64(len(s.raw))
}

// EmptySingleton reports whether the captured table never allocated backing
// storage.
func (s *Snapshot) EmptySingleton() bool {
	return s.meta.emptySingleton()
}

// Restored reports whether the snapshot is safe to raw-iterate: either it
// came straight from Capture, or Restore succeeded.
func (s *Snapshot) Restored() bool {
	return s.iterable
}

// Restore relocates a decoded snapshot's control-region reference so it
// points into the snapshot's own buffer, turning it into a usable table
// view.  It reports (false, nil) for the empty singleton: a valid outcome
// with nothing to relocate and nothing to iterate.
//
// After a successful Restore the buffer must never be moved or grown; every
// address computed from it would dangle.  Restore performs the semantic
// validation Decode deliberately skips: the bucket-mask shape and the exact
// agreement between the recomputed span and the captured buffer.
func (s *Snapshot) Restore() (restored bool, err error) {
	if len(s.raw) == 0 {
		return false, nil
	}
	if !s.layout.valid() {
		return false, fmt.Errorf("stored layout %+v is malformed: %w", s.layout, ErrSizeMismatch)
	}
	if !isPow2(s.meta.buckets()) {
		return false, fmt.Errorf("bucket mask %#x: %w", s.meta.BucketMask, ErrSizeMismatch)
	}
	ctrlOff, total, err := s.layout.CalculateLayoutFor(s.meta.buckets())
	if err != nil {
		return false, err
	}
	if total != uint64(len(s.raw)) {
		return false, fmt.Errorf("computed span %d, captured %d: %w", total, len(s.raw), ErrSizeMismatch)
	}
	addr := uintptr(unsafe.Pointer(&s.raw[0])) + uintptr(ctrlOff)
	if addr == 0 {
		return false, ErrNullRelocation
	}
	s.meta.CtrlAddr = uint64(addr)
	s.ctrlOff = ctrlOff
	s.iterable = true
	return true, nil
}
