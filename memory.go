// Copyright 2025 The frozen Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package frozen

import (
	"fmt"
	"unsafe"
)

// Memory is read access to the address space a table lives in.  Capture is
// the only consumer; it performs a single contiguous read.
type Memory interface {
	// ReadAt fills p with the bytes at [addr, addr+len(p)) of the source
	// address space.  Short reads are errors.
	ReadAt(p []byte, addr uint64) error
}

// BufferMemory serves reads from an already-extracted copy of a source
// region -- for example a range carved out of a core dump -- that was
// originally located at Base.  Reads outside [Base, Base+len(Data)) fail
// with ErrOutOfBounds rather than returning torn data.
type BufferMemory struct {
	Base uint64
	Data []byte
}

func (m BufferMemory) ReadAt(p []byte, addr uint64) error {
	if addr < m.Base {
		return fmt.Errorf("address %#x precedes region base %#x: %w", addr, m.Base, ErrOutOfBounds)
	}
	off := addr - m.Base
	if off > uint64(len(m.Data)) || uint64(len(p)) > uint64(len(m.Data))-off {
		return fmt.Errorf("read of %d bytes at %#x exceeds region [%#x, +%d): %w",
			len(p), addr, m.Base, len(m.Data), ErrOutOfBounds)
	}
	copy(p, m.Data[off:])
	return nil
}

// ProcessMemory reads the current process's own address space.  This is the
// debugger-in-process capture path.
//
// SAFETY: addr must reference live, readable memory at least len(p) bytes
// long for the duration of the call; the caller owns that guarantee, exactly
// as it owns the no-concurrent-mutation guarantee during capture.
type ProcessMemory struct{}

func (ProcessMemory) ReadAt(p []byte, addr uint64) error {
	if addr == 0 {
		return fmt.Errorf("null source address: %w", ErrOutOfBounds)
	}
	if len(p) == 0 {
		return nil
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), len(p))
	copy(p, src)
	return nil
}
