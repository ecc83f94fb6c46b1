// Copyright 2025 The frozen Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package frozen_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/frostlabs/frozen"
)

func TestBufferMemory(t *testing.T) {
	mem := frozen.BufferMemory{
		Base: 0x1000,
		Data: []byte{1, 2, 3, 4, 5, 6, 7, 8},
	}

	buf := make([]byte, 4)
	require.NoError(t, mem.ReadAt(buf, 0x1002))
	require.Equal(t, []byte{3, 4, 5, 6}, buf)

	// exact fit at the end of the region
	buf = make([]byte, 8)
	require.NoError(t, mem.ReadAt(buf, 0x1000))
	require.Equal(t, mem.Data, buf)

	// one byte past the end
	require.ErrorIs(t, mem.ReadAt(make([]byte, 1), 0x1008), frozen.ErrOutOfBounds)
	require.ErrorIs(t, mem.ReadAt(make([]byte, 9), 0x1000), frozen.ErrOutOfBounds)

	// before the base
	require.ErrorIs(t, mem.ReadAt(make([]byte, 1), 0xfff), frozen.ErrOutOfBounds)

	// a read crossing the end must fail loudly, not return a short copy
	require.ErrorIs(t, mem.ReadAt(make([]byte, 4), 0x1006), frozen.ErrOutOfBounds)
}

func TestProcessMemory(t *testing.T) {
	src := []byte("the quick brown fox")
	addr := uint64(uintptr(unsafe.Pointer(&src[0])))

	buf := make([]byte, len(src))
	require.NoError(t, frozen.ProcessMemory{}.ReadAt(buf, addr))
	require.Equal(t, src, buf)

	require.NoError(t, frozen.ProcessMemory{}.ReadAt(nil, addr))
	require.ErrorIs(t, frozen.ProcessMemory{}.ReadAt(buf, 0), frozen.ErrOutOfBounds)
}
