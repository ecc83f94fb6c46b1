// Copyright 2025 The frozen Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package table_test

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/dgryski/go-farm"
	"github.com/stretchr/testify/require"

	"github.com/frostlabs/frozen"
	"github.com/frostlabs/frozen/table"
)

// slots are "key:value" pairs of a uint64 key and a uint64 value,
// 16 bytes per slot
func kvLayout(t *testing.T) frozen.TableLayout {
	t.Helper()
	tl, err := frozen.NewTableLayout(16, 8, 16)
	require.NoError(t, err)
	return tl
}

func kvSlot(k, v uint64) []byte {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[:8], k)
	binary.LittleEndian.PutUint64(b[8:], v)
	return b[:]
}

func kvHash(k uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], k)
	return farm.Hash64(b[:])
}

func kvEq(k uint64) func([]byte) bool {
	return func(slot []byte) bool {
		return binary.LittleEndian.Uint64(slot[:8]) == k
	}
}

func TestEmptySingleton(t *testing.T) {
	tbl := table.New(kvLayout(t))
	require.Zero(t, tbl.Len())
	require.Zero(t, tbl.Buckets())
	require.Zero(t, tbl.GrowthLeft())

	meta := tbl.Metadata()
	require.Zero(t, meta.BucketMask)
	require.Zero(t, meta.CtrlAddr)

	_, ok := tbl.Get(kvHash(1), kvEq(1))
	require.False(t, ok)
	require.False(t, tbl.Delete(kvHash(1), kvEq(1)))
}

func TestPutGet(t *testing.T) {
	tbl := table.New(kvLayout(t))

	for k := uint64(0); k < 100; k++ {
		require.NoError(t, tbl.Put(kvHash(k), kvSlot(k, k*10), kvEq(k)))
	}
	require.Equal(t, uint64(100), tbl.Len())

	for k := uint64(0); k < 100; k++ {
		slot, ok := tbl.Get(kvHash(k), kvEq(k))
		require.True(t, ok, "key %d", k)
		require.Equal(t, k*10, binary.LittleEndian.Uint64(slot[8:]))
	}
	_, ok := tbl.Get(kvHash(100), kvEq(100))
	require.False(t, ok)
}

func TestPutReplaces(t *testing.T) {
	tbl := table.New(kvLayout(t))
	require.NoError(t, tbl.Put(kvHash(7), kvSlot(7, 1), kvEq(7)))
	require.NoError(t, tbl.Put(kvHash(7), kvSlot(7, 2), kvEq(7)))
	require.Equal(t, uint64(1), tbl.Len())

	slot, ok := tbl.Get(kvHash(7), kvEq(7))
	require.True(t, ok)
	require.Equal(t, uint64(2), binary.LittleEndian.Uint64(slot[8:]))
}

func TestPutRejectsWrongStride(t *testing.T) {
	tbl := table.New(kvLayout(t))
	err := tbl.Put(kvHash(1), make([]byte, 8), nil)
	require.ErrorIs(t, err, table.ErrBadSlotSize)
}

func TestDeleteAndReuse(t *testing.T) {
	tbl := table.New(kvLayout(t))
	for k := uint64(0); k < 6; k++ {
		require.NoError(t, tbl.Put(kvHash(k), kvSlot(k, k), kvEq(k)))
	}

	require.True(t, tbl.Delete(kvHash(3), kvEq(3)))
	require.False(t, tbl.Delete(kvHash(3), kvEq(3)))
	require.Equal(t, uint64(5), tbl.Len())
	_, ok := tbl.Get(kvHash(3), kvEq(3))
	require.False(t, ok)

	// keys displaced past the tombstone are still reachable
	for _, k := range []uint64{0, 1, 2, 4, 5} {
		_, ok := tbl.Get(kvHash(k), kvEq(k))
		require.True(t, ok, "key %d", k)
	}

	require.NoError(t, tbl.Put(kvHash(3), kvSlot(3, 33), kvEq(3)))
	slot, ok := tbl.Get(kvHash(3), kvEq(3))
	require.True(t, ok)
	require.Equal(t, uint64(33), binary.LittleEndian.Uint64(slot[8:]))
}

func TestGrowthAndResize(t *testing.T) {
	tbl := table.New(kvLayout(t))

	require.NoError(t, tbl.Put(kvHash(0), kvSlot(0, 0), kvEq(0)))
	require.Equal(t, uint64(4), tbl.Buckets())
	require.Equal(t, uint64(2), tbl.GrowthLeft()) // 4 buckets hold 3

	for k := uint64(1); k < 1000; k++ {
		require.NoError(t, tbl.Put(kvHash(k), kvSlot(k, k), kvEq(k)))
	}
	require.Equal(t, uint64(1000), tbl.Len())
	// buckets stay a power of two and the load factor holds
	buckets := tbl.Buckets()
	require.Zero(t, buckets&(buckets-1))
	require.GreaterOrEqual(t, buckets/8*7, tbl.Len())

	for k := uint64(0); k < 1000; k++ {
		_, ok := tbl.Get(kvHash(k), kvEq(k))
		require.True(t, ok, "key %d lost in resize", k)
	}
}

func TestNewWithCapacity(t *testing.T) {
	for _, tc := range []struct {
		capacity, wantBuckets uint64
	}{
		{0, 0},
		{1, 4},
		{3, 4},
		{4, 8},
		{7, 8},
		{8, 16},
		{14, 16},
		{15, 32},
		{56, 64},
		{57, 128},
	} {
		t.Run(fmt.Sprintf("capacity%d", tc.capacity), func(t *testing.T) {
			tbl, err := table.NewWithCapacity(kvLayout(t), tc.capacity)
			require.NoError(t, err)
			require.Equal(t, tc.wantBuckets, tbl.Buckets())
			if tc.capacity > 0 {
				require.GreaterOrEqual(t, tbl.GrowthLeft(), tc.capacity)
			}
		})
	}
}

func TestMetadataTracksState(t *testing.T) {
	tbl, err := table.NewWithCapacity(kvLayout(t), 10)
	require.NoError(t, err)

	before := tbl.Metadata()
	require.NotZero(t, before.CtrlAddr)
	require.Equal(t, tbl.Buckets()-1, before.BucketMask)

	require.NoError(t, tbl.Put(kvHash(1), kvSlot(1, 1), kvEq(1)))
	after := tbl.Metadata()
	require.Equal(t, before.GrowthLeft-1, after.GrowthLeft)
	require.Equal(t, uint64(1), after.Items)
	require.Equal(t, before.CtrlAddr, after.CtrlAddr)
}

func TestFreezeIsIndependent(t *testing.T) {
	tbl := table.New(kvLayout(t))
	for k := uint64(0); k < 20; k++ {
		require.NoError(t, tbl.Put(kvHash(k), kvSlot(k, k), kvEq(k)))
	}

	snap, err := tbl.Freeze()
	require.NoError(t, err)
	require.Equal(t, uint64(20), snap.Len())

	// mutating the table afterwards must not leak into the snapshot
	for k := uint64(0); k < 20; k++ {
		require.True(t, tbl.Delete(kvHash(k), kvEq(k)))
	}
	require.Zero(t, tbl.Len())
	require.Equal(t, uint64(20), snap.Len())

	it, err := snap.RawIter()
	require.NoError(t, err)
	n := 0
	for _, ok := it.Next(); ok; _, ok = it.Next() {
		n++
	}
	require.Equal(t, 20, n)
}
