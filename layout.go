// Copyright 2025 The frozen Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package frozen

import (
	"fmt"
	"math"

	"golang.org/x/sys/cpu"
)

// nativeGroupWidth is selected once at process start from the host CPU's
// scan capability: 16 control bytes per comparison where SSE2 is available,
// 8 for the SWAR fallback (and NEON, which is scanned 8 wide).
var nativeGroupWidth = detectGroupWidth()

func detectGroupWidth() uint64 {
	if cpu.X86.HasSSE2 {
		return 16
	}
	return 8
}

// NativeGroupWidth returns the control-byte group width detected for the
// host CPU.  Pass it to NewTableLayout unless you are decoding data captured
// with a different width.
func NativeGroupWidth() uint64 {
	return nativeGroupWidth
}

// TableLayout describes the physical slot geometry of one table: the byte
// stride of a (key,value) slot, the alignment of the control-byte region,
// and the group width the table was built for.  CtrlAlign and GroupWidth are
// always powers of two, and CtrlAlign is never smaller than GroupWidth.
type TableLayout struct {
	SlotSize   uint64
	CtrlAlign  uint64
	GroupWidth uint64
}

// NewTableLayout builds a TableLayout for slots of the given size and
// alignment.  The control region's alignment is the larger of slotAlign and
// groupWidth.  slotAlign and groupWidth must be powers of two.
func NewTableLayout(slotSize, slotAlign, groupWidth uint64) (TableLayout, error) {
	if !isPow2(slotAlign) {
		return TableLayout{}, fmt.Errorf("slot alignment %d is not a power of two: %w", slotAlign, ErrSlotLayout)
	}
	if !isPow2(groupWidth) {
		return TableLayout{}, fmt.Errorf("group width %d is not a power of two: %w", groupWidth, ErrSlotLayout)
	}
	ctrlAlign := slotAlign
	if groupWidth > ctrlAlign {
		ctrlAlign = groupWidth
	}
	return TableLayout{
		SlotSize:   slotSize,
		CtrlAlign:  ctrlAlign,
		GroupWidth: groupWidth,
	}, nil
}

func isPow2(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

func (tl TableLayout) valid() bool {
	return isPow2(tl.CtrlAlign) && isPow2(tl.GroupWidth) && tl.CtrlAlign >= tl.GroupWidth
}

// CalculateLayoutFor computes the control-region offset and the total span
// of the single allocation backing a table of buckets slots:
//
//	ctrlOffset = roundUp(SlotSize*buckets, CtrlAlign)
//	totalSize  = ctrlOffset + buckets + GroupWidth
//
// The trailing GroupWidth bytes are the sentinel overread allowance after
// the control-byte array.  buckets must be a power of two; the empty
// singleton (zero buckets) never has a layout.
func (tl TableLayout) CalculateLayoutFor(buckets uint64) (ctrlOffset, totalSize uint64, err error) {
	if !isPow2(buckets) {
		return 0, 0, fmt.Errorf("bucket count %d is not a power of two: %w", buckets, ErrLayoutOverflow)
	}
	if tl.SlotSize != 0 && buckets > math.MaxUint64/tl.SlotSize {
		return 0, 0, fmt.Errorf("%d slots of %d bytes: %w", buckets, tl.SlotSize, ErrLayoutOverflow)
	}
	slotSpan := tl.SlotSize * buckets
	if slotSpan > math.MaxUint64-(tl.CtrlAlign-1) {
		return 0, 0, fmt.Errorf("rounding %d up to %d: %w", slotSpan, tl.CtrlAlign, ErrLayoutOverflow)
	}
	ctrlOffset = (slotSpan + tl.CtrlAlign - 1) &^ (tl.CtrlAlign - 1)
	if buckets > math.MaxUint64-tl.GroupWidth || ctrlOffset > math.MaxUint64-(buckets+tl.GroupWidth) {
		return 0, 0, fmt.Errorf("control region overflows span: %w", ErrLayoutOverflow)
	}
	totalSize = ctrlOffset + buckets + tl.GroupWidth
	return ctrlOffset, totalSize, nil
}
