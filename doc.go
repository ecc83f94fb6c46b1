// Copyright 2025 The frozen Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package frozen captures the live state of a flat, open-addressing hash
// table into a relocatable binary snapshot, and reconstructs an
// independently iterable table view from that snapshot later -- possibly in
// a different process.
//
// The table's backing store is a single contiguous allocation: fixed-stride
// slots laid out in reverse index order, immediately followed by one control
// byte per slot, followed by a trailing sentinel group.  A capture is a
// byte-exact copy of that allocation plus the table's scalar metadata; no
// typed key/value access happens anywhere in this package.  Restoring a
// decoded snapshot relocates its control-region reference into the
// snapshot's own buffer, after which the control bytes can be scanned to
// enumerate every occupied slot.
//
// A serialized snapshot ("blob") looks like:
//
//	 0    4    8        16        24        32        40
//	+----+----+---------+---------+---------+---------+
//	|magc|ver | slotSize|ctrlAlign|groupWdth|bucketMsk|
//	+----+----+---------+---------+---------+---------+
//	|ctrlAddr | growLeft| items   | checksum| rawLen  |
//	+---------+---------+---------+---------+---------+
//	| raw bytes...                                    |
//	+-------------------------------------------------+
//
// All header fields are little-endian.  ctrlAddr is a placeholder: it is the
// capture-time address of the control region, ignored on decode and
// overwritten on restore.  The checksum is a farm hash of the raw bytes and
// is verified on decode.  The raw bytes themselves are copied verbatim from
// the source, so slot contents are only meaningful to a reader that knows
// the slot encoding used on the capture host.
package frozen
