// Copyright 2025 The frozen Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package frozen

import "errors"

var (
	// ErrLayoutOverflow means the memory span for the requested bucket
	// count doesn't fit in a uint64.
	ErrLayoutOverflow = errors.New("table layout arithmetic overflowed")

	// ErrTruncatedBlob means decode ran out of bytes mid-record.
	ErrTruncatedBlob = errors.New("blob truncated")

	// ErrTrailingBytes means the blob's declared buffer length disagrees
	// with the bytes actually present after the header.
	ErrTrailingBytes = errors.New("blob has trailing or missing bytes")

	// ErrBadMagic means the blob doesn't start with the frozen magic number.
	ErrBadMagic = errors.New("bad magic number -- not a frozen blob or corrupted")

	// ErrUnsupportedVersion means the blob was written by an incompatible
	// format version.
	ErrUnsupportedVersion = errors.New("unsupported blob format version")

	// ErrChecksum means the raw bytes don't match the checksum recorded at
	// encode time.
	ErrChecksum = errors.New("blob checksum mismatch: corrupted")

	// ErrSizeMismatch means the span recomputed at restore time disagrees
	// with the captured buffer's length: either the blob is corrupted or it
	// was captured with a different slot layout or group width.
	ErrSizeMismatch = errors.New("captured buffer length disagrees with computed layout")

	// ErrNullRelocation means the relocated control region resolved to the
	// null sentinel.
	ErrNullRelocation = errors.New("relocated control region is null")

	// ErrNotRestored means a decoded snapshot was raw-iterated before a
	// successful Restore.
	ErrNotRestored = errors.New("snapshot not restored")

	// ErrSlotLayout means a reinterpret descriptor doesn't match the
	// snapshot's stored slot layout.
	ErrSlotLayout = errors.New("slot size/alignment disagrees with stored table layout")

	// ErrOutOfBounds means a Memory read fell outside the captured region.
	ErrOutOfBounds = errors.New("read outside captured memory region")
)
