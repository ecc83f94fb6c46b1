// Copyright 2025 The frozen Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package frozen

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dgryski/go-farm"
	"github.com/natefinch/atomic"

	"github.com/frostlabs/frozen/internal/mmap"
)

const (
	magicBlobHeader   = uint32(0x1CEB10B0)
	blobFormatVersion = uint32(1)

	// magic + version + 8 fixed u64 fields + length prefix
	blobHeaderSize = 4 + 4 + 8*8 + 8
)

// MarshalBinary encodes the snapshot as a blob: a flat byte sequence
// independent of this process's address space.  The control address is
// written as-is but is only a placeholder -- decode ignores it and restore
// overwrites it.  Field order and widths are fixed (see the package doc);
// all header fields are little-endian regardless of host byte order.
func (s *Snapshot) MarshalBinary() ([]byte, error) {
	b := make([]byte, blobHeaderSize+len(s.raw))
	binary.LittleEndian.PutUint32(b[0:4], magicBlobHeader)
	binary.LittleEndian.PutUint32(b[4:8], blobFormatVersion)
	binary.LittleEndian.PutUint64(b[8:16], s.layout.SlotSize)
	binary.LittleEndian.PutUint64(b[16:24], s.layout.CtrlAlign)
	binary.LittleEndian.PutUint64(b[24:32], s.layout.GroupWidth)
	binary.LittleEndian.PutUint64(b[32:40], s.meta.BucketMask)
	binary.LittleEndian.PutUint64(b[40:48], s.meta.CtrlAddr)
	binary.LittleEndian.PutUint64(b[48:56], s.meta.GrowthLeft)
	binary.LittleEndian.PutUint64(b[56:64], s.meta.Items)
	binary.LittleEndian.PutUint64(b[64:72], farm.Hash64(s.raw))
	binary.LittleEndian.PutUint64(b[72:80], uint64(len(s.raw)))
	copy(b[blobHeaderSize:], s.raw)
	return b, nil
}

// blobCursor reads fixed-width little-endian fields, checking before every
// read that the field still fits in what remains.
type blobCursor struct {
	b   []byte
	off int
}

func (c *blobCursor) u32(field string) (uint32, error) {
	if len(c.b)-c.off < 4 {
		return 0, fmt.Errorf("%s at offset %d: %w", field, c.off, ErrTruncatedBlob)
	}
	v := binary.LittleEndian.Uint32(c.b[c.off : c.off+4])
	c.off += 4
	return v, nil
}

func (c *blobCursor) u64(field string) (uint64, error) {
	if len(c.b)-c.off < 8 {
		return 0, fmt.Errorf("%s at offset %d: %w", field, c.off, ErrTruncatedBlob)
	}
	v := binary.LittleEndian.Uint64(c.b[c.off : c.off+8])
	c.off += 8
	return v, nil
}

// DecodeBlob decodes a blob produced by MarshalBinary into a fresh,
// not-yet-restored snapshot.  The raw bytes are copied out of b, so b may
// be unmapped or reused afterwards.  Decode validates structure only --
// field bounds, exact total length, checksum -- and never returns a
// partially populated snapshot; semantic checks (bucket-mask shape, span
// agreement) belong to Restore.
func DecodeBlob(b []byte) (*Snapshot, error) {
	c := &blobCursor{b: b}

	magic, err := c.u32("magic")
	if err != nil {
		return nil, err
	}
	if magic != magicBlobHeader {
		return nil, fmt.Errorf("%#08x: %w", magic, ErrBadMagic)
	}
	version, err := c.u32("version")
	if err != nil {
		return nil, err
	}
	if version != blobFormatVersion {
		return nil, fmt.Errorf("can only read v%d blobs; found v%d: %w",
			blobFormatVersion, version, ErrUnsupportedVersion)
	}

	var tl TableLayout
	var meta Metadata
	var checksum, rawLen uint64
	for _, f := range []struct {
		name string
		dst  *uint64
	}{
		{"slot size", &tl.SlotSize},
		{"control alignment", &tl.CtrlAlign},
		{"group width", &tl.GroupWidth},
		{"bucket mask", &meta.BucketMask},
		{"control address", &meta.CtrlAddr},
		{"growth left", &meta.GrowthLeft},
		{"item count", &meta.Items},
		{"checksum", &checksum},
		{"buffer length", &rawLen},
	} {
		if *f.dst, err = c.u64(f.name); err != nil {
			return nil, err
		}
	}

	if rest := uint64(len(b) - c.off); rest != rawLen {
		return nil, fmt.Errorf("declared %d buffer bytes, %d remain: %w", rawLen, rest, ErrTrailingBytes)
	}
	raw := make([]byte, rawLen)
	copy(raw, b[c.off:])
	if sum := farm.Hash64(raw); sum != checksum {
		return nil, fmt.Errorf("computed %#x, recorded %#x: %w", sum, checksum, ErrChecksum)
	}

	return &Snapshot{layout: tl, meta: meta, raw: raw}, nil
}

// WriteFile atomically writes the snapshot's blob to path.
func WriteFile(path string, s *Snapshot) error {
	b, err := s.MarshalBinary()
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("atomic.WriteFile(%s): %w", path, err)
	}
	return nil
}

// ReadFile decodes the blob at path into a fresh snapshot.  The file is
// mapped rather than slurped; the snapshot owns a heap copy of the buffer
// by the time ReadFile returns.
func ReadFile(path string) (*Snapshot, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmap.Open(%s): %w", path, err)
	}
	defer func() {
		_ = m.Close()
	}()
	return DecodeBlob(m.Data())
}
