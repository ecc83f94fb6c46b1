// Copyright 2025 The frozen Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package mmap provides minimal read-only memory mapping of files, used for
// decoding blob files without copying them through the page cache twice.
package mmap

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ReaderAt is a read-only view of a file's contents.
type ReaderAt struct {
	f    *os.File
	data []byte
}

// Open maps path read-only.  Blobs are consumed front to back, so the
// mapping is advised for sequential access.
func Open(path string) (*ReaderAt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s): %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("f.Stat: %w", err)
	}
	if st.Size() == 0 {
		return &ReaderAt{f: f}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("unix.Mmap: %w", err)
	}
	// best effort; the mapping works fine without it
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	return &ReaderAt{f: f, data: data}, nil
}

// Data returns the mapped contents.  The slice is invalid after Close.
func (r *ReaderAt) Data() []byte {
	return r.data
}

// Len returns the length of the mapping.
func (r *ReaderAt) Len() int {
	return len(r.data)
}

// Close unmaps and closes the file.
func (r *ReaderAt) Close() error {
	var err error
	if r.data != nil {
		err = unix.Munmap(r.data)
		r.data = nil
	}
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	return err
}
