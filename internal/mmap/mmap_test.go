// Copyright 2025 The frozen Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	want := []byte("mapped contents")
	require.NoError(t, os.WriteFile(path, want, 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, len(want), r.Len())
	require.Equal(t, want, r.Data())
	require.NoError(t, r.Close())
}

func TestOpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	require.Zero(t, r.Len())
	require.NoError(t, r.Close())
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
