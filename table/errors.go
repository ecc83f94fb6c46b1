// Copyright 2025 The frozen Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package table

import "errors"

var (
	// ErrBadSlotSize means a slot passed to Put doesn't match the table's
	// slot stride.
	ErrBadSlotSize = errors.New("slot length disagrees with table layout")
)
