// Copyright 2025 The frozen Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// frozen-inspect decodes a blob file, restores it, and prints what it finds:
// the capture-time layout, the table metadata, and the offset of every
// occupied slot.  It renders slot bytes as hex -- it has no idea what types
// the capture host stored in them.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/frostlabs/frozen"
)

func main() {
	var (
		hexDump bool
		limit   int
	)
	flag.BoolVar(&hexDump, "hex", false, "hex-dump the bytes of each occupied slot")
	flag.IntVar(&limit, "limit", 0, "stop after this many slots (0 means all)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: frozen-inspect [flags] <blob-file>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := inspect(flag.Arg(0), hexDump, limit); err != nil {
		fmt.Fprintf(os.Stderr, "frozen-inspect: %s\n", err)
		os.Exit(1)
	}
}

func inspect(path string, hexDump bool, limit int) error {
	snap, err := frozen.ReadFile(path)
	if err != nil {
		return err
	}

	restored, err := snap.Restore()
	if err != nil {
		return err
	}

	tl := snap.Layout()
	meta := snap.Metadata()
	fmt.Printf("layout:  slot stride %d, ctrl align %d, group width %d\n",
		tl.SlotSize, tl.CtrlAlign, tl.GroupWidth)
	fmt.Printf("table:   %d items, bucket mask %#x, growth left %d\n",
		meta.Items, meta.BucketMask, meta.GrowthLeft)
	fmt.Printf("buffer:  %d bytes\n", snap.Size())

	if !restored {
		fmt.Println("empty singleton: no storage was ever allocated")
		return nil
	}

	it, err := snap.RawIter()
	if err != nil {
		return err
	}
	var view *frozen.SlotView
	if hexDump {
		// byte-level access needs no alignment beyond 1
		if view, err = snap.Reinterpret(tl.SlotSize, 1); err != nil {
			return err
		}
	}

	n := 0
	for ref, ok := it.Next(); ok; ref, ok = it.Next() {
		if limit > 0 && n >= limit {
			fmt.Printf("... %d more\n", it.Remaining()+1)
			break
		}
		if hexDump {
			fmt.Printf("slot @ %8d  %s\n", ref.Offset, hex.EncodeToString(view.Bytes(ref)))
		} else {
			fmt.Printf("slot @ %8d\n", ref.Offset)
		}
		n++
	}
	return nil
}
