// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"fmt"
	"os"
	"time"
)

/* ------------ tiny UI helpers for single-line progress ------------ */

// GlobalProgress renders a single updating stderr line for one logical
// transfer, with a spinner fallback when the total size is unknown.
type GlobalProgress struct {
	TotalKnown bool
	TotalBytes int64
	doneBytes  int64
	spinIdx    int
	lastTick   time.Time
}

var spinner = []rune{'|', '/', '-', '\\'}

func (gp *GlobalProgress) Add(delta int64) {
	gp.doneBytes += delta
}

func humanBytes(n int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case n >= gb:
		return fmt.Sprintf("%.2f GB", float64(n)/float64(gb))
	case n >= mb:
		return fmt.Sprintf("%.2f MB", float64(n)/float64(mb))
	case n >= kb:
		return fmt.Sprintf("%.2f KB", float64(n)/float64(kb))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func (gp *GlobalProgress) Render(force bool) {
	// throttle to ~10 updates per second
	if !force && time.Since(gp.lastTick) < 100*time.Millisecond {
		return
	}
	gp.lastTick = time.Now()

	if gp.TotalKnown && gp.TotalBytes > 0 {
		pct := float64(gp.doneBytes) / float64(gp.TotalBytes) * 100
		if gp.doneBytes > gp.TotalBytes {
			gp.doneBytes = gp.TotalBytes
			pct = 100
		}
		fmt.Fprintf(os.Stderr, "\rProgress: %6.2f%% (%s / %s)   ",
			pct, humanBytes(gp.doneBytes), humanBytes(gp.TotalBytes))
	} else {
		ch := spinner[gp.spinIdx%len(spinner)]
		gp.spinIdx++
		fmt.Fprintf(os.Stderr, "\rProgress: [%c] %s downloaded   ", ch, humanBytes(gp.doneBytes))
	}
}

func (gp *GlobalProgress) Done() {
	gp.Render(true)
	fmt.Fprintln(os.Stderr)
}
