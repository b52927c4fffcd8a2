// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package window

import (
	"github.com/relabs-tech/serve_sense/internal/imu"
)

// Window is the fixed-capacity sample buffer fed to the classifier. Storage
// is allocated once and reused across sessions; Reset only zeroes the count.
type Window struct {
	samples []imu.Sample
	count   int
}

// New allocates a window holding up to capacity samples.
func New(capacity int) *Window {
	return &Window{samples: make([]imu.Sample, capacity)}
}

// Append stores one sample in insertion order. Once the window is full,
// further samples are silently dropped and Append reports false.
func (w *Window) Append(s imu.Sample) bool {
	if w.count >= len(w.samples) {
		return false
	}
	w.samples[w.count] = s
	w.count++
	return true
}

// Len returns the number of samples captured since the last Reset.
func (w *Window) Len() int { return w.count }

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.samples) }

// Reset clears the window for reuse without releasing storage.
func (w *Window) Reset() {
	w.count = 0
}

// Snapshot returns a full-capacity copy of the window. Entries past Len()
// are zero-valued on all six channels, never stale data from a previous
// session.
func (w *Window) Snapshot() []imu.Sample {
	out := make([]imu.Sample, len(w.samples))
	copy(out, w.samples[:w.count])
	return out
}
