// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package capture owns the Idle/Recording lifecycle and the session and
// sequence counters shared between the sampling loop and its asynchronous
// inputs (button edge goroutine, remote command callbacks). All shared
// state is held in atomics: the asynchronous paths only call the narrow
// mutators here and never touch the loop's data structures.
package capture

import (
	"sync/atomic"
	"time"
)

// DefaultDebounce is the minimum spacing between accepted button toggles.
const DefaultDebounce = 200 * time.Millisecond

// Controller is the capture state object. The zero value is idle with
// session 0; use New to configure the debounce interval.
type Controller struct {
	recording atomic.Bool
	marker    atomic.Bool
	session   atomic.Uint32
	sequence  atomic.Uint32

	// lastToggle is the wall time in milliseconds of the last accepted
	// button toggle. Only the button path writes it.
	lastToggle atomic.Int64
	debounce   time.Duration
}

// New returns a controller with the given button debounce interval.
// A non-positive interval falls back to DefaultDebounce.
func New(debounce time.Duration) *Controller {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	c := &Controller{debounce: debounce}
	c.lastToggle.Store(-int64(debounce / time.Millisecond))
	return c
}

// Recording reports whether a session is active.
func (c *Controller) Recording() bool { return c.recording.Load() }

// Session returns the current session id.
func (c *Controller) Session() uint16 { return uint16(c.session.Load()) }

// Sequence returns the next sequence number without consuming it.
func (c *Controller) Sequence() uint16 { return uint16(c.sequence.Load()) }

// Start begins a new session: the session id is incremented, the sequence
// counter rewinds to zero, and the marker is raised so the first packet of
// the session flags the boundary. Returns the new session id.
func (c *Controller) Start() uint16 {
	id := c.session.Add(1)
	c.sequence.Store(0)
	c.marker.Store(true)
	c.recording.Store(true)
	return uint16(id)
}

// Stop ends the current session. It reports whether a session was actually
// active, so callers do not classify or notify on a no-op stop.
func (c *Controller) Stop() bool {
	return c.recording.CompareAndSwap(true, false)
}

// PressButton handles one button falling edge at the given time. Edges
// closer than the debounce interval to the previous accepted toggle are
// rejected. An accepted press toggles recording; toggling on starts a new
// session. Reports whether the press was accepted.
func (c *Controller) PressButton(now time.Time) bool {
	ms := now.UnixMilli()
	last := c.lastToggle.Load()
	if ms-last < int64(c.debounce/time.Millisecond) {
		return false
	}
	c.lastToggle.Store(ms)
	if c.recording.Load() {
		c.Stop()
		c.marker.Store(true)
	} else {
		c.Start()
	}
	return true
}

// Mark raises the one-shot marker flag. It reports false when a marker is
// already pending; the duplicate is a policy rejection, not a state change.
func (c *Controller) Mark() bool {
	return c.marker.CompareAndSwap(false, true)
}

// MarkerPending reports whether a marker is waiting to be consumed.
func (c *Controller) MarkerPending() bool { return c.marker.Load() }

// ConsumeMarker clears the marker flag and reports whether it was set.
// Each raised marker is consumed by exactly one packet.
func (c *Controller) ConsumeMarker() bool {
	return c.marker.CompareAndSwap(true, false)
}

// NextSequence returns the current sequence number and advances it. The
// Kth accepted sample of a session carries K-1.
func (c *Controller) NextSequence() uint16 {
	return uint16(c.sequence.Add(1) - 1)
}
