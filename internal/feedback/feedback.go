// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package feedback plays the haptic/visual pulse patterns that turn a
// classification into something the wearer can feel. Playback deliberately
// blocks the caller: feedback only runs after a session ends, and the worst
// case pattern is under 2.5 seconds.
package feedback

import (
	"time"

	"github.com/relabs-tech/serve_sense/internal/decision"
)

// Step is one timed actuation state. The motor and the status LED are
// driven together.
type Step struct {
	On       bool
	Duration time.Duration
}

// Pattern is an ordered list of steps executed strictly in order.
type Pattern []Step

// repeat builds n copies of an on/off pulse pair.
func repeat(n int, on, off time.Duration) Pattern {
	p := make(Pattern, 0, 2*n)
	for i := 0; i < n; i++ {
		p = append(p, Step{true, on}, Step{false, off})
	}
	return p
}

// Startup is the single long pulse played at boot.
var Startup = Pattern{{true, 1000 * time.Millisecond}}

var patterns = map[decision.Label]Pattern{
	// three quick happy pulses
	decision.GoodServe: repeat(3, 100*time.Millisecond, 100*time.Millisecond),
	// two long rough pulses
	decision.JerkyMotion: repeat(2, 400*time.Millisecond, 200*time.Millisecond),
	// one long warning pulse then two short
	decision.LacksPronation: append(
		Pattern{{true, 500 * time.Millisecond}, {false, 150 * time.Millisecond}},
		repeat(2, 100*time.Millisecond, 100*time.Millisecond)...),
	// four very short rapid pulses
	decision.ShortSwing: repeat(4, 80*time.Millisecond, 80*time.Millisecond),
}

// ForLabel returns the pattern for a class, or nil when none is defined.
func ForLabel(l decision.Label) Pattern {
	return patterns[l]
}

// Actuator switches the feedback outputs on or off.
type Actuator interface {
	Set(on bool) error
}

// Sequencer plays patterns on an actuator.
type Sequencer struct {
	act   Actuator
	sleep func(time.Duration)
}

// NewSequencer builds a sequencer using real sleeps.
func NewSequencer(act Actuator) *Sequencer {
	return &Sequencer{act: act, sleep: time.Sleep}
}

// Play executes every step in order, blocking for each step's duration.
// The outputs are forced off afterwards regardless of the pattern's final
// step or any actuator error along the way.
func (s *Sequencer) Play(p Pattern) error {
	defer s.act.Set(false)
	for _, step := range p {
		if err := s.act.Set(step.On); err != nil {
			return err
		}
		s.sleep(step.Duration)
	}
	return nil
}
