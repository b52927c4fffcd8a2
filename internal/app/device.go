// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/relabs-tech/serve_sense/internal/capture"
	"github.com/relabs-tech/serve_sense/internal/config"
)

// switchReader returns a function that reads the record switch level each
// call. The switch is treated as debounced by wiring, but the level is
// re-read on every poll rather than latched from an edge.
func switchReader(cfg *config.Config) (func() (bool, error), error) {
	pin := gpioreg.ByName(cfg.PinRecordSwitch)
	if pin == nil {
		return nil, fmt.Errorf("record switch pin %q not found", cfg.PinRecordSwitch)
	}
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("record switch pin %q: %w", cfg.PinRecordSwitch, err)
	}
	activeLow := cfg.SwitchActiveLow
	return func() (bool, error) {
		level := pin.Read()
		if activeLow {
			return level == gpio.Low, nil
		}
		return level == gpio.High, nil
	}, nil
}

// watchButton runs a goroutine that blocks on falling edges of the capture
// button and feeds them to the controller. The controller's mutators are
// the only side effects allowed here; the sampling loop picks up the state
// change on its next iteration.
func watchButton(ctx context.Context, cfg *config.Config, ctrl *capture.Controller) error {
	pin := gpioreg.ByName(cfg.PinCaptureButton)
	if pin == nil {
		return fmt.Errorf("capture button pin %q not found", cfg.PinCaptureButton)
	}
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return fmt.Errorf("capture button pin %q: %w", cfg.PinCaptureButton, err)
	}

	go func() {
		for ctx.Err() == nil {
			if !pin.WaitForEdge(time.Second) {
				continue
			}
			// Re-read the level instead of trusting the latched edge.
			if pin.Read() != gpio.Low {
				continue
			}
			if ctrl.PressButton(time.Now()) {
				log.Printf("button: toggled (recording=%v)", ctrl.Recording())
			}
		}
	}()
	return nil
}

// applyCommand dispatches one remote command against the controller and
// logs the outcome. Commands that change nothing are policy rejections:
// logged, no state change.
func applyCommand(tag string, ctrl *capture.Controller, cmd capture.Command) {
	if ctrl.Apply(cmd) {
		log.Printf("%s: command %s (session %d)", tag, cmd, ctrl.Session())
	} else {
		log.Printf("%s: command %s ignored", tag, cmd)
	}
}
