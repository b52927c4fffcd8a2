// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package transport carries the device's four logical channels (command
// write, state notify, result notify, and the binary sample stream) over
// MQTT topics.
package transport

import (
	"github.com/relabs-tech/serve_sense/internal/capture"
)

// CommandHandler is invoked for each valid remote command. It runs on the
// transport's delivery goroutine, so it must only call the capture
// controller's non-blocking mutators.
type CommandHandler func(capture.Command)

// Transport is what the device loops publish through. Connected reports
// whether a receiver is currently reachable; the logger uses it to skip
// building packets nobody would see.
type Transport interface {
	PublishState(recording bool) error
	PublishResult(msg string) error
	PublishSample(pkt []byte) error
	SubscribeCommands(h CommandHandler) error
	Connected() bool
	Close()
}
