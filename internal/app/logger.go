// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/serve_sense/internal/capture"
	"github.com/relabs-tech/serve_sense/internal/config"
	"github.com/relabs-tech/serve_sense/internal/packet"
	"github.com/relabs-tech/serve_sense/internal/sensors"
	"github.com/relabs-tech/serve_sense/internal/transport"
)

// Logger is the streaming variant of the device agent: instead of
// classifying locally it frames every accepted sample as a 36-byte packet
// and hands it to the transport. Samples are read even while idle so the
// sensor timing stays warm; packets are only built when capture is active
// or a marker is pending, and only when a receiver is attached.
type Logger struct {
	reader    sensors.SampleReader
	transport transport.Transport
	ctrl      *capture.Controller

	readSwitch   func() (bool, error)
	samplePeriod time.Duration
	heartbeat    time.Duration

	now   func() time.Time
	sleep func(time.Duration)
	start time.Time

	lastSwitch    bool
	lastRecording bool
	lastSampleAt  time.Time
	lastBeatAt    time.Time
}

// NewLogger wires a logger agent from its collaborators.
func NewLogger(
	reader sensors.SampleReader,
	tr transport.Transport,
	ctrl *capture.Controller,
	readSwitch func() (bool, error),
	samplePeriod, heartbeat time.Duration,
) *Logger {
	now := time.Now
	return &Logger{
		reader:       reader,
		transport:    tr,
		ctrl:         ctrl,
		readSwitch:   readSwitch,
		samplePeriod: samplePeriod,
		heartbeat:    heartbeat,
		now:          now,
		sleep:        time.Sleep,
		start:        now(),
	}
}

// Run subscribes for remote commands and drives the sampling loop until
// the context is cancelled.
func (l *Logger) Run(ctx context.Context) error {
	if err := l.transport.SubscribeCommands(func(cmd capture.Command) {
		applyCommand("logger", l.ctrl, cmd)
	}); err != nil {
		return err
	}

	log.Println("logger: ready, streaming on capture")
	for ctx.Err() == nil {
		l.tick(l.now())
		l.sleep(time.Millisecond)
	}
	return ctx.Err()
}

// millis returns monotonic milliseconds since the agent started.
func (l *Logger) millis(now time.Time) uint32 {
	return uint32(now.Sub(l.start).Milliseconds())
}

// tick runs one loop iteration at the given time.
func (l *Logger) tick(now time.Time) {
	l.beat(now)

	if l.readSwitch != nil {
		on, err := l.readSwitch()
		if err == nil {
			if on && !l.lastSwitch {
				l.ctrl.Start()
			} else if !on && l.lastSwitch {
				l.ctrl.Stop()
			}
			l.lastSwitch = on
		}
	}

	recording := l.ctrl.Recording()
	if recording != l.lastRecording {
		if recording {
			log.Printf("logger: capture started (session %d)", l.ctrl.Session())
		} else {
			log.Println("logger: capture stopped")
		}
		if err := l.transport.PublishState(recording); err != nil {
			log.Printf("logger: state notify failed: %v", err)
		}
		l.lastRecording = recording
	}

	// Enforce cadence by elapsed time, not by sleeping out the period, so
	// command handling and state detection are never starved.
	if !l.lastSampleAt.IsZero() && now.Sub(l.lastSampleAt) < l.samplePeriod {
		return
	}
	l.lastSampleAt = now

	sample, err := l.reader.Read()
	if err != nil {
		if recording {
			log.Printf("logger: sensor read failed: %v", err)
		}
		return
	}

	if !recording && !l.ctrl.MarkerPending() {
		return
	}

	var seq uint16
	if recording {
		seq = l.ctrl.NextSequence()
		log.Printf("sample t=%d,%d,%d,%.4f,%.4f,%.4f,%.4f,%.4f,%.4f,%d",
			l.millis(now), l.ctrl.Session(), seq,
			sample.Ax, sample.Ay, sample.Az, sample.Gx, sample.Gy, sample.Gz, 1)
	} else {
		seq = l.ctrl.Sequence()
	}

	if !l.transport.Connected() {
		// No receiver: the packet is discarded unbuilt. A pending marker
		// stays pending for the first packet after reattach.
		return
	}

	var flags uint8
	if recording {
		flags |= packet.FlagCapture
	}
	if l.ctrl.ConsumeMarker() {
		flags |= packet.FlagMarker
	}

	pkt := packet.ServePacket{
		Millis:   l.millis(now),
		Session:  l.ctrl.Session(),
		Sequence: seq,
		Sample:   sample,
		Flags:    flags,
	}
	if err := l.transport.PublishSample(pkt.Encode()); err != nil {
		log.Printf("logger: sample publish failed: %v", err)
	}
}

func (l *Logger) beat(now time.Time) {
	if l.heartbeat <= 0 || now.Sub(l.lastBeatAt) < l.heartbeat {
		return
	}
	l.lastBeatAt = now
	log.Printf("heartbeat: recording=%v session=%d sequence=%d",
		l.ctrl.Recording(), l.ctrl.Session(), l.ctrl.Sequence())
}

// RunLogger builds the production logger from the global config and runs
// it until SIGINT/SIGTERM.
func RunLogger() error {
	cfg := config.Get()

	var reader sensors.SampleReader
	if cfg.UseMockSensor {
		log.Println("logger: using mock sample source")
		reader = sensors.NewMockReader()
	} else {
		icm, err := sensors.NewICM20600(cfg.I2CBus, cfg.IMUI2CAddr)
		if err != nil {
			return err
		}
		defer icm.Close()
		reader = icm
	}

	tr, err := transport.NewMQTT(cfg.MQTTBroker, cfg.MQTTClientIDLogger, transport.Topics{
		Ctrl:   cfg.TopicCtrl,
		State:  cfg.TopicState,
		Result: cfg.TopicResult,
		Stream: cfg.TopicStream,
	})
	if err != nil {
		return err
	}
	defer tr.Close()

	ctrl := capture.New(time.Duration(cfg.ButtonDebounceMS) * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var readSwitch func() (bool, error)
	if !cfg.UseMockSensor {
		readSwitch, err = switchReader(cfg)
		if err != nil {
			return err
		}
		if err := watchButton(ctx, cfg, ctrl); err != nil {
			return err
		}
	}

	l := NewLogger(reader, tr, ctrl, readSwitch,
		time.Duration(cfg.LoggerSampleInterval)*time.Millisecond,
		time.Duration(cfg.HeartbeatIntervalMS)*time.Millisecond,
	)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		log.Println("logger: shutting down")
		cancel()
	}()

	if err := l.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
