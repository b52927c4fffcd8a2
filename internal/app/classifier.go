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
	"github.com/relabs-tech/serve_sense/internal/decision"
	"github.com/relabs-tech/serve_sense/internal/feedback"
	"github.com/relabs-tech/serve_sense/internal/model"
	"github.com/relabs-tech/serve_sense/internal/sensors"
	"github.com/relabs-tech/serve_sense/internal/transport"
	"github.com/relabs-tech/serve_sense/internal/window"
)

// Classifier is the on-device classification agent: it owns the capture
// lifecycle and hands completed windows through quantization, inference,
// decision, feedback, and result publishing. One instance, one cooperative
// loop; the button goroutine and the command callbacks only touch the
// capture controller's atomics.
type Classifier struct {
	reader    sensors.SampleReader
	executor  model.Executor
	transport transport.Transport
	sequencer *feedback.Sequencer
	ctrl      *capture.Controller
	win       *window.Window

	readSwitch   func() (bool, error)
	samplePeriod time.Duration
	heartbeat    time.Duration

	// injectable clocks for tests
	now   func() time.Time
	sleep func(time.Duration)

	lastSwitch    bool
	lastRecording bool
	lastSession   uint16
	lastSampleAt  time.Time
	lastBeatAt    time.Time
}

// NewClassifier wires a classifier from its collaborators. readSwitch may
// be nil when no physical switch is attached (remote/button control only).
func NewClassifier(
	reader sensors.SampleReader,
	executor model.Executor,
	tr transport.Transport,
	seq *feedback.Sequencer,
	ctrl *capture.Controller,
	readSwitch func() (bool, error),
	samplePeriod, heartbeat time.Duration,
) *Classifier {
	return &Classifier{
		reader:       reader,
		executor:     executor,
		transport:    tr,
		sequencer:    seq,
		ctrl:         ctrl,
		win:          window.New(model.SequenceLength),
		readSwitch:   readSwitch,
		samplePeriod: samplePeriod,
		heartbeat:    heartbeat,
		now:          time.Now,
		sleep:        time.Sleep,
	}
}

// Run subscribes for remote commands and drives the capture loop until the
// context is cancelled.
func (c *Classifier) Run(ctx context.Context) error {
	if err := c.executor.InputParams().Validate(); err != nil {
		return err
	}
	if err := c.executor.OutputParams().Validate(); err != nil {
		return err
	}
	log.Printf("classifier: model input scale=%.6f zero_point=%d",
		c.executor.InputParams().Scale, c.executor.InputParams().ZeroPoint)

	if err := c.transport.SubscribeCommands(func(cmd capture.Command) {
		applyCommand("classifier", c.ctrl, cmd)
	}); err != nil {
		return err
	}

	log.Println("classifier: ready, flip the switch to record a serve")
	for ctx.Err() == nil {
		c.tick(c.now())
		c.sleep(time.Millisecond)
	}
	return ctx.Err()
}

// tick runs one loop iteration at the given time. It never blocks except
// through the feedback sequencer after a session ends.
func (c *Classifier) tick(now time.Time) {
	c.beat(now)

	// Switch edges. The level is re-read each tick; remote commands and the
	// button change state out of band, so edges only drive transitions in
	// the direction they name.
	if c.readSwitch != nil {
		on, err := c.readSwitch()
		if err == nil {
			if on && !c.lastSwitch {
				c.ctrl.Start()
			} else if !on && c.lastSwitch {
				c.ctrl.Stop()
			}
			c.lastSwitch = on
		}
	}

	recording := c.ctrl.Recording()
	session := c.ctrl.Session()

	switch {
	case recording && !c.lastRecording:
		c.win.Reset()
		c.lastSampleAt = time.Time{}
		log.Printf("classifier: recording started (session %d)", session)
		c.notifyState(true)
	case !recording && c.lastRecording:
		log.Printf("classifier: recording stopped, %d samples collected", c.win.Len())
		c.notifyState(false)
		if c.win.Len() > 0 {
			c.classify()
		}
		c.win.Reset()
	case recording && session != c.lastSession:
		// Remote restarted the session mid-recording: fresh window.
		c.win.Reset()
		log.Printf("classifier: session restarted (session %d)", session)
	}
	c.lastRecording = recording
	c.lastSession = session

	if !recording {
		return
	}
	if !c.lastSampleAt.IsZero() && now.Sub(c.lastSampleAt) < c.samplePeriod {
		return
	}
	c.lastSampleAt = now

	sample, err := c.reader.Read()
	if err != nil {
		// Transient: drop this sample, keep the session alive.
		log.Printf("classifier: sensor read failed: %v", err)
		return
	}
	if c.win.Append(sample) {
		c.ctrl.NextSequence()
	}
}

// classify converts the captured window into the model's tensor format,
// invokes the executor, and turns the output into a result message and a
// haptic pattern. A failed inference leaves state untouched: no message,
// no feedback.
func (c *Classifier) classify() {
	in := model.QuantizeWindow(c.win.Snapshot(), c.executor.InputParams())

	out, err := c.executor.Invoke(in)
	if err != nil {
		log.Printf("classifier: inference failed: %v", err)
		return
	}

	res := decision.Decide(out, c.executor.OutputParams())
	msg := res.Message()
	log.Printf("classifier: result %s", msg)

	if err := c.transport.PublishResult(msg); err != nil {
		log.Printf("classifier: result publish failed: %v", err)
	}

	if res.Confident {
		if err := c.sequencer.Play(feedback.ForLabel(res.Label)); err != nil {
			log.Printf("classifier: feedback failed: %v", err)
		}
	}
}

func (c *Classifier) notifyState(recording bool) {
	if err := c.transport.PublishState(recording); err != nil {
		log.Printf("classifier: state notify failed: %v", err)
	}
}

func (c *Classifier) beat(now time.Time) {
	if c.heartbeat <= 0 || now.Sub(c.lastBeatAt) < c.heartbeat {
		return
	}
	c.lastBeatAt = now
	log.Printf("heartbeat: recording=%v session=%d window=%d/%d",
		c.ctrl.Recording(), c.ctrl.Session(), c.win.Len(), c.win.Cap())
}

// RunClassifier builds the production classifier from the global config and
// runs it until SIGINT/SIGTERM.
func RunClassifier() error {
	cfg := config.Get()

	var reader sensors.SampleReader
	if cfg.UseMockSensor {
		log.Println("classifier: using mock sample source")
		reader = sensors.NewMockReader()
	} else {
		icm, err := sensors.NewICM20600(cfg.I2CBus, cfg.IMUI2CAddr)
		if err != nil {
			return err
		}
		defer icm.Close()
		reader = icm
	}

	tr, err := transport.NewMQTT(cfg.MQTTBroker, cfg.MQTTClientIDClassifier, transport.Topics{
		Ctrl:   cfg.TopicCtrl,
		State:  cfg.TopicState,
		Result: cfg.TopicResult,
		Stream: cfg.TopicStream,
	})
	if err != nil {
		return err
	}
	defer tr.Close()

	var act feedback.Actuator
	if cfg.UseMockSensor {
		act = nopActuator{}
	} else {
		act, err = feedback.NewPinActuator(cfg.PinVibrationMotor, cfg.PinStatusLED)
		if err != nil {
			return err
		}
	}
	seq := feedback.NewSequencer(act)
	if err := seq.Play(feedback.Startup); err != nil {
		log.Printf("classifier: startup feedback failed: %v", err)
	}

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

	// TODO: swap the mock executor for the TFLite Micro sidecar once its Go
	// bindings land; the interface is already the final contract.
	executor := model.NewMockExecutor()

	c := NewClassifier(reader, executor, tr, seq, ctrl, readSwitch,
		time.Duration(cfg.ClassifierSampleInterval)*time.Millisecond,
		time.Duration(cfg.HeartbeatIntervalMS)*time.Millisecond,
	)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		log.Println("classifier: shutting down")
		cancel()
	}()

	if err := c.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// nopActuator discards actuation in mock mode.
type nopActuator struct{}

func (nopActuator) Set(bool) error { return nil }
