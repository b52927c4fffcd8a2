package app

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/serve_sense/internal/capture"
	"github.com/relabs-tech/serve_sense/internal/feedback"
	"github.com/relabs-tech/serve_sense/internal/imu"
	"github.com/relabs-tech/serve_sense/internal/model"
	"github.com/relabs-tech/serve_sense/internal/quantize"
	"github.com/relabs-tech/serve_sense/internal/transport"
)

// stubReader returns a fixed sample, optionally failing the next few reads.
type stubReader struct {
	sample imu.Sample
	fail   int
	reads  int
}

func (r *stubReader) Read() (imu.Sample, error) {
	r.reads++
	if r.fail > 0 {
		r.fail--
		return imu.Sample{}, errors.New("i2c: bus timeout")
	}
	return r.sample, nil
}

type stubActuator struct{ states []bool }

func (a *stubActuator) Set(on bool) error {
	a.states = append(a.states, on)
	return nil
}

// classifierFixture drives the classifier loop with a synthetic 1 ms clock
// instead of wall time.
type classifierFixture struct {
	reader   *stubReader
	executor *model.MockExecutor
	tr       *transport.Mock
	act      *stubActuator
	switchOn bool
	c        *Classifier
	clock    time.Time
}

// The stub sample quantizes exactly at the mock executor's 1/128 scale.
var stubCells = [6]int8{64, -32, 96, -64, 32, -16}

func newClassifierFixture(t *testing.T) *classifierFixture {
	t.Helper()
	f := &classifierFixture{
		reader: &stubReader{sample: imu.Sample{
			Ax: 0.5, Ay: -0.25, Az: 0.75,
			Gx: -0.5, Gy: 0.25, Gz: -0.125,
		}},
		executor: model.NewMockExecutor(),
		tr:       transport.NewMock(),
		act:      &stubActuator{},
		clock:    time.Unix(1000, 0),
	}
	f.c = NewClassifier(
		f.reader,
		f.executor,
		f.tr,
		feedback.NewSequencer(f.act),
		capture.New(capture.DefaultDebounce),
		func() (bool, error) { return f.switchOn, nil },
		25*time.Millisecond,
		0, // heartbeat off
	)
	return f
}

// run advances the clock one millisecond per tick for the given duration.
func (f *classifierFixture) run(d time.Duration) {
	end := f.clock.Add(d)
	for f.clock.Before(end) {
		f.c.tick(f.clock)
		f.clock = f.clock.Add(time.Millisecond)
	}
}

func TestFullWindowCapture(t *testing.T) {
	f := newClassifierFixture(t)

	// Switch held on for 4.0 s at 40 Hz fills the window exactly.
	f.switchOn = true
	f.run(4 * time.Second)
	assert.Equal(t, model.SequenceLength, f.c.win.Len())

	f.switchOn = false
	f.run(10 * time.Millisecond)

	require.Equal(t, 1, f.executor.Invoked)
	require.NotNil(t, f.executor.LastInput)
	for s := 0; s < model.SequenceLength; s++ {
		for ch := 0; ch < model.NumFeatures; ch++ {
			require.Equal(t, stubCells[ch], f.executor.LastInput[s*model.NumFeatures+ch],
				"sample %d channel %d", s, ch)
		}
	}

	assert.Equal(t, []bool{true, false}, f.tr.States)
	assert.Equal(t, 0, f.c.win.Len(), "window must be discarded after classification")
}

func TestShortWindowIsZeroPadded(t *testing.T) {
	f := newClassifierFixture(t)

	// 1.0 s at 40 Hz collects 40 samples.
	f.switchOn = true
	f.run(time.Second)
	assert.Equal(t, 40, f.c.win.Len())

	f.switchOn = false
	f.run(10 * time.Millisecond)

	require.Equal(t, 1, f.executor.Invoked)
	in := f.executor.LastInput
	assert.Equal(t, stubCells[5], in[40*model.NumFeatures-1], "last real cell")
	zp := int8(f.executor.Input.ZeroPoint)
	for i := 40 * model.NumFeatures; i < len(in); i++ {
		require.Equal(t, zp, in[i], "pad cell %d must sit at the zero point", i)
	}
}

func TestConfidentResultPublishesAndPlaysFeedback(t *testing.T) {
	f := newClassifierFixture(t)
	f.executor.Output = quantize.Params{Scale: 0.01, ZeroPoint: 0}
	f.executor.Result = model.Output{42, 20, 18, 20}

	f.switchOn = true
	f.run(100 * time.Millisecond)
	f.switchOn = false
	f.run(10 * time.Millisecond)

	require.Equal(t, []string{"good-serve:42.0,20.0,18.0,20.0"}, f.tr.Results)

	// Three happy pulses plus the terminal forced-off.
	assert.Equal(t, []bool{true, false, true, false, true, false, false}, f.act.states)
}

func TestUnconfidentResultSkipsFeedback(t *testing.T) {
	f := newClassifierFixture(t)
	f.executor.Output = quantize.Params{Scale: 0.01, ZeroPoint: 0}
	f.executor.Result = model.Output{30, 25, 25, 20}

	f.switchOn = true
	f.run(100 * time.Millisecond)
	f.switchOn = false
	f.run(10 * time.Millisecond)

	require.Equal(t, []string{"UNKNOWN:30.0,25.0,25.0,20.0"}, f.tr.Results)
	assert.Empty(t, f.act.states, "no haptics below the confidence threshold")
}

func TestTransientReadFailureKeepsSessionAlive(t *testing.T) {
	f := newClassifierFixture(t)
	f.reader.fail = 3

	f.switchOn = true
	f.run(time.Second)

	// Three cadence slots lost, session still recording.
	assert.True(t, f.c.ctrl.Recording())
	assert.Equal(t, 37, f.c.win.Len())

	f.switchOn = false
	f.run(10 * time.Millisecond)
	assert.Equal(t, 1, f.executor.Invoked)
}

func TestFailedInferenceLeavesStateUntouched(t *testing.T) {
	f := newClassifierFixture(t)
	f.executor.Err = errors.New("interpreter: tensor arena exhausted")

	f.switchOn = true
	f.run(100 * time.Millisecond)
	f.switchOn = false
	f.run(10 * time.Millisecond)

	assert.Equal(t, 1, f.executor.Invoked)
	assert.Empty(t, f.tr.Results, "failed inference must not publish")
	assert.Empty(t, f.act.states, "failed inference must not actuate")
	assert.Equal(t, []bool{true, false}, f.tr.States, "state notifications are unaffected")
}

func TestRemoteCommandsControlCapture(t *testing.T) {
	f := newClassifierFixture(t)
	require.NoError(t, f.tr.SubscribeCommands(func(cmd capture.Command) {
		applyCommand("classifier", f.c.ctrl, cmd)
	}))

	f.tr.Inject(0x01) // start
	f.run(500 * time.Millisecond)
	assert.Equal(t, 20, f.c.win.Len())

	// Start while recording rewinds the session: fresh window.
	f.tr.Inject(0x01)
	f.run(250 * time.Millisecond)
	assert.Equal(t, 10, f.c.win.Len())
	assert.Equal(t, uint16(2), f.c.ctrl.Session())

	f.tr.Inject(0x00) // stop
	f.run(10 * time.Millisecond)
	assert.False(t, f.c.ctrl.Recording())
	assert.Equal(t, 1, f.executor.Invoked)
}

func TestEmptySessionProducesNoResult(t *testing.T) {
	f := newClassifierFixture(t)
	f.reader.fail = 1 << 20 // every read fails

	f.switchOn = true
	f.run(100 * time.Millisecond)
	f.switchOn = false
	f.run(10 * time.Millisecond)

	assert.Equal(t, 0, f.executor.Invoked, "empty window must not be classified")
	assert.Empty(t, f.tr.Results)
	assert.Equal(t, []bool{true, false}, f.tr.States)
}
