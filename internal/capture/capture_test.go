package capture

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartResetsSequenceAndRaisesMarker(t *testing.T) {
	c := New(0)

	id := c.Start()
	assert.Equal(t, uint16(1), id)
	assert.True(t, c.Recording())
	assert.True(t, c.MarkerPending())

	// Sessions scope the sequence counter to zero.
	for k := 0; k < 5; k++ {
		assert.Equal(t, uint16(k), c.NextSequence())
	}
	c.Stop()

	id = c.Start()
	assert.Equal(t, uint16(2), id)
	assert.Equal(t, uint16(0), c.NextSequence())
}

func TestStopOnlyWhileRecording(t *testing.T) {
	c := New(0)
	assert.False(t, c.Stop(), "stop while idle must be a no-op")
	c.Start()
	assert.True(t, c.Stop())
	assert.False(t, c.Stop(), "second stop must report no change")
}

func TestButtonDebounce(t *testing.T) {
	c := New(200 * time.Millisecond)
	t0 := time.Now()

	// Two edges 150 ms apart collapse to one toggle.
	assert.True(t, c.PressButton(t0))
	assert.False(t, c.PressButton(t0.Add(150*time.Millisecond)))
	assert.True(t, c.Recording())

	// Two edges 250 ms apart produce two toggles.
	assert.True(t, c.PressButton(t0.Add(250*time.Millisecond)))
	assert.False(t, c.Recording())
	assert.True(t, c.PressButton(t0.Add(500*time.Millisecond)))
	assert.True(t, c.Recording())
}

func TestButtonToggleOnStartsNewSession(t *testing.T) {
	c := New(200 * time.Millisecond)
	t0 := time.Now()

	c.PressButton(t0)
	assert.Equal(t, uint16(1), c.Session())
	c.NextSequence()
	c.NextSequence()

	c.PressButton(t0.Add(time.Second))     // off
	c.PressButton(t0.Add(2 * time.Second)) // on again

	assert.Equal(t, uint16(2), c.Session())
	assert.Equal(t, uint16(0), c.Sequence())
}

func TestMarkerIsOneShot(t *testing.T) {
	c := New(0)

	assert.True(t, c.Mark())
	assert.False(t, c.Mark(), "duplicate marker while pending must be rejected")

	assert.True(t, c.ConsumeMarker())
	assert.False(t, c.ConsumeMarker(), "marker must be consumed exactly once")

	assert.True(t, c.Mark(), "marker can be raised again after consumption")
}

func TestParseCommand(t *testing.T) {
	for b, want := range map[byte]Command{0x00: CmdStop, 0x01: CmdStart, 0x02: CmdMark} {
		cmd, err := ParseCommand(b)
		assert.NoError(t, err)
		assert.Equal(t, want, cmd)
	}
	_, err := ParseCommand(0x7F)
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	c := New(0)

	assert.False(t, c.Apply(CmdStop), "stop while idle changes nothing")
	assert.True(t, c.Apply(CmdStart))
	assert.True(t, c.Recording())
	assert.Equal(t, uint16(1), c.Session())

	// Start while recording begins a fresh session.
	c.NextSequence()
	assert.True(t, c.Apply(CmdStart))
	assert.Equal(t, uint16(2), c.Session())
	assert.Equal(t, uint16(0), c.Sequence())

	c.ConsumeMarker()
	assert.True(t, c.Apply(CmdMark))
	assert.False(t, c.Apply(CmdMark), "duplicate marker is a policy rejection")

	assert.True(t, c.Apply(CmdStop))
	assert.False(t, c.Recording())
}

// The controller is written against concurrent access from the button
// goroutine and command callbacks; the race detector keeps this honest.
func TestConcurrentMutators(t *testing.T) {
	c := New(time.Millisecond)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.Apply(CmdStart)
				c.NextSequence()
				c.Mark()
				c.ConsumeMarker()
				c.Apply(CmdStop)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint16(4000), c.Session())
}
