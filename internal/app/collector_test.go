package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/serve_sense/internal/imu"
	"github.com/relabs-tech/serve_sense/internal/packet"
)

func TestParseSerialLine(t *testing.T) {
	line := "sample t=12345,3,42,0.5000,-0.2500,0.9844,-12.5000,249.0000,0.0000,1\r\n"

	p, ok := parseSerialLine(line)
	require.True(t, ok)

	assert.Equal(t, uint32(12345), p.Millis)
	assert.Equal(t, uint16(3), p.Session)
	assert.Equal(t, uint16(42), p.Sequence)
	assert.Equal(t, imu.Sample{
		Ax: 0.5, Ay: -0.25, Az: 0.9844,
		Gx: -12.5, Gy: 249.0, Gz: 0,
	}, p.Sample)
	assert.True(t, p.Capture())
	assert.False(t, p.Marker())
}

func TestParseSerialLineIdleRow(t *testing.T) {
	p, ok := parseSerialLine("t=100,0,0,0,0,0,0,0,0,0\n")
	require.True(t, ok)
	assert.False(t, p.Capture())
	assert.Equal(t, uint16(0), p.Session)
}

func TestParseSerialLineSkipsNoise(t *testing.T) {
	cases := map[string]string{
		"blank":            "",
		"boot banner":      "logger: ready, streaming on capture\n",
		"heartbeat":        "heartbeat: recording=false session=0 sequence=0\n",
		"too few fields":   "sample t=1,2,3\n",
		"too many fields":  "t=1,2,3,4,5,6,7,8,9,10,11\n",
		"bad millis":       "t=abc,2,3,4,5,6,7,8,9,1\n",
		"bad channel":      "t=1,2,3,x,5,6,7,8,9,1\n",
		"bad capture flag": "t=1,2,3,4,5,6,7,8,9,y\n",
	}
	for name, line := range cases {
		_, ok := parseSerialLine(line)
		assert.False(t, ok, "%s: line %q must be skipped", name, line)
	}
}

func TestParseSerialLineRoundtripsLoggerFormat(t *testing.T) {
	// The logger's own sample log line must parse back to the same fields.
	src := packet.ServePacket{
		Millis:   777,
		Session:  2,
		Sequence: 15,
		Sample:   imu.Sample{Ax: 0.5, Ay: -0.25, Az: 0.75, Gx: -0.5, Gy: 0.25, Gz: -0.125},
		Flags:    packet.FlagCapture,
	}
	line := "sample t=777,2,15,0.5000,-0.2500,0.7500,-0.5000,0.2500,-0.1250,1\n"

	p, ok := parseSerialLine(line)
	require.True(t, ok)
	assert.Equal(t, src, p)
}
