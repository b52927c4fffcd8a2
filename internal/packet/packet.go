// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package packet implements the fixed 36-byte wire record the logger
// variant streams to the collector, one record per accepted sample.
//
// Layout (little-endian):
//
//	u32 millis | u16 session | u16 sequence | f32 ax,ay,az,gx,gy,gz | u8 flags | u8[3] reserved
package packet

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/relabs-tech/serve_sense/internal/imu"
)

// Size is the fixed encoded length in bytes.
const Size = 36

// Field offsets within the encoded record.
const (
	offMillis   = 0
	offSession  = 4
	offSequence = 6
	offAx       = 8
	offFlags    = 32
	offReserved = 33
)

// Flag bits.
const (
	// FlagCapture is set while a recording session is active.
	FlagCapture = 0x01
	// FlagMarker is set on exactly the one packet that consumed a pending
	// marker edge.
	FlagMarker = 0x02
)

// ServePacket is one decoded wire record.
type ServePacket struct {
	Millis   uint32     // monotonic milliseconds since boot
	Session  uint16     // recording session id
	Sequence uint16     // 0-based sample index within the session
	Sample   imu.Sample // six raw float readings
	Flags    uint8
}

// Capture reports whether the capture-active flag is set.
func (p ServePacket) Capture() bool { return p.Flags&FlagCapture != 0 }

// Marker reports whether this packet consumed a marker edge.
func (p ServePacket) Marker() bool { return p.Flags&FlagMarker != 0 }

// Encode serializes the packet into a fresh Size-byte buffer. The reserved
// tail bytes are always zero.
func (p ServePacket) Encode() []byte {
	buf := make([]byte, Size)
	binary.LittleEndian.PutUint32(buf[offMillis:], p.Millis)
	binary.LittleEndian.PutUint16(buf[offSession:], p.Session)
	binary.LittleEndian.PutUint16(buf[offSequence:], p.Sequence)
	for i, v := range p.Sample.Channels() {
		binary.LittleEndian.PutUint32(buf[offAx+4*i:], math.Float32bits(v))
	}
	buf[offFlags] = p.Flags
	return buf
}

// Decode parses one wire record. The buffer must be exactly Size bytes.
func Decode(buf []byte) (ServePacket, error) {
	if len(buf) != Size {
		return ServePacket{}, fmt.Errorf("packet: expected %d bytes, got %d", Size, len(buf))
	}
	var p ServePacket
	p.Millis = binary.LittleEndian.Uint32(buf[offMillis:])
	p.Session = binary.LittleEndian.Uint16(buf[offSession:])
	p.Sequence = binary.LittleEndian.Uint16(buf[offSequence:])
	f := func(i int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[offAx+4*i:]))
	}
	p.Sample = imu.Sample{
		Ax: f(0), Ay: f(1), Az: f(2),
		Gx: f(3), Gy: f(4), Gz: f(5),
	}
	p.Flags = buf[offFlags]
	return p, nil
}
