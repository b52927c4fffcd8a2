// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/relabs-tech/serve_sense/internal/imu"
)

type mockReader struct {
	start time.Time
}

// NewMockReader creates a sample source that generates a smooth synthetic
// swing, for running the agents without hardware attached.
func NewMockReader() SampleReader {
	return &mockReader{start: time.Now()}
}

func (m *mockReader) Read() (imu.Sample, error) {
	elapsed := time.Since(m.start).Seconds()

	return imu.Sample{
		Ax: float32(0.8 * math.Sin(2*math.Pi*elapsed)),
		Ay: float32(0.5 * math.Cos(2*math.Pi*elapsed*0.7)),
		Az: float32(1.0 + 0.2*math.Sin(2*math.Pi*elapsed*1.3)),
		Gx: float32(90 * math.Sin(2*math.Pi*elapsed*0.5)),
		Gy: float32(45 * math.Cos(2*math.Pi*elapsed)),
		Gz: float32(30 * math.Sin(2*math.Pi*elapsed*2)),
	}, nil
}
