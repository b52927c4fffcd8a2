// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/binary"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/serve_sense/internal/imu"
)

// ICM-20600 register map (the subset this driver touches).
const (
	regGyroConfig  = 0x1B
	regAccelConfig = 0x1C
	regAccelXoutH  = 0x3B
	regPwrMgmt1    = 0x6B
	regWhoAmI      = 0x75

	// WHO_AM_I value of the ICM-20600.
	icm20600ChipID = 0x11

	// DefaultI2CAddr is the sensor's address with AD0 pulled high.
	DefaultI2CAddr = 0x69
)

// Sensitivity at the configured full-scale ranges (±2 g, ±250 dps).
const (
	accelLSBPerG   = 16384.0
	gyroLSBPerDPS  = 131.0
	accelConfig2G  = 0x00
	gyroConfig250  = 0x00
	pwrMgmtWakePLL = 0x01
)

// ICM20600 reads 6-axis samples from the inertial sensor over I2C.
type ICM20600 struct {
	dev i2c.Dev
	bus i2c.BusCloser
}

// NewICM20600 opens the named I2C bus ("" for the first available one),
// wakes the sensor, configures the full-scale ranges, and verifies the chip
// identity. Any failure here is fatal for the device: there is no capture
// without a sensor.
func NewICM20600(busName string, addr uint16) (*ICM20600, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("sensors: periph host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("sensors: open I2C bus %q: %w", busName, err)
	}

	s := &ICM20600{dev: i2c.Dev{Bus: bus, Addr: addr}, bus: bus}

	// Wake from sleep with the gyro PLL as clock source.
	if err := s.writeReg(regPwrMgmt1, pwrMgmtWakePLL); err != nil {
		bus.Close()
		return nil, fmt.Errorf("sensors: wake ICM-20600: %w", err)
	}
	time.Sleep(50 * time.Millisecond)

	if err := s.writeReg(regAccelConfig, accelConfig2G); err != nil {
		bus.Close()
		return nil, fmt.Errorf("sensors: set accel range: %w", err)
	}
	if err := s.writeReg(regGyroConfig, gyroConfig250); err != nil {
		bus.Close()
		return nil, fmt.Errorf("sensors: set gyro range: %w", err)
	}
	time.Sleep(10 * time.Millisecond)

	var who [1]byte
	if err := s.dev.Tx([]byte{regWhoAmI}, who[:]); err != nil {
		bus.Close()
		return nil, fmt.Errorf("sensors: read WHO_AM_I: %w", err)
	}
	if who[0] != icm20600ChipID {
		bus.Close()
		return nil, fmt.Errorf("sensors: unexpected WHO_AM_I 0x%02X (want 0x%02X)", who[0], icm20600ChipID)
	}
	log.Printf("sensors: ICM-20600 ready at 0x%02X (WHO_AM_I=0x%02X, ±2g, ±250dps)", addr, who[0])

	return s, nil
}

func (s *ICM20600) writeReg(reg, val byte) error {
	return s.dev.Tx([]byte{reg, val}, nil)
}

// Read burst-reads accelerometer, temperature, and gyroscope registers in
// one transaction and converts to physical units. The temperature words
// (bytes 6-7) are discarded.
func (s *ICM20600) Read() (imu.Sample, error) {
	var raw [14]byte
	if err := s.dev.Tx([]byte{regAccelXoutH}, raw[:]); err != nil {
		return imu.Sample{}, fmt.Errorf("sensors: burst read: %w", err)
	}

	s16 := func(idx int) int16 {
		return int16(binary.BigEndian.Uint16(raw[idx:]))
	}

	return imu.Sample{
		Ax: float32(s16(0)) / accelLSBPerG,
		Ay: float32(s16(2)) / accelLSBPerG,
		Az: float32(s16(4)) / accelLSBPerG,
		Gx: float32(s16(8)) / gyroLSBPerDPS,
		Gy: float32(s16(10)) / gyroLSBPerDPS,
		Gz: float32(s16(12)) / gyroLSBPerDPS,
	}, nil
}

// Close releases the I2C bus.
func (s *ICM20600) Close() error {
	return s.bus.Close()
}
