// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package model defines the contract with the on-device neural network
// executor. The executor itself (TFLite Micro interpreter or equivalent) is
// an external collaborator; the core only depends on this interface and on
// the quantization parameters it reports.
package model

import (
	"github.com/relabs-tech/serve_sense/internal/imu"
	"github.com/relabs-tech/serve_sense/internal/quantize"
)

const (
	// SequenceLength is the fixed input window length: 160 samples at 40 Hz
	// is four seconds of motion.
	SequenceLength = 160
	// NumFeatures is the channel count per sample (ax, ay, az, gx, gy, gz).
	NumFeatures = 6
	// NumClasses is the size of the output tensor.
	NumClasses = 4
)

// Input is the flat (160, 6) int8 input tensor, row-major (sample-major)
// like the interpreter's backing array.
type Input [SequenceLength * NumFeatures]int8

// Output is the (4,) int8 output tensor, one score per class.
type Output [NumClasses]int8

// Executor runs inference on one quantized window. Quantization parameters
// are fixed at model load time and read-only afterwards.
type Executor interface {
	InputParams() quantize.Params
	OutputParams() quantize.Params
	Invoke(in *Input) (Output, error)
}

// QuantizeWindow converts sampled motion data into the executor's input
// tensor. Windows shorter than SequenceLength are zero-padded before
// quantization, so padded cells land exactly on the zero point.
func QuantizeWindow(samples []imu.Sample, p quantize.Params) *Input {
	var in Input
	for i := 0; i < SequenceLength; i++ {
		var ch [NumFeatures]float32
		if i < len(samples) {
			ch = samples[i].Channels()
		}
		for j := 0; j < NumFeatures; j++ {
			in[i*NumFeatures+j] = p.Quantize(float64(ch[j]))
		}
	}
	return &in
}
