package model

import (
	"github.com/relabs-tech/serve_sense/internal/quantize"
)

// MockExecutor is a scripted stand-in for the real interpreter. It records
// the last input tensor and replays a fixed output, which is enough for the
// capture pipeline and for tests. The parameters default to a symmetric
// 1/128 input scale and the common softmax output params (scale 1/256,
// zero point -128).
type MockExecutor struct {
	Input     quantize.Params
	Output    quantize.Params
	Result    Output
	Err       error
	LastInput *Input
	Invoked   int
}

// NewMockExecutor returns a mock with plausible default parameters and a
// strongly "good-serve" output.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		Input:  quantize.Params{Scale: 1.0 / 128.0, ZeroPoint: 0},
		Output: quantize.Params{Scale: 1.0 / 256.0, ZeroPoint: -128},
		Result: Output{127, -96, -101, -96},
	}
}

func (m *MockExecutor) InputParams() quantize.Params  { return m.Input }
func (m *MockExecutor) OutputParams() quantize.Params { return m.Output }

func (m *MockExecutor) Invoke(in *Input) (Output, error) {
	m.Invoked++
	m.LastInput = in
	if m.Err != nil {
		return Output{}, m.Err
	}
	return m.Result, nil
}
