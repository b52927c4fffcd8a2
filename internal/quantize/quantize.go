// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package quantize

import (
	"fmt"
	"math"
)

// Params are the affine quantization parameters of a tensor: a positive
// scale and a zero point inside the int8 range. They come from the loaded
// model and must never be hardcoded, or a model update silently
// desynchronizes the math.
type Params struct {
	Scale     float64
	ZeroPoint int
}

// Validate checks the parameters against the int8 tensor contract.
func (p Params) Validate() error {
	if !(p.Scale > 0) {
		return fmt.Errorf("quantize: scale must be positive, got %v", p.Scale)
	}
	if p.ZeroPoint < math.MinInt8 || p.ZeroPoint > math.MaxInt8 {
		return fmt.Errorf("quantize: zero point %d outside int8 range", p.ZeroPoint)
	}
	return nil
}

// Quantize maps a real value to int8 via q = round(v/scale) + zero_point,
// clamped to [-128, 127]. Rounding is half-away-from-zero on the quotient.
func (p Params) Quantize(v float64) int8 {
	q := int(math.Round(v/p.Scale)) + p.ZeroPoint
	if q < math.MinInt8 {
		q = math.MinInt8
	}
	if q > math.MaxInt8 {
		q = math.MaxInt8
	}
	return int8(q)
}

// Dequantize maps a quantized value back to the reals: (q - zero_point) * scale.
func (p Params) Dequantize(q int8) float64 {
	return float64(int(q)-p.ZeroPoint) * p.Scale
}
