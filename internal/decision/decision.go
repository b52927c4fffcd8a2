// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package decision

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/relabs-tech/serve_sense/internal/model"
	"github.com/relabs-tech/serve_sense/internal/quantize"
)

// Label identifies one serve class of the trained model.
type Label int

const (
	GoodServe Label = iota
	JerkyMotion
	LacksPronation
	ShortSwing
)

var labelNames = [model.NumClasses]string{
	"good-serve",
	"jerky-motion",
	"lacks-pronation",
	"short-swing",
}

func (l Label) String() string {
	if l < 0 || int(l) >= len(labelNames) {
		return "unknown"
	}
	return labelNames[l]
}

// Unknown is the name carried by a result whose best probability falls
// below the confidence threshold.
const Unknown = "UNKNOWN"

// MinConfidence is the inclusive threshold on the winning probability.
const MinConfidence = 0.35

// Result is one classification outcome: the winning label, whether it
// cleared the confidence threshold, and the dequantized probability of
// every class. Dequantized values are not renormalized, so they need not
// sum to one.
type Result struct {
	Label     Label
	Confident bool
	Probs     [model.NumClasses]float64
}

// Decide dequantizes the raw output tensor and selects the class with the
// strictly greatest probability. On exact ties the first class wins; later
// equal classes do not override. Confidence is max_prob >= MinConfidence.
func Decide(out model.Output, p quantize.Params) Result {
	var r Result
	max := math.Inf(-1)
	for i, q := range out {
		prob := p.Dequantize(q)
		r.Probs[i] = prob
		if prob > max {
			max = prob
			r.Label = Label(i)
		}
	}
	r.Confident = max >= MinConfidence
	return r
}

// Message formats the result for the notify channel:
// "<label-or-UNKNOWN>:<p0>,<p1>,<p2>,<p3>", each probability a percentage
// with one fractional digit. UNKNOWN results still carry all probabilities.
func (r Result) Message() string {
	name := Unknown
	if r.Confident {
		name = r.Label.String()
	}
	return fmt.Sprintf("%s:%.1f,%.1f,%.1f,%.1f",
		name,
		r.Probs[0]*100,
		r.Probs[1]*100,
		r.Probs[2]*100,
		r.Probs[3]*100,
	)
}

// ParseMessage decodes a result message back into label name and
// percentages, for the collector and the consoles.
func ParseMessage(msg string) (label string, percents [model.NumClasses]float64, err error) {
	head, tail, ok := strings.Cut(msg, ":")
	if !ok {
		return "", percents, fmt.Errorf("decision: malformed result %q", msg)
	}
	parts := strings.Split(tail, ",")
	if len(parts) != model.NumClasses {
		return "", percents, fmt.Errorf("decision: expected %d probabilities, got %d", model.NumClasses, len(parts))
	}
	for i, part := range parts {
		v, perr := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if perr != nil {
			return "", percents, fmt.Errorf("decision: probability %d: %w", i, perr)
		}
		percents[i] = v
	}
	return head, percents, nil
}
