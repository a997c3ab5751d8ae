// Package quant implements fixed-point requantization math for the
// uint8 operator path.
//
// A real-valued rescale factor is decomposed into an int32 multiplier
// plus a binary shift so that 32-bit accumulators can be scaled back
// to the output's quantized domain without floating-point arithmetic
// in the inner loop.
package quant

import (
	"fmt"
	"math"

	"github.com/born-ml/deconv/internal/tensor"
)

// ConvolutionScale returns the combined rescale factor for a quantized
// convolution: inputScale * filterScale / outputScale.
//
// The result must be a positive finite number; anything else means the
// tensors' quantization parameters cannot be composed and the operator
// must fail.
func ConvolutionScale(input, filter, output *tensor.QuantParams) (float64, error) {
	scale := input.Scale * filter.Scale / output.Scale
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return 0, fmt.Errorf("combined convolution scale %v is not a positive finite number "+
			"(input=%v filter=%v output=%v)", scale, input.Scale, filter.Scale, output.Scale)
	}
	return scale, nil
}

// QuantizeMultiplier decomposes a positive real multiplier into a
// normalized fixed-point multiplier and a shift exponent such that
//
//	real ≈ multiplier * 2^(shift-31)
//
// The multiplier is normalized into [2^30, 2^31). Positive shifts mean
// a left shift is applied before the fixed-point multiply, negative
// shifts a rounding right shift after it.
func QuantizeMultiplier(real float64) (multiplier int32, shift int) {
	if real == 0 {
		return 0, 0
	}

	q, s := math.Frexp(real)
	qFixed := int64(math.Round(q * (1 << 31)))
	if qFixed > 1<<31 {
		panic(fmt.Sprintf("quantize multiplier: %v rounds outside fixed-point range", real))
	}
	if qFixed == 1<<31 {
		qFixed /= 2
		s++
	}
	// A shift below -31 would discard every bit of the multiplier.
	if s < -31 {
		return 0, 0
	}
	return int32(qFixed), s
}

// saturatingRoundingDoublingHighMul returns the high 32 bits of
// 2*a*b with rounding, saturating the single overflow case
// (both operands MinInt32).
func saturatingRoundingDoublingHighMul(a, b int32) int32 {
	if a == math.MinInt32 && b == math.MinInt32 {
		return math.MaxInt32
	}
	ab := int64(a) * int64(b)
	nudge := int64(1 << 30)
	if ab < 0 {
		nudge = 1 - (1 << 30)
	}
	// Truncating division, not an arithmetic shift: negative values
	// must round toward zero here or the nudge over-corrects.
	return int32((ab + nudge) / (1 << 31))
}

// roundingDivideByPOT divides by 2^exponent, rounding half away from
// zero. exponent must be in [0, 31].
func roundingDivideByPOT(x int32, exponent int) int32 {
	if exponent < 0 || exponent > 31 {
		panic(fmt.Sprintf("rounding divide: exponent %d out of range", exponent))
	}
	mask := int32(1)<<uint(exponent) - 1
	remainder := x & mask
	threshold := mask >> 1
	if x < 0 {
		threshold++
	}
	result := x >> uint(exponent)
	if remainder > threshold {
		result++
	}
	return result
}

// MultiplyByQuantizedMultiplier scales a 32-bit accumulator by the
// fixed-point multiplier produced by QuantizeMultiplier:
//
//	result ≈ x * multiplier * 2^(shift-31)
func MultiplyByQuantizedMultiplier(x, multiplier int32, shift int) int32 {
	leftShift := 0
	rightShift := 0
	if shift > 0 {
		leftShift = shift
	} else {
		rightShift = -shift
	}
	return roundingDivideByPOT(
		saturatingRoundingDoublingHighMul(x<<uint(leftShift), multiplier), rightShift)
}

// ActivationRangeUint8 returns the usable output range for a quantized
// uint8 tensor with no fused activation: the full representable range,
// expressed in the output's own quantization units.
func ActivationRangeUint8(_ *tensor.RawTensor) (activationMin, activationMax int32) {
	return 0, 255
}
