package cpu

import (
	"testing"

	"github.com/born-ml/deconv/internal/quant"
	"github.com/born-ml/deconv/internal/tensor"
)

func newFloat32(t *testing.T, shape tensor.Shape, data []float32) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.FromSlice(data, shape)
	if err != nil {
		t.Fatalf("FromSlice(%v) failed: %v", shape, err)
	}
	return raw
}

func newUnfold(t *testing.T, dtype tensor.DataType, outShape, filterShape, inShape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	shape := tensor.Shape{outShape[0], outShape[1], outShape[2], filterShape[1] * filterShape[2] * inShape[3]}
	raw, err := tensor.NewRaw(shape, dtype)
	if err != nil {
		t.Fatalf("NewRaw(%v) failed: %v", shape, err)
	}
	return raw
}

// TestTransposeConvFloat32_ScatterSum verifies the canonical scatter
// scenario: 2x2 ones input, 2x2 ones filter, stride 1 into a 3x3
// output. The center receives 4 overlapping taps, edges 2, corners 1.
func TestTransposeConvFloat32_ScatterSum(t *testing.T) {
	input := newFloat32(t, tensor.Shape{1, 2, 2, 1}, []float32{1, 1, 1, 1})
	filter := newFloat32(t, tensor.Shape{1, 2, 2, 1}, []float32{1, 1, 1, 1})
	output, _ := tensor.NewRaw(tensor.Shape{1, 3, 3, 1}, tensor.Float32)
	unfold := newUnfold(t, tensor.Float32, output.Shape(), filter.Shape(), input.Shape())

	params := ConvParams{StrideHeight: 1, StrideWidth: 1}

	expected := []float32{
		1, 2, 1,
		2, 4, 2,
		1, 2, 1,
	}

	for _, kind := range []Kind{Reference, GenericOptimized} {
		TransposeConvFloat32(params, kind, input, filter, output, unfold)

		outputData := output.AsFloat32()
		for i, exp := range expected {
			if outputData[i] != exp {
				t.Errorf("%s: output[%d] = %.1f, want %.1f", kind, i, outputData[i], exp)
			}
		}
	}
}

// TestTransposeConvFloat32_BoundaryCrop verifies that taps mapping to
// negative or out-of-range output coordinates contribute nothing: a
// 1x1 input with a 3x3 filter fills a 3x3 output with the raw filter.
func TestTransposeConvFloat32_BoundaryCrop(t *testing.T) {
	input := newFloat32(t, tensor.Shape{1, 1, 1, 1}, []float32{2})
	filter := newFloat32(t, tensor.Shape{1, 3, 3, 1}, []float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})
	output, _ := tensor.NewRaw(tensor.Shape{1, 3, 3, 1}, tensor.Float32)
	unfold := newUnfold(t, tensor.Float32, output.Shape(), filter.Shape(), input.Shape())

	// Zero padding: the single input element sits at output (0,0), so
	// the full filter lands in-bounds scaled by 2.
	params := ConvParams{StrideHeight: 1, StrideWidth: 1}
	expected := []float32{
		2, 4, 6,
		8, 10, 12,
		14, 16, 18,
	}

	for _, kind := range []Kind{Reference, GenericOptimized} {
		TransposeConvFloat32(params, kind, input, filter, output, unfold)
		outputData := output.AsFloat32()
		for i, exp := range expected {
			if outputData[i] != exp {
				t.Errorf("%s pad=0: output[%d] = %.1f, want %.1f", kind, i, outputData[i], exp)
			}
		}
	}

	// Padding 1: the scatter origin moves to (-1,-1), cropping the
	// first filter row and column. Only the bottom-right 2x2 of the
	// filter lands in-bounds.
	params = ConvParams{StrideHeight: 1, StrideWidth: 1, PadHeight: 1, PadWidth: 1}
	expected = []float32{
		10, 12, 0,
		16, 18, 0,
		0, 0, 0,
	}

	for _, kind := range []Kind{Reference, GenericOptimized} {
		TransposeConvFloat32(params, kind, input, filter, output, unfold)
		outputData := output.AsFloat32()
		for i, exp := range expected {
			if outputData[i] != exp {
				t.Errorf("%s pad=1: output[%d] = %.1f, want %.1f", kind, i, outputData[i], exp)
			}
		}
	}
}

// TestTransposeConvFloat32_Stride2 upsamples a 2x2 input to 4x4 with
// stride 2 and a 2x2 filter: each input element owns a disjoint 2x2
// output block.
func TestTransposeConvFloat32_Stride2(t *testing.T) {
	input := newFloat32(t, tensor.Shape{1, 2, 2, 1}, []float32{1, 2, 3, 4})
	filter := newFloat32(t, tensor.Shape{1, 2, 2, 1}, []float32{1, 10, 100, 1000})
	output, _ := tensor.NewRaw(tensor.Shape{1, 4, 4, 1}, tensor.Float32)
	unfold := newUnfold(t, tensor.Float32, output.Shape(), filter.Shape(), input.Shape())

	params := ConvParams{StrideHeight: 2, StrideWidth: 2}

	expected := []float32{
		1, 10, 2, 20,
		100, 1000, 200, 2000,
		3, 30, 4, 40,
		300, 3000, 400, 4000,
	}

	for _, kind := range []Kind{Reference, GenericOptimized} {
		TransposeConvFloat32(params, kind, input, filter, output, unfold)
		outputData := output.AsFloat32()
		for i, exp := range expected {
			if outputData[i] != exp {
				t.Errorf("%s: output[%d] = %.1f, want %.1f", kind, i, outputData[i], exp)
			}
		}
	}
}

// TestTransposeConvFloat32_MultiChannel checks channel indexing with 2
// input channels and 2 output channels.
func TestTransposeConvFloat32_MultiChannel(t *testing.T) {
	// Input [1,1,2,2]: positions (0,0)=[1,2] and (0,1)=[3,4].
	input := newFloat32(t, tensor.Shape{1, 1, 2, 2}, []float32{1, 2, 3, 4})
	// Filter [2,1,1,2] (OHWI): out channel 0 weights [1,1] sums input
	// channels; out channel 1 weights [1,-1] differences them.
	filter := newFloat32(t, tensor.Shape{2, 1, 1, 2}, []float32{1, 1, 1, -1})
	output, _ := tensor.NewRaw(tensor.Shape{1, 1, 2, 2}, tensor.Float32)
	unfold := newUnfold(t, tensor.Float32, output.Shape(), filter.Shape(), input.Shape())

	params := ConvParams{StrideHeight: 1, StrideWidth: 1}

	expected := []float32{
		3, -1, // position (0,0): 1+2, 1-2
		7, -1, // position (0,1): 3+4, 3-4
	}

	for _, kind := range []Kind{Reference, GenericOptimized} {
		TransposeConvFloat32(params, kind, input, filter, output, unfold)
		outputData := output.AsFloat32()
		for i, exp := range expected {
			if outputData[i] != exp {
				t.Errorf("%s: output[%d] = %.1f, want %.1f", kind, i, outputData[i], exp)
			}
		}
	}
}

// TestTransposeConvFloat32_VariantsBitIdentical runs both variants
// over an irregular configuration (stride 2, 3x3 filter, overlapping
// taps, multiple channels and batches) and requires exact equality.
func TestTransposeConvFloat32_VariantsBitIdentical(t *testing.T) {
	inShape := tensor.Shape{2, 3, 4, 3}
	filterShape := tensor.Shape{2, 3, 3, 3}
	outShape := tensor.Shape{2, 6, 8, 2}

	input, _ := tensor.NewRaw(inShape, tensor.Float32)
	inputData := input.AsFloat32()
	for i := range inputData {
		inputData[i] = float32(i%13)*0.37 - 2.1
	}

	filter, _ := tensor.NewRaw(filterShape, tensor.Float32)
	filterData := filter.AsFloat32()
	for i := range filterData {
		filterData[i] = float32(i%7)*0.59 - 1.8
	}

	refOut, _ := tensor.NewRaw(outShape, tensor.Float32)
	optOut, _ := tensor.NewRaw(outShape, tensor.Float32)
	unfold := newUnfold(t, tensor.Float32, outShape, filterShape, inShape)

	params := ConvParams{StrideHeight: 2, StrideWidth: 2, PadHeight: 1, PadWidth: 1}

	TransposeConvFloat32(params, Reference, input, filter, refOut, nil)
	TransposeConvFloat32(params, GenericOptimized, input, filter, optOut, unfold)

	refData := refOut.AsFloat32()
	optData := optOut.AsFloat32()
	for i := range refData {
		if refData[i] != optData[i] {
			t.Fatalf("variants differ at index %d: reference=%v, optimized=%v",
				i, refData[i], optData[i])
		}
	}
}

// TestTransposeConvUint8_MatchesFloatAtUnitScale checks the quantized
// path against the float path with scale 1.0 and zero point 0
// everywhere: results must agree exactly on small integer data.
func TestTransposeConvUint8_MatchesFloatAtUnitScale(t *testing.T) {
	inShape := tensor.Shape{1, 2, 2, 1}
	filterShape := tensor.Shape{1, 2, 2, 1}
	outShape := tensor.Shape{1, 3, 3, 1}

	inputQ, _ := tensor.FromSlice([]uint8{1, 2, 3, 4}, inShape)
	filterQ, _ := tensor.FromSlice([]uint8{1, 2, 1, 2}, filterShape)

	inputF := newFloat32(t, inShape, []float32{1, 2, 3, 4})
	filterF := newFloat32(t, filterShape, []float32{1, 2, 1, 2})

	outputF, _ := tensor.NewRaw(outShape, tensor.Float32)
	TransposeConvFloat32(ConvParams{StrideHeight: 1, StrideWidth: 1}, Reference,
		inputF, filterF, outputF, nil)

	multiplier, shift := quant.QuantizeMultiplier(1.0)
	params := ConvParams{
		StrideHeight:     1,
		StrideWidth:      1,
		OutputMultiplier: multiplier,
		OutputShift:      shift,
		ActivationMin:    0,
		ActivationMax:    255,
	}

	outputQ, _ := tensor.NewRaw(outShape, tensor.Uint8)
	accum, _ := tensor.NewRaw(outShape, tensor.Int32)
	unfold := newUnfold(t, tensor.Uint8, outShape, filterShape, inShape)

	for _, kind := range []Kind{Reference, GenericOptimized} {
		TransposeConvUint8(params, kind, inputQ, filterQ, outputQ, unfold, accum)

		floatData := outputF.AsFloat32()
		quantData := outputQ.AsUint8()
		for i := range floatData {
			if float32(quantData[i]) != floatData[i] {
				t.Errorf("%s: output[%d] = %d, float path has %.1f",
					kind, i, quantData[i], floatData[i])
			}
		}
	}
}

// TestTransposeConvUint8_ZeroPoints verifies offset arithmetic: with
// nonzero zero points, dequantized results must track the real-valued
// computation.
func TestTransposeConvUint8_ZeroPoints(t *testing.T) {
	inShape := tensor.Shape{1, 2, 2, 1}
	filterShape := tensor.Shape{1, 2, 2, 1}
	outShape := tensor.Shape{1, 3, 3, 1}

	// Real input values 1,2,3,4 at zero point 10.
	inputQ, _ := tensor.FromSlice([]uint8{11, 12, 13, 14}, inShape)
	// Real filter values 1,1,1,1 at zero point 100.
	filterQ, _ := tensor.FromSlice([]uint8{101, 101, 101, 101}, filterShape)

	// Real expected output: scatter-sum of 1,2,3,4 with an all-ones
	// 2x2 filter, at output zero point 3 and scale 1.
	expectedReal := []int32{
		1, 3, 2,
		4, 10, 6,
		3, 7, 4,
	}

	multiplier, shift := quant.QuantizeMultiplier(1.0)
	params := ConvParams{
		StrideHeight:     1,
		StrideWidth:      1,
		InputOffset:      -10,
		FilterOffset:     -100,
		OutputOffset:     3,
		OutputMultiplier: multiplier,
		OutputShift:      shift,
		ActivationMin:    0,
		ActivationMax:    255,
	}

	outputQ, _ := tensor.NewRaw(outShape, tensor.Uint8)
	accum, _ := tensor.NewRaw(outShape, tensor.Int32)
	unfold := newUnfold(t, tensor.Uint8, outShape, filterShape, inShape)

	for _, kind := range []Kind{Reference, GenericOptimized} {
		TransposeConvUint8(params, kind, inputQ, filterQ, outputQ, unfold, accum)

		outputData := outputQ.AsUint8()
		for i, real := range expectedReal {
			want := real + params.OutputOffset
			if int32(outputData[i]) != want {
				t.Errorf("%s: output[%d] = %d, want %d", kind, i, outputData[i], want)
			}
		}
	}
}

// TestTransposeConvUint8_ActivationClamp checks accumulator values are
// clamped into the activation range before narrowing.
func TestTransposeConvUint8_ActivationClamp(t *testing.T) {
	inShape := tensor.Shape{1, 1, 1, 1}
	filterShape := tensor.Shape{1, 1, 1, 1}
	outShape := tensor.Shape{1, 1, 1, 1}

	inputQ, _ := tensor.FromSlice([]uint8{200}, inShape)
	filterQ, _ := tensor.FromSlice([]uint8{200}, filterShape)

	multiplier, shift := quant.QuantizeMultiplier(1.0)
	params := ConvParams{
		StrideHeight:     1,
		StrideWidth:      1,
		OutputMultiplier: multiplier,
		OutputShift:      shift,
		ActivationMin:    0,
		ActivationMax:    255,
	}

	outputQ, _ := tensor.NewRaw(outShape, tensor.Uint8)
	accum, _ := tensor.NewRaw(outShape, tensor.Int32)
	unfold := newUnfold(t, tensor.Uint8, outShape, filterShape, inShape)

	// 200*200 = 40000 saturates to the activation max.
	TransposeConvUint8(params, Reference, inputQ, filterQ, outputQ, unfold, accum)
	if got := outputQ.AsUint8()[0]; got != 255 {
		t.Errorf("output = %d, want 255 (clamped)", got)
	}
}

// TestTransposeConvUint8_VariantsIdentical compares both quantized
// variants over an overlapping-stride configuration.
func TestTransposeConvUint8_VariantsIdentical(t *testing.T) {
	inShape := tensor.Shape{1, 3, 3, 2}
	filterShape := tensor.Shape{2, 3, 3, 2}
	outShape := tensor.Shape{1, 5, 5, 2}

	input, _ := tensor.NewRaw(inShape, tensor.Uint8)
	inputData := input.AsUint8()
	for i := range inputData {
		inputData[i] = uint8((i * 37) % 251)
	}

	filter, _ := tensor.NewRaw(filterShape, tensor.Uint8)
	filterData := filter.AsUint8()
	for i := range filterData {
		filterData[i] = uint8((i * 53) % 251)
	}

	multiplier, shift := quant.QuantizeMultiplier(0.00784313)
	params := ConvParams{
		StrideHeight:     2,
		StrideWidth:      2,
		PadHeight:        1,
		PadWidth:         1,
		InputOffset:      -128,
		FilterOffset:     -120,
		OutputOffset:     128,
		OutputMultiplier: multiplier,
		OutputShift:      shift,
		ActivationMin:    0,
		ActivationMax:    255,
	}

	refOut, _ := tensor.NewRaw(outShape, tensor.Uint8)
	optOut, _ := tensor.NewRaw(outShape, tensor.Uint8)
	accum, _ := tensor.NewRaw(outShape, tensor.Int32)
	unfold := newUnfold(t, tensor.Uint8, outShape, filterShape, inShape)

	TransposeConvUint8(params, Reference, input, filter, refOut, nil, accum)
	TransposeConvUint8(params, GenericOptimized, input, filter, optOut, unfold, accum)

	refData := refOut.AsUint8()
	optData := optOut.AsUint8()
	for i := range refData {
		if refData[i] != optData[i] {
			t.Fatalf("variants differ at index %d: reference=%d, optimized=%d",
				i, refData[i], optData[i])
		}
	}
}

// TestTransposeConv_ShapeMismatchPanics: execute-time shape
// inconsistencies are precondition violations, not recoverable errors.
func TestTransposeConv_ShapeMismatchPanics(t *testing.T) {
	input := newFloat32(t, tensor.Shape{1, 2, 2, 2}, make([]float32, 8))
	filter := newFloat32(t, tensor.Shape{1, 2, 2, 1}, make([]float32, 4)) // depth mismatch
	output, _ := tensor.NewRaw(tensor.Shape{1, 3, 3, 1}, tensor.Float32)

	defer func() {
		if r := recover(); r == nil {
			t.Error("depth mismatch should panic")
		}
	}()
	TransposeConvFloat32(ConvParams{StrideHeight: 1, StrideWidth: 1}, Reference,
		input, filter, output, nil)
}
