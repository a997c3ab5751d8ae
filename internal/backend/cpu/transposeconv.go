// Package cpu implements the transposed-convolution numeric kernels.
//
// Two kernel variants share one contract: a straightforward reference
// implementation that scatter-accumulates directly into the output,
// and a generic-optimized implementation that stages contributions in
// an unfold (im2col) buffer and finishes with cache-friendly dot
// products. Float results are bit-identical across variants; quantized
// results are identical because integer accumulation is exact.
package cpu

import (
	"fmt"

	"github.com/born-ml/deconv/internal/quant"
	"github.com/born-ml/deconv/internal/tensor"
)

// Kind selects the kernel variant. It is fixed when an operator
// instance is constructed.
type Kind int

// Kernel variants.
const (
	Reference Kind = iota
	GenericOptimized
)

// String returns a human-readable variant name.
func (k Kind) String() string {
	switch k {
	case Reference:
		return "reference"
	case GenericOptimized:
		return "generic-optimized"
	default:
		return "unknown"
	}
}

// ConvParams carries the per-call parameters of a transposed
// convolution. The offset, multiplier, shift, and activation fields
// are meaningful only on the quantized path.
type ConvParams struct {
	StrideHeight int
	StrideWidth  int
	PadHeight    int
	PadWidth     int

	// Quantized path: offsets are the negated zero points of input and
	// filter, and the plain zero point of the output.
	InputOffset  int32
	FilterOffset int32
	OutputOffset int32

	// Fixed-point rescale of the int32 accumulator into output units.
	OutputMultiplier int32
	OutputShift      int

	// Clamp range for the rescaled output, in output quantization units.
	ActivationMin int32
	ActivationMax int32
}

// convDims holds the validated dimensions shared by all kernel
// variants. Input is NHWC, filter is OHWI, output is NHWC.
type convDims struct {
	batches              int
	inH, inW, inDepth    int
	filterH, filterW     int
	outH, outW, outDepth int
}

func checkDims(input, filter, output *tensor.RawTensor) convDims {
	inShape := input.Shape()
	filterShape := filter.Shape()
	outShape := output.Shape()

	if len(inShape) != 4 || len(filterShape) != 4 || len(outShape) != 4 {
		panic(fmt.Sprintf("transpose_conv: input/filter/output must be 4D, got %dD/%dD/%dD",
			len(inShape), len(filterShape), len(outShape)))
	}
	if inShape[3] != filterShape[3] {
		panic(fmt.Sprintf("transpose_conv: input depth %d != filter depth %d",
			inShape[3], filterShape[3]))
	}
	if inShape[0] != outShape[0] {
		panic(fmt.Sprintf("transpose_conv: input batches %d != output batches %d",
			inShape[0], outShape[0]))
	}
	if filterShape[0] != outShape[3] {
		panic(fmt.Sprintf("transpose_conv: filter output channels %d != output depth %d",
			filterShape[0], outShape[3]))
	}

	return convDims{
		batches:  inShape[0],
		inH:      inShape[1],
		inW:      inShape[2],
		inDepth:  inShape[3],
		filterH:  filterShape[1],
		filterW:  filterShape[2],
		outH:     outShape[1],
		outW:     outShape[2],
		outDepth: outShape[3],
	}
}

// checkUnfold validates the unfold buffer shape:
// [batch, outH, outW, filterH*filterW*inDepth].
func checkUnfold(d convDims, unfold *tensor.RawTensor) {
	want := tensor.Shape{d.batches, d.outH, d.outW, d.filterH * d.filterW * d.inDepth}
	if !unfold.Shape().Equal(want) {
		panic(fmt.Sprintf("transpose_conv: unfold buffer shape %v, want %v", unfold.Shape(), want))
	}
}

// TransposeConvFloat32 computes a float32 transposed convolution.
//
// Each input element scatters into the output neighborhood
// (y*strideH-padH+ky, x*strideW-padW+kx) over all filter taps;
// contributions landing outside the output are dropped, which is
// exactly zero-padding the conceptual output before cropping.
//
// The unfold buffer is required by the GenericOptimized variant and
// ignored by the Reference variant.
func TransposeConvFloat32(p ConvParams, kind Kind, input, filter, output, unfold *tensor.RawTensor) {
	d := checkDims(input, filter, output)

	switch kind {
	case Reference:
		transposeConvRefFloat32(p, d, input.AsFloat32(), filter.AsFloat32(), output.AsFloat32())
	case GenericOptimized:
		checkUnfold(d, unfold)
		transposeConvOptFloat32(p, d, input.AsFloat32(), filter.AsFloat32(), output.AsFloat32(), unfold.AsFloat32())
	default:
		panic(fmt.Sprintf("transpose_conv: unknown kernel kind %d", kind))
	}
}

// transposeConvRefFloat32 scatter-accumulates directly into the output.
func transposeConvRefFloat32(p ConvParams, d convDims, in, flt, out []float32) {
	for i := range out {
		out[i] = 0
	}

	for b := 0; b < d.batches; b++ {
		for inY := 0; inY < d.inH; inY++ {
			for inX := 0; inX < d.inW; inX++ {
				// Top-left corner of the scatter neighborhood.
				outYOrigin := inY*p.StrideHeight - p.PadHeight
				outXOrigin := inX*p.StrideWidth - p.PadWidth

				for inC := 0; inC < d.inDepth; inC++ {
					inputValue := in[((b*d.inH+inY)*d.inW+inX)*d.inDepth+inC]

					for fy := 0; fy < d.filterH; fy++ {
						outY := outYOrigin + fy
						if outY < 0 || outY >= d.outH {
							continue
						}
						for fx := 0; fx < d.filterW; fx++ {
							outX := outXOrigin + fx
							if outX < 0 || outX >= d.outW {
								continue
							}
							for outC := 0; outC < d.outDepth; outC++ {
								filterValue := flt[((outC*d.filterH+fy)*d.filterW+fx)*d.inDepth+inC]
								out[((b*d.outH+outY)*d.outW+outX)*d.outDepth+outC] += inputValue * filterValue
							}
						}
					}
				}
			}
		}
	}
}

// transposeConvOptFloat32 stages input rows in the unfold buffer, then
// reduces each output position with one dot product per channel.
func transposeConvOptFloat32(p ConvParams, d convDims, in, flt, out, unfold []float32) {
	for i := range unfold {
		unfold[i] = 0
	}

	scatterUnfoldFloat32(p, d, in, unfold)

	patch := d.filterH * d.filterW * d.inDepth
	for pos := 0; pos < d.batches*d.outH*d.outW; pos++ {
		row := unfold[pos*patch : (pos+1)*patch]
		for outC := 0; outC < d.outDepth; outC++ {
			filterRow := flt[outC*patch : (outC+1)*patch]

			// Taps are reduced in the same order the reference kernel
			// visits them (ascending source row/column, then channel)
			// so float sums are bit-identical across variants.
			var sum float32
			for fy := d.filterH - 1; fy >= 0; fy-- {
				for fx := d.filterW - 1; fx >= 0; fx-- {
					base := (fy*d.filterW + fx) * d.inDepth
					for c := 0; c < d.inDepth; c++ {
						sum += row[base+c] * filterRow[base+c]
					}
				}
			}
			out[pos*d.outDepth+outC] = sum
		}
	}
}

// scatterUnfoldFloat32 writes each input channel row into the unfold
// cells of the output positions its taps reach. Every unfold cell has
// at most one source element, so plain assignment suffices.
func scatterUnfoldFloat32(p ConvParams, d convDims, in []float32, unfold []float32) {
	patch := d.filterH * d.filterW * d.inDepth

	for b := 0; b < d.batches; b++ {
		for inY := 0; inY < d.inH; inY++ {
			for inX := 0; inX < d.inW; inX++ {
				outYOrigin := inY*p.StrideHeight - p.PadHeight
				outXOrigin := inX*p.StrideWidth - p.PadWidth
				inBase := ((b*d.inH+inY)*d.inW + inX) * d.inDepth

				for fy := 0; fy < d.filterH; fy++ {
					outY := outYOrigin + fy
					if outY < 0 || outY >= d.outH {
						continue
					}
					for fx := 0; fx < d.filterW; fx++ {
						outX := outXOrigin + fx
						if outX < 0 || outX >= d.outW {
							continue
						}
						cell := ((b*d.outH+outY)*d.outW+outX)*patch + (fy*d.filterW+fx)*d.inDepth
						copy(unfold[cell:cell+d.inDepth], in[inBase:inBase+d.inDepth])
					}
				}
			}
		}
	}
}

// TransposeConvUint8 computes a uint8 quantized transposed convolution.
//
// Contributions accumulate as zero-point-offset int32 products in the
// accumulator buffer; the accumulator is then rescaled by the
// fixed-point output multiplier, offset by the output zero point,
// clamped to the activation range, and narrowed to uint8.
//
// The accumulator must have the output's shape. The unfold buffer is
// required by the GenericOptimized variant and ignored by Reference.
func TransposeConvUint8(p ConvParams, kind Kind, input, filter, output, unfold, accum *tensor.RawTensor) {
	d := checkDims(input, filter, output)
	if !accum.Shape().Equal(output.Shape()) {
		panic(fmt.Sprintf("transpose_conv: accumulator shape %v, want %v", accum.Shape(), output.Shape()))
	}

	acc := accum.AsInt32()

	switch kind {
	case Reference:
		transposeConvRefUint8(p, d, input.AsUint8(), filter.AsUint8(), acc)
	case GenericOptimized:
		checkUnfold(d, unfold)
		transposeConvOptUint8(p, d, input.AsUint8(), filter.AsUint8(), acc, unfold.AsUint8())
	default:
		panic(fmt.Sprintf("transpose_conv: unknown kernel kind %d", kind))
	}

	requantize(p, acc, output.AsUint8())
}

// transposeConvRefUint8 scatter-accumulates offset products into the
// int32 accumulator.
func transposeConvRefUint8(p ConvParams, d convDims, in, flt []uint8, acc []int32) {
	for i := range acc {
		acc[i] = 0
	}

	for b := 0; b < d.batches; b++ {
		for inY := 0; inY < d.inH; inY++ {
			for inX := 0; inX < d.inW; inX++ {
				outYOrigin := inY*p.StrideHeight - p.PadHeight
				outXOrigin := inX*p.StrideWidth - p.PadWidth

				for inC := 0; inC < d.inDepth; inC++ {
					inputValue := int32(in[((b*d.inH+inY)*d.inW+inX)*d.inDepth+inC]) + p.InputOffset

					for fy := 0; fy < d.filterH; fy++ {
						outY := outYOrigin + fy
						if outY < 0 || outY >= d.outH {
							continue
						}
						for fx := 0; fx < d.filterW; fx++ {
							outX := outXOrigin + fx
							if outX < 0 || outX >= d.outW {
								continue
							}
							for outC := 0; outC < d.outDepth; outC++ {
								filterValue := int32(flt[((outC*d.filterH+fy)*d.filterW+fx)*d.inDepth+inC]) + p.FilterOffset
								acc[((b*d.outH+outY)*d.outW+outX)*d.outDepth+outC] += inputValue * filterValue
							}
						}
					}
				}
			}
		}
	}
}

// transposeConvOptUint8 is the unfold-buffer variant of the quantized
// kernel. Unfold cells default to the input zero point, which cancels
// against InputOffset so absent taps contribute nothing.
func transposeConvOptUint8(p ConvParams, d convDims, in, flt []uint8, acc []int32, unfold []uint8) {
	zeroPoint := uint8(-p.InputOffset)
	for i := range unfold {
		unfold[i] = zeroPoint
	}

	scatterUnfoldUint8(p, d, in, unfold)

	patch := d.filterH * d.filterW * d.inDepth
	for pos := 0; pos < d.batches*d.outH*d.outW; pos++ {
		row := unfold[pos*patch : (pos+1)*patch]
		for outC := 0; outC < d.outDepth; outC++ {
			filterRow := flt[outC*patch : (outC+1)*patch]

			var sum int32
			for k := 0; k < patch; k++ {
				sum += (int32(row[k]) + p.InputOffset) * (int32(filterRow[k]) + p.FilterOffset)
			}
			acc[pos*d.outDepth+outC] = sum
		}
	}
}

func scatterUnfoldUint8(p ConvParams, d convDims, in, unfold []uint8) {
	patch := d.filterH * d.filterW * d.inDepth

	for b := 0; b < d.batches; b++ {
		for inY := 0; inY < d.inH; inY++ {
			for inX := 0; inX < d.inW; inX++ {
				outYOrigin := inY*p.StrideHeight - p.PadHeight
				outXOrigin := inX*p.StrideWidth - p.PadWidth
				inBase := ((b*d.inH+inY)*d.inW + inX) * d.inDepth

				for fy := 0; fy < d.filterH; fy++ {
					outY := outYOrigin + fy
					if outY < 0 || outY >= d.outH {
						continue
					}
					for fx := 0; fx < d.filterW; fx++ {
						outX := outXOrigin + fx
						if outX < 0 || outX >= d.outW {
							continue
						}
						cell := ((b*d.outH+outY)*d.outW+outX)*patch + (fy*d.filterW+fx)*d.inDepth
						copy(unfold[cell:cell+d.inDepth], in[inBase:inBase+d.inDepth])
					}
				}
			}
		}
	}
}

// requantize rescales int32 accumulators into clamped uint8 outputs.
func requantize(p ConvParams, acc []int32, out []uint8) {
	for i, v := range acc {
		scaled := quant.MultiplyByQuantizedMultiplier(v, p.OutputMultiplier, p.OutputShift)
		scaled += p.OutputOffset
		if scaled < p.ActivationMin {
			scaled = p.ActivationMin
		}
		if scaled > p.ActivationMax {
			scaled = p.ActivationMax
		}
		out[i] = uint8(scaled)
	}
}
