// Package ops implements the transposed-convolution operator
// lifecycle: a one-time Prepare that resolves shapes, padding, scratch
// buffers, and quantization parameters, followed by any number of Eval
// calls that run the numeric kernel.
package ops

import (
	"fmt"

	"github.com/born-ml/deconv/internal/backend/cpu"
	"github.com/born-ml/deconv/internal/quant"
	"github.com/born-ml/deconv/internal/tensor"
)

// Host is the execution engine the operator runs inside. It owns every
// tensor buffer; the operator only holds slot ids.
type Host interface {
	// AddTensor reserves a new tensor slot and returns its id.
	AddTensor(dtype tensor.DataType) int

	// Tensor returns the tensor in the given slot.
	Tensor(id int) *tensor.RawTensor

	// Resize (re)sizes a slot's buffer to an exact shape.
	Resize(id int, shape tensor.Shape) error

	// Reportf records a human-readable diagnostic message.
	Reportf(format string, args ...any)
}

// Config holds the immutable operator parameters.
type Config struct {
	StrideHeight int
	StrideWidth  int
	Padding      PaddingMode
}

// AllocKind says how a buffer's size is managed across the lifecycle.
type AllocKind int

// Allocation kinds.
const (
	// AllocFixed: the shape was resolved during Prepare and the buffer
	// sized once.
	AllocFixed AllocKind = iota

	// AllocPerCall: the shape comes from a non-constant spec and the
	// buffer is resized at the start of every Eval.
	AllocPerCall
)

// Args names the operator's tensor slots in the host.
type Args struct {
	OutputShape int // rank-1 int32 spec of the desired output shape
	Filter      int // OHWI filter tensor
	Input       int // NHWC data input
	Output      int // NHWC output
}

const tensorNotAllocated = -1

// TransposeConv is a configured transposed-convolution operator
// instance. It owns its scratch slots exclusively; Prepare and Eval on
// the same instance must be serialized by the caller.
type TransposeConv struct {
	cfg    Config
	kernel cpu.Kind
	host   Host

	// Scratch buffer slots, allocated lazily during Prepare.
	unfoldID int
	accumID  int

	padding Padding

	// Quantized path state, derived once per shape configuration.
	outputMultiplier int32
	outputShift      int
	activationMin    int32
	activationMax    int32

	outputAlloc AllocKind
	unfoldAlloc AllocKind
	accumAlloc  AllocKind

	prepared bool
}

// NewTransposeConv creates an operator instance bound to a host.
// Panics on non-positive strides: the configuration is produced by the
// caller's own code, not by input data.
func NewTransposeConv(host Host, cfg Config, kernel cpu.Kind) *TransposeConv {
	if cfg.StrideHeight <= 0 || cfg.StrideWidth <= 0 {
		panic(fmt.Sprintf("transpose_conv: invalid stride %dx%d", cfg.StrideHeight, cfg.StrideWidth))
	}
	return &TransposeConv{
		cfg:      cfg,
		kernel:   kernel,
		host:     host,
		unfoldID: tensorNotAllocated,
		accumID:  tensorNotAllocated,
	}
}

// Kernel returns the kernel variant the instance was built with.
func (op *TransposeConv) Kernel() cpu.Kind {
	return op.kernel
}

// Padding returns the padding derived from the last shape resolution.
func (op *TransposeConv) Padding() Padding {
	return op.padding
}

// failf reports the diagnostic to the host and returns the wrapped
// error kind.
func (op *TransposeConv) failf(kind error, format string, args ...any) error {
	op.host.Reportf(format, args...)
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// resolveOutputShape reads the concrete rank-4 shape out of the spec
// tensor's current values.
func (op *TransposeConv) resolveOutputShape(spec *tensor.RawTensor) (tensor.Shape, error) {
	values := spec.AsInt32()
	shape := make(tensor.Shape, len(values))
	for i, v := range values {
		shape[i] = int(v)
	}
	if err := shape.Validate(); err != nil {
		return nil, op.failf(ErrShape, "output shape spec %v is not a valid shape: %v", values, err)
	}
	return shape, nil
}

// unfoldShape returns the scratch shape for the unfold buffer:
// per output position, one flattened receptive field.
func unfoldShape(outShape tensor.Shape, filter, input *tensor.RawTensor) tensor.Shape {
	filterH := filter.Shape()[1]
	filterW := filter.Shape()[2]
	inDepth := input.Shape()[3]
	return tensor.Shape{outShape[0], outShape[1], outShape[2], filterH * filterW * inDepth}
}

// Prepare validates the operator's tensors and establishes static
// state: resolved shapes and padding when the output-shape spec is
// constant, scratch buffer slots, and quantization parameters.
//
// Prepare is idempotent: calling it again with the same tensors yields
// identical padding and scratch shapes.
func (op *TransposeConv) Prepare(args Args) error {
	shapeSpec := op.host.Tensor(args.OutputShape)
	filter := op.host.Tensor(args.Filter)
	input := op.host.Tensor(args.Input)
	output := op.host.Tensor(args.Output)

	// All contract checks run before any buffer is allocated or
	// resized, so a rejected operator leaves the host untouched.
	if rank := len(shapeSpec.Shape()); rank != 1 {
		return op.failf(ErrShape, "output shape spec has rank %d, expected 1", rank)
	}
	if shapeSpec.DType() != tensor.Int32 {
		return op.failf(ErrShape, "output shape spec is %s, not int32", shapeSpec.DType())
	}
	if n := shapeSpec.NumElements(); n != 4 {
		return op.failf(ErrShape, "output shape spec has %d elements, expected 4", n)
	}
	if rank := len(input.Shape()); rank != 4 {
		return op.failf(ErrShape, "input has rank %d, expected 4", rank)
	}
	if rank := len(filter.Shape()); rank != 4 {
		return op.failf(ErrShape, "filter has rank %d, expected 4", rank)
	}
	if input.DType() != tensor.Float32 && input.DType() != tensor.Uint8 {
		return op.failf(ErrType, "input type %s is not supported", input.DType())
	}
	if filter.DType() != input.DType() {
		return op.failf(ErrType, "filter type %s does not match input type %s",
			filter.DType(), input.DType())
	}
	if output.DType() != input.DType() {
		return op.failf(ErrType, "output type %s does not match input type %s",
			output.DType(), input.DType())
	}
	if input.Shape()[3] != filter.Shape()[3] {
		return op.failf(ErrShape, "input channels %d do not match filter channels %d",
			input.Shape()[3], filter.Shape()[3])
	}

	quantized := input.DType() == tensor.Uint8
	if quantized {
		if input.Quant() == nil || filter.Quant() == nil || output.Quant() == nil {
			return op.failf(ErrQuantization,
				"quantized operator requires quantization params on input, filter, and output")
		}
	}

	if op.unfoldID == tensorNotAllocated {
		op.unfoldID = op.host.AddTensor(input.DType())
	}

	if shapeSpec.IsConstant() {
		outShape, err := op.resolveOutputShape(shapeSpec)
		if err != nil {
			return err
		}
		if err := op.host.Resize(args.Output, outShape); err != nil {
			return op.failf(ErrShape, "resizing output to %v: %v", outShape, err)
		}
		if err := op.host.Resize(op.unfoldID, unfoldShape(outShape, filter, input)); err != nil {
			return op.failf(ErrShape, "resizing unfold buffer: %v", err)
		}
		op.outputAlloc = AllocFixed
		op.unfoldAlloc = AllocFixed
	} else {
		// Defer resizing until Eval, when the spec values exist.
		op.outputAlloc = AllocPerCall
		op.unfoldAlloc = AllocPerCall
	}

	if quantized {
		if op.accumID == tensorNotAllocated {
			op.accumID = op.host.AddTensor(tensor.Int32)
		}
		if op.outputAlloc == AllocFixed {
			if err := op.host.Resize(op.accumID, output.Shape().Clone()); err != nil {
				return op.failf(ErrShape, "resizing accumulator: %v", err)
			}
			op.accumAlloc = AllocFixed
		} else {
			op.accumAlloc = AllocPerCall
		}

		realMultiplier, err := quant.ConvolutionScale(input.Quant(), filter.Quant(), output.Quant())
		if err != nil {
			return op.failf(ErrQuantization, "%v", err)
		}
		op.outputMultiplier, op.outputShift = quant.QuantizeMultiplier(realMultiplier)
		op.activationMin, op.activationMax = quant.ActivationRangeUint8(output)
	}

	op.prepared = true
	return nil
}

// Eval runs one execution: re-resolves deferred shapes, recomputes
// padding, and dispatches the numeric kernel.
func (op *TransposeConv) Eval(args Args) error {
	if !op.prepared {
		panic("transpose_conv: Eval called before successful Prepare")
	}

	shapeSpec := op.host.Tensor(args.OutputShape)
	filter := op.host.Tensor(args.Filter)
	input := op.host.Tensor(args.Input)
	output := op.host.Tensor(args.Output)

	// Resize any deferred dynamic tensors from the spec's current
	// values. No caching: a spec that changed since the last call is
	// honored.
	if op.outputAlloc == AllocPerCall {
		outShape, err := op.resolveOutputShape(shapeSpec)
		if err != nil {
			return err
		}
		if err := op.host.Resize(args.Output, outShape); err != nil {
			return op.failf(ErrShape, "resizing output to %v: %v", outShape, err)
		}
	}
	if op.unfoldAlloc == AllocPerCall {
		if err := op.host.Resize(op.unfoldID, unfoldShape(output.Shape(), filter, input)); err != nil {
			return op.failf(ErrShape, "resizing unfold buffer: %v", err)
		}
	}

	outHeight := output.Shape()[1]
	outWidth := output.Shape()[2]
	filterHeight := filter.Shape()[1]
	filterWidth := filter.Shape()[2]

	// The resolved output plays the role of the forward-convolution
	// image, so padding is derived from its dimensions on every call.
	op.padding = ComputePaddingHeightWidth(
		op.cfg.StrideHeight, op.cfg.StrideWidth, 1,
		outHeight, outWidth, filterHeight, filterWidth, op.cfg.Padding)

	params := cpu.ConvParams{
		StrideHeight: op.cfg.StrideHeight,
		StrideWidth:  op.cfg.StrideWidth,
		PadHeight:    op.padding.Height,
		PadWidth:     op.padding.Width,
	}

	switch input.DType() {
	case tensor.Float32:
		cpu.TransposeConvFloat32(params, op.kernel, input, filter, output, op.host.Tensor(op.unfoldID))

	case tensor.Uint8:
		if op.accumAlloc == AllocPerCall {
			if err := op.host.Resize(op.accumID, output.Shape().Clone()); err != nil {
				return op.failf(ErrShape, "resizing accumulator: %v", err)
			}
		}
		params.InputOffset = -input.Quant().ZeroPoint
		params.FilterOffset = -filter.Quant().ZeroPoint
		params.OutputOffset = output.Quant().ZeroPoint
		params.OutputMultiplier = op.outputMultiplier
		params.OutputShift = op.outputShift
		params.ActivationMin = op.activationMin
		params.ActivationMax = op.activationMax
		cpu.TransposeConvUint8(params, op.kernel, input, filter, output,
			op.host.Tensor(op.unfoldID), op.host.Tensor(op.accumID))

	default:
		return op.failf(ErrType, "type %s is not currently supported", input.DType())
	}
	return nil
}
