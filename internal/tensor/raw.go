package tensor

import (
	"fmt"
	"unsafe"
)

// QuantParams holds affine quantization parameters for a tensor.
// A quantized value q represents the real value Scale * (q - ZeroPoint).
type QuantParams struct {
	Scale     float64
	ZeroPoint int32
}

// RawTensor is the low-level tensor representation: a contiguous,
// exclusively-owned byte buffer plus shape and runtime type information.
//
// Buffers are never shared or aliased between tensors; the owning host
// engine is responsible for their lifetime. Resize reallocates storage
// in place, which is how dynamically-shaped operator outputs and
// scratch buffers are handled.
type RawTensor struct {
	data   []byte
	shape  Shape
	stride []int
	dtype  DataType

	// quant is non-nil only for affinely-quantized tensors.
	quant *QuantParams

	// constant marks tensors whose contents are known before execution
	// (e.g. a compile-time output-shape spec). Operators may resolve
	// shapes eagerly from constant tensors during Prepare.
	constant bool
}

// NewRaw creates a new RawTensor with the given shape and type.
// Memory is allocated and zero-initialized.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	byteSize := shape.NumElements() * dtype.Size()

	return &RawTensor{
		data:   make([]byte, byteSize),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
	}, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Quant returns the tensor's quantization parameters, or nil if the
// tensor is not quantized.
func (r *RawTensor) Quant() *QuantParams {
	return r.quant
}

// SetQuant attaches affine quantization parameters to the tensor.
func (r *RawTensor) SetQuant(scale float64, zeroPoint int32) {
	r.quant = &QuantParams{Scale: scale, ZeroPoint: zeroPoint}
}

// IsConstant reports whether the tensor's contents are known before
// execution.
func (r *RawTensor) IsConstant() bool {
	return r.constant
}

// SetConstant marks or unmarks the tensor as compile-time constant.
func (r *RawTensor) SetConstant(constant bool) {
	r.constant = constant
}

// Resize changes the tensor's shape, reallocating storage when the
// byte size changes. Existing contents are discarded: resized tensors
// are always rewritten in full by the kernels before being read.
func (r *RawTensor) Resize(shape Shape) error {
	if err := shape.Validate(); err != nil {
		return fmt.Errorf("invalid shape: %w", err)
	}

	byteSize := shape.NumElements() * r.dtype.Size()
	if byteSize != len(r.data) {
		r.data = make([]byte, byteSize)
	}
	r.shape = shape.Clone()
	r.stride = shape.ComputeStrides()
	return nil
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	return r.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt32 interprets the data as []int32.
// Panics if the tensor's dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 {
	if r.dtype != Int32 {
		panic(fmt.Sprintf("tensor dtype is %s, not int32", r.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*int32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsUint8 interprets the data as []uint8.
// Panics if the tensor's dtype is not Uint8.
func (r *RawTensor) AsUint8() []uint8 {
	if r.dtype != Uint8 {
		panic(fmt.Sprintf("tensor dtype is %s, not uint8", r.dtype))
	}
	return r.data // Already []byte = []uint8
}

// FromSlice creates a tensor from a Go slice. The slice length must
// match the shape's element count.
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	var dummy T
	dtype := inferDataType(dummy)

	raw, err := NewRaw(shape, dtype)
	if err != nil {
		return nil, err
	}
	if len(data) != raw.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, raw.NumElements())
	}

	switch dtype {
	case Float32:
		copy(raw.AsFloat32(), any(data).([]float32))
	case Int32:
		copy(raw.AsInt32(), any(data).([]int32))
	case Uint8:
		copy(raw.AsUint8(), any(data).([]uint8))
	}
	return raw, nil
}

// inferDataType infers DataType from a generic type T.
func inferDataType[T DType](dummy T) DataType {
	switch any(dummy).(type) {
	case float32:
		return Float32
	case int32:
		return Int32
	case uint8:
		return Uint8
	default:
		panic("unsupported type")
	}
}
