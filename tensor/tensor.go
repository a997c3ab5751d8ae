// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/deconv/internal/tensor"
)

// Type aliases for public API

// DType is a constraint for supported tensor element types:
// float32, int32, uint8.
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Int32   DataType = tensor.Int32
	Uint8   DataType = tensor.Uint8
)

// Shape represents the dimensions of a tensor.
// Example: Shape{1, 3, 3, 1} is an NHWC tensor with a 3×3 spatial grid.
type Shape = tensor.Shape

// QuantParams holds affine quantization parameters (scale, zero point).
type QuantParams = tensor.QuantParams

// RawTensor is a typed contiguous buffer plus a shape.
type RawTensor = tensor.RawTensor

// NewRaw creates a zero-initialized tensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}

// FromSlice creates a tensor from a Go slice.
//
// Example:
//
//	data := []float32{1, 2, 3, 4}
//	x, err := tensor.FromSlice(data, tensor.Shape{1, 2, 2, 1})
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	return tensor.FromSlice(data, shape)
}
