// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the tensor types consumed by the deconv
// operator: shapes, runtime data types, raw buffers, and affine
// quantization parameters.
//
// # Basic Usage
//
//	import "github.com/born-ml/deconv/tensor"
//
//	input, err := tensor.FromSlice(
//	    []float32{1, 1, 1, 1},
//	    tensor.Shape{1, 2, 2, 1}, // NHWC
//	)
//
// Quantized tensors carry affine parameters:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{1, 2, 2, 1}, tensor.Uint8)
//	raw.SetQuant(0.5, 128) // real = 0.5 * (q - 128)
package tensor
