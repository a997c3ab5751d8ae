// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ops exposes the transposed-convolution operator.
//
// The operator follows a two-phase lifecycle: Prepare is called once
// to validate tensors and establish shapes, padding, scratch buffers,
// and quantization parameters; Eval is then called any number of
// times. When the output-shape spec tensor is constant, all buffers
// are sized during Prepare; otherwise they are resized at the start of
// every Eval from the spec's current values.
//
//	import (
//	    "github.com/born-ml/deconv/engine"
//	    "github.com/born-ml/deconv/ops"
//	    "github.com/born-ml/deconv/tensor"
//	)
//
//	host := engine.New()
//	op := ops.NewTransposeConv(host, ops.Config{
//	    StrideHeight: 2,
//	    StrideWidth:  2,
//	    Padding:      ops.PaddingSame,
//	}, ops.KernelGenericOptimized)
//
//	if err := op.Prepare(args); err != nil { ... }
//	if err := op.Eval(args); err != nil { ... }
package ops
