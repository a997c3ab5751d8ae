// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ops

import (
	"github.com/born-ml/deconv/internal/backend/cpu"
	"github.com/born-ml/deconv/internal/ops"
)

// Type aliases for public API

// Host is the execution engine contract the operator runs inside.
type Host = ops.Host

// Config holds the immutable operator parameters.
type Config = ops.Config

// Args names the operator's tensor slots in the host.
type Args = ops.Args

// Padding holds per-axis padding offsets.
type Padding = ops.Padding

// PaddingMode selects how convolution padding is derived.
type PaddingMode = ops.PaddingMode

// Padding modes.
const (
	PaddingValid PaddingMode = ops.PaddingValid
	PaddingSame  PaddingMode = ops.PaddingSame
)

// Kernel selects the numeric kernel variant.
type Kernel = cpu.Kind

// Kernel variants. Both produce identical results; the
// generic-optimized variant stages contributions in an unfold buffer
// for cache-friendly accumulation.
const (
	KernelReference        Kernel = cpu.Reference
	KernelGenericOptimized Kernel = cpu.GenericOptimized
)

// TransposeConv is a configured transposed-convolution operator
// instance.
type TransposeConv = ops.TransposeConv

// NewTransposeConv creates an operator instance bound to a host.
func NewTransposeConv(host Host, cfg Config, kernel Kernel) *TransposeConv {
	return ops.NewTransposeConv(host, cfg, kernel)
}

// Error kinds, classifiable with errors.Is.
var (
	ErrShape        = ops.ErrShape
	ErrType         = ops.ErrType
	ErrQuantization = ops.ErrQuantization
)
