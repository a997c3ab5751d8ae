// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package engine provides the reference host implementation for the
// deconv operator: an arena of tensor slots with a diagnostic sink.
//
// An Arena satisfies the ops.Host contract. Each operator instance
// should own its slots exclusively; an Arena is not safe for
// concurrent use, but independent arenas may run in parallel.
package engine

import (
	"github.com/born-ml/deconv/internal/arena"
	"github.com/born-ml/deconv/ops"
)

// Arena owns tensor buffers addressed by integer slot ids.
type Arena = arena.Arena

// Compile-time check that Arena satisfies the operator's host contract.
var _ ops.Host = (*Arena)(nil)

// New creates an empty arena.
func New() *Arena {
	return arena.New()
}
