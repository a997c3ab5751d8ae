// Package arena implements the host side of the operator lifecycle:
// a flat store of tensor slots that operators allocate, resize, and
// read during prepare/eval, plus a diagnostic sink for contract
// violations.
//
// An Arena is not safe for concurrent use; each operator instance is
// expected to own its slots exclusively and callers serialize
// prepare/eval per instance. Independent arenas may be used from
// different goroutines without interference.
package arena

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/deconv/internal/tensor"
)

// Arena owns tensor buffers addressed by integer slot ids.
type Arena struct {
	tensors []*tensor.RawTensor

	// diagnostics collects human-readable error reports in arrival
	// order. Reports are never cleared by the arena itself.
	diagnostics []string
}

// New creates an empty arena.
func New() *Arena {
	return &Arena{}
}

// AddTensor reserves a new slot of the given type with placeholder
// scalar shape and returns its id. The caller resizes the slot before
// first use.
func (a *Arena) AddTensor(dtype tensor.DataType) int {
	raw, err := tensor.NewRaw(tensor.Shape{}, dtype)
	if err != nil {
		// A scalar shape is always valid.
		panic(fmt.Sprintf("arena: %v", err))
	}
	a.tensors = append(a.tensors, raw)
	return len(a.tensors) - 1
}

// Put stores an existing tensor in a new slot and returns its id.
// Used to hand operator inputs (data, filter, shape spec) to the host.
func (a *Arena) Put(raw *tensor.RawTensor) int {
	a.tensors = append(a.tensors, raw)
	return len(a.tensors) - 1
}

// Tensor returns the tensor in the given slot.
// Panics on an out-of-range id: slot ids are produced by the arena
// itself, so a bad id is a programming error, not input.
func (a *Arena) Tensor(id int) *tensor.RawTensor {
	if id < 0 || id >= len(a.tensors) {
		panic(fmt.Sprintf("arena: tensor id %d out of range [0, %d)", id, len(a.tensors)))
	}
	return a.tensors[id]
}

// NumTensors returns the number of allocated slots.
func (a *Arena) NumTensors() int {
	return len(a.tensors)
}

// Resize (re)sizes the tensor in the given slot to an exact shape.
func (a *Arena) Resize(id int, shape tensor.Shape) error {
	return a.Tensor(id).Resize(shape)
}

// Reportf records a diagnostic message and logs it. Operators funnel
// every contract violation through here before surfacing an error.
func (a *Arena) Reportf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.diagnostics = append(a.diagnostics, msg)
	slog.Debug("operator diagnostic", "message", msg)
}

// Diagnostics returns all recorded diagnostic messages.
func (a *Arena) Diagnostics() []string {
	return a.diagnostics
}
