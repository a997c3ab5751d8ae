package ops

import "errors"

// Operator error kinds. Concrete failures wrap one of these so callers
// can classify with errors.Is while keeping the human-readable detail.
var (
	// ErrShape covers malformed or wrong-rank output-shape specs and
	// rank/dimension mismatches between input, filter, and output.
	ErrShape = errors.New("shape error")

	// ErrType covers element types outside {float32, uint8} and type
	// mismatches across input, filter, and output.
	ErrType = errors.New("type error")

	// ErrQuantization covers missing quantization parameters and
	// non-representable combined scales.
	ErrQuantization = errors.New("quantization error")
)
