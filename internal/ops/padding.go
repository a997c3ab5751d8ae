package ops

// PaddingMode selects how convolution padding is derived.
type PaddingMode int

// Padding modes.
const (
	// PaddingValid pads nothing: only taps fully inside the image
	// contribute (exact-fit).
	PaddingValid PaddingMode = iota

	// PaddingSame pads so that a stride-1 convolution output matches
	// the input spatial size.
	PaddingSame
)

// String returns a human-readable mode name.
func (m PaddingMode) String() string {
	switch m {
	case PaddingValid:
		return "valid"
	case PaddingSame:
		return "same"
	default:
		return "unknown"
	}
}

// Padding holds per-axis padding offsets.
type Padding struct {
	Height int
	Width  int
}

// computeOutSize returns the spatial output size of a forward
// convolution over an image of the given size.
func computeOutSize(mode PaddingMode, imageSize, filterSize, stride int) int {
	switch mode {
	case PaddingSame:
		return (imageSize + stride - 1) / stride
	case PaddingValid:
		return (imageSize - filterSize + stride) / stride
	default:
		return 0
	}
}

// computePadding derives the per-axis padding offset from the forward
// convolution geometry. Negative results clamp to zero.
func computePadding(stride, dilation, inSize, filterSize, outSize int) int {
	effectiveFilterSize := (filterSize-1)*dilation + 1
	padding := ((outSize-1)*stride + effectiveFilterSize - inSize) / 2
	if padding < 0 {
		return 0
	}
	return padding
}

// ComputePaddingHeightWidth derives symmetric padding offsets from
// stride, image size, filter size, and padding mode.
//
// For a transposed convolution the "image" is the operator's resolved
// output: padding is computed for the forward convolution whose input
// gradient this operator implements. It must be recomputed whenever
// the resolved output shape changes.
func ComputePaddingHeightWidth(strideHeight, strideWidth, dilation,
	inHeight, inWidth, filterHeight, filterWidth int, mode PaddingMode) Padding {
	outHeight := computeOutSize(mode, inHeight, filterHeight, strideHeight)
	outWidth := computeOutSize(mode, inWidth, filterWidth, strideWidth)

	return Padding{
		Height: computePadding(strideHeight, dilation, inHeight, filterHeight, outHeight),
		Width:  computePadding(strideWidth, dilation, inWidth, filterWidth, outWidth),
	}
}
