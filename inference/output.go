// Package inference - Read-only views over raw model output tensors.
//
// The model-execution collaborator (ONNX Runtime, OpenCV DNN, a remote server)
// owns the buffers. An Output borrows one for the duration of a post-processing
// call and never copies, resizes or frees it.
package inference

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ErrInvalidOutput is returned when a buffer cannot be viewed as a 1xCxHxW float32 tensor.
var ErrInvalidOutput = errors.New("invalid output tensor")

// OutputInfo describes a model output as reported by the runtime before inference.
type OutputInfo struct {
	// Name is the output name declared by the model.
	Name string `json:"name" yaml:"name"`
	// Shape is the declared NCHW shape. Dynamic dimensions are reported as values <= 0.
	Shape []int64 `json:"shape" yaml:"shape"`
}

// Height returns the declared spatial height, or -1 when unknown.
func (i OutputInfo) Height() int64 {
	if len(i.Shape) != 4 {
		return -1
	}
	return i.Shape[2]
}

// Channels returns the declared channel count, or -1 when unknown.
func (i OutputInfo) Channels() int64 {
	if len(i.Shape) != 4 {
		return -1
	}
	return i.Shape[1]
}

// Output is a bounds-checked channel-major view over a 1xCxHxW float32 tensor.
//
// Decoders address it with named (channel, row, col) triples instead of manual
// offset arithmetic.
type Output struct {
	data     []float32
	channels int
	height   int
	width    int
}

// NewOutput wraps a flat NCHW float32 buffer.
//
// Arguments:
//   - shape: The tensor shape, either [1, C, H, W] or [C, H, W].
//   - data: The flat buffer. It is borrowed, not copied.
//
// Returns:
//   - *Output: The view.
//   - error: ErrInvalidOutput when the shape is not 4-D with batch 1 or the
//     buffer length does not match the shape.
//
// Example:
//
//	out, err := NewOutput([]int{1, 4, 20, 20}, data)
func NewOutput(shape []int, data []float32) (*Output, error) {
	if len(shape) == 3 {
		shape = append([]int{1}, shape...)
	}
	if len(shape) != 4 {
		return nil, errors.Wrapf(ErrInvalidOutput, "expected 4 dimensions, got shape %v", shape)
	}
	size := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, errors.Wrapf(ErrInvalidOutput, "non-positive dimension in shape %v", shape)
		}
		size *= d
	}
	if len(data) != size {
		return nil, errors.Wrapf(ErrInvalidOutput, "shape %v needs %d values, buffer has %d", shape, size, len(data))
	}

	dense := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))
	return FromDense(dense)
}

// FromDense wraps a gorgonia dense tensor without copying it.
//
// Arguments:
//   - t: A contiguous float32 tensor shaped [1, C, H, W].
//
// Returns:
//   - *Output: The view.
//   - error: ErrInvalidOutput on any other dtype, rank, batch size or a
//     non-contiguous view.
func FromDense(t *tensor.Dense) (*Output, error) {
	if t == nil {
		return nil, errors.Wrap(ErrInvalidOutput, "nil tensor")
	}
	if t.Dtype() != tensor.Float32 {
		return nil, errors.Wrapf(ErrInvalidOutput, "expected float32, got %v", t.Dtype())
	}
	if t.IsMaterializable() {
		return nil, errors.Wrap(ErrInvalidOutput, "non-contiguous tensor view")
	}

	shape := t.Shape()
	if len(shape) != 4 {
		return nil, errors.Wrapf(ErrInvalidOutput, "expected 4 dimensions, got shape %v", shape)
	}
	if shape[0] != 1 {
		return nil, errors.Wrapf(ErrInvalidOutput, "expected batch size 1, got %d", shape[0])
	}

	return &Output{
		data:     t.Float32s(),
		channels: shape[1],
		height:   shape[2],
		width:    shape[3],
	}, nil
}

// Channels returns C.
func (o *Output) Channels() int { return o.channels }

// Height returns H.
func (o *Output) Height() int { return o.height }

// Width returns W.
func (o *Output) Width() int { return o.width }

// Plane returns H*W, the number of grid positions.
func (o *Output) Plane() int { return o.height * o.width }

// Shape returns the [C, H, W] shape of the view.
func (o *Output) Shape() [3]int { return [3]int{o.channels, o.height, o.width} }

// At returns the value at (channel, row, col).
//
// Out-of-range indices are a programming error in the caller and panic with
// the offending triple instead of reading a neighbouring plane.
func (o *Output) At(c, y, x int) float32 {
	if c < 0 || c >= o.channels || y < 0 || y >= o.height || x < 0 || x >= o.width {
		panic(fmt.Sprintf("inference: index (%d, %d, %d) out of range for shape [%d %d %d]",
			c, y, x, o.channels, o.height, o.width))
	}
	return o.data[(c*o.height+y)*o.width+x]
}

// AtPosition returns the value at channel c for flattened grid position p = y*W + x.
func (o *Output) AtPosition(c, p int) float32 {
	return o.At(c, p/o.width, p%o.width)
}
