package retinaface

import (
	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-retinaface/common"
	"github.com/nvr-ai/go-retinaface/images"
	"github.com/nvr-ai/go-retinaface/inference"
	"github.com/nvr-ai/go-retinaface/models/anchors"
	"github.com/pkg/errors"
)

// Every head is a 1xCxHxW tensor whose channels are split into one group per
// anchor of a cell. Anchor i of a grid lives at position p = i / A (row p / W,
// column p % W) and reads channel group k = i % A:
//
//	boxes:     channel k*(C/A) + {0, 1, 2, 3} = dx, dy, dw, dh
//	landmarks: channel k*(C/A) + 2j, +1       = x, y offsets of point j
//
// For the reference layout with two anchors per cell this is the packed
// even/odd addressing: even anchors read the first C/2 channels, odd anchors
// the second half, and both share position i / 2.

// checkGrid verifies that out can be addressed through grid.
func checkGrid(out *inference.Output, grid *anchors.Grid, minPredLen int) (int, error) {
	if out.Height() != grid.Height || out.Width() != grid.Width {
		return 0, errors.Wrapf(ErrShapeMismatch, "stride %d: tensor is %dx%d, anchor grid is %dx%d",
			grid.Stride, out.Height(), out.Width(), grid.Height, grid.Width)
	}
	if grid.PerCell == 0 || out.Channels()%grid.PerCell != 0 {
		return 0, errors.Wrapf(ErrShapeMismatch, "stride %d: %d channels do not split into %d anchors",
			grid.Stride, out.Channels(), grid.PerCell)
	}
	predLen := out.Channels() / grid.PerCell
	if predLen < minPredLen {
		return 0, errors.Wrapf(ErrShapeMismatch, "stride %d: %d channels per anchor, need %d",
			grid.Stride, predLen, minPredLen)
	}
	return predLen, nil
}

// DecodeBoxes applies the box regression deltas to every anchor of the grid.
//
// The predicted center is d*anchorSize + anchorCenter and the predicted size is
// exp(d)*anchorSize on each axis. The box is rebuilt around the center with the
// same 0.5*(size-1) convention the anchors were built with.
//
// Arguments:
//   - out: The box head of the stride.
//   - grid: The stride's anchor grid.
//
// Returns:
//   - One box per anchor, in grid order.
//   - error: ErrShapeMismatch when out does not match the grid.
func DecodeBoxes(out *inference.Output, grid *anchors.Grid) ([]images.Box, error) {
	predLen, err := checkGrid(out, grid, 4)
	if err != nil {
		return nil, err
	}

	boxes := make([]images.Box, grid.Len())
	for i, a := range grid.Anchors {
		p, c := i/grid.PerCell, (i%grid.PerCell)*predLen

		dx := out.AtPosition(c, p)
		dy := out.AtPosition(c+1, p)
		dw := out.AtPosition(c+2, p)
		dh := out.AtPosition(c+3, p)

		w, h := a.Width(), a.Height()
		boxes[i] = images.FromCenter(
			dx*w+a.CenterX(),
			dy*h+a.CenterY(),
			math32.Exp(dw)*w,
			math32.Exp(dh)*h,
		)
	}
	return boxes, nil
}

// DecodeLandmarks maps the landmark offsets of every anchor to network space.
//
// Each offset is multiplied by std and then mapped like a box center:
// delta*std*anchorSize + anchorCenter.
//
// Arguments:
//   - out: The landmark head of the stride.
//   - grid: The stride's anchor grid.
//   - std: The offset multiplier.
//   - count: The number of points per anchor.
//
// Returns:
//   - count points per anchor, in grid order.
//   - error: ErrShapeMismatch when out does not match the grid or has fewer
//     than 2*count channels per anchor.
func DecodeLandmarks(out *inference.Output, grid *anchors.Grid, std float32, count int) ([][]common.Point, error) {
	predLen, err := checkGrid(out, grid, 2*count)
	if err != nil {
		return nil, err
	}

	points := make([]common.Point, grid.Len()*count)
	landmarks := make([][]common.Point, grid.Len())
	for i, a := range grid.Anchors {
		p, c := i/grid.PerCell, (i%grid.PerCell)*predLen
		w, h := a.Width(), a.Height()
		cx, cy := a.CenterX(), a.CenterY()

		pts := points[i*count : (i+1)*count : (i+1)*count]
		for j := range pts {
			dx := out.AtPosition(c+2*j, p) * std
			dy := out.AtPosition(c+2*j+1, p) * std
			pts[j] = common.Point{X: dx*w + cx, Y: dy*h + cy}
		}
		landmarks[i] = pts
	}
	return landmarks, nil
}

// ExtractScores reads the channel block [offset, C) into one score per anchor.
//
// Channel-major data is reshaped position-major: the result index of channel c
// at grid position p is p*(C-offset) + (c-offset), which is the anchor order of
// the grid when the block holds one channel per anchor.
//
// Arguments:
//   - out: The score head.
//   - offset: The first channel of the block, usually the anchors per cell
//     (background channels come first).
//
// Returns:
//   - (C-offset)*H*W scores.
//   - error: ErrShapeMismatch when the block is empty.
func ExtractScores(out *inference.Output, offset int) ([]float32, error) {
	rest := out.Channels() - offset
	if offset < 0 || rest <= 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "score block starts at channel %d of %d", offset, out.Channels())
	}

	plane := out.Plane()
	scores := make([]float32, rest*plane)
	for c := offset; c < out.Channels(); c++ {
		for p := 0; p < plane; p++ {
			scores[p*rest+(c-offset)] = out.AtPosition(c, p)
		}
	}
	return scores, nil
}

// ExtractMaskScores reads the auxiliary mask scores of a head whose first
// 2*anchorNum channels belong to the face classifier.
func ExtractMaskScores(out *inference.Output, anchorNum int) ([]float32, error) {
	return ExtractScores(out, 2*anchorNum)
}
