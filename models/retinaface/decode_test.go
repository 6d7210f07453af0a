package retinaface

import (
	"math"
	"testing"

	"github.com/nvr-ai/go-retinaface/images"
	"github.com/nvr-ai/go-retinaface/inference"
	"github.com/nvr-ai/go-retinaface/models/anchors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tensorOf builds a 1xCxHxW output filled with zeros except for the given
// (channel, row, col) values.
func tensorOf(t testing.TB, c, h, w int, values map[[3]int]float32) *inference.Output {
	t.Helper()
	data := make([]float32, c*h*w)
	for idx, v := range values {
		data[idx[0]*h*w+idx[1]*w+idx[2]] = v
	}
	out, err := inference.NewOutput([]int{1, c, h, w}, data)
	require.NoError(t, err)
	return out
}

// unitGrid expands one 16x16 anchor at (0,0,15,15) over an h x w grid.
func unitGrid(stride, h, w int) *anchors.Grid {
	return anchors.Expand([]images.Box{{Left: 0, Top: 0, Right: 15, Bottom: 15}}, stride, h, w)
}

func assertBox(t *testing.T, expected, got images.Box) {
	t.Helper()
	assert.InDelta(t, expected.Left, got.Left, 1e-4, "left")
	assert.InDelta(t, expected.Top, got.Top, 1e-4, "top")
	assert.InDelta(t, expected.Right, got.Right, 1e-4, "right")
	assert.InDelta(t, expected.Bottom, got.Bottom, 1e-4, "bottom")
}

func TestDecodeBoxes_ZeroDeltasReturnAnchors(t *testing.T) {
	grid := unitGrid(16, 2, 3)
	boxes, err := DecodeBoxes(tensorOf(t, 4, 2, 3, nil), grid)
	require.NoError(t, err)
	require.Len(t, boxes, grid.Len())

	for i, b := range boxes {
		assertBox(t, grid.Anchors[i], b)
	}
}

func TestDecodeBoxes_AppliesDeltas(t *testing.T) {
	grid := unitGrid(16, 1, 1)
	out := tensorOf(t, 4, 1, 1, map[[3]int]float32{
		{0, 0, 0}: 0.5,
		{2, 0, 0}: float32(math.Log(2)),
	})

	boxes, err := DecodeBoxes(out, grid)
	require.NoError(t, err)
	require.Len(t, boxes, 1)

	// center x 0.5*16+7.5 = 15.5, width 32; y untouched.
	assertBox(t, images.Box{Left: 0, Top: 0, Right: 31, Bottom: 15}, boxes[0])
}

func TestDecodeBoxes_AnchorGroupsPerCell(t *testing.T) {
	grid := anchors.Expand([]images.Box{
		{Left: 0, Top: 0, Right: 15, Bottom: 15},
		{Left: -8, Top: -8, Right: 23, Bottom: 23},
	}, 8, 1, 2)

	// Second anchor of the second cell: channel group 1, position 1.
	out := tensorOf(t, 8, 1, 2, map[[3]int]float32{
		{5, 0, 1}: 0.25,
	})

	boxes, err := DecodeBoxes(out, grid)
	require.NoError(t, err)
	require.Len(t, boxes, 4)

	assertBox(t, grid.Anchors[0], boxes[0])
	assertBox(t, grid.Anchors[1], boxes[1])
	assertBox(t, grid.Anchors[2], boxes[2])
	// anchor (0,-8,31,23): center y moves 0.25*32 down.
	assertBox(t, images.Box{Left: 0, Top: 0, Right: 31, Bottom: 31}, boxes[3])
}

func TestDecodeLandmarks_PairedAnchors(t *testing.T) {
	grid := anchors.Expand([]images.Box{
		{Left: -8, Top: -8, Right: 23, Bottom: 23},
		{Left: 0, Top: 0, Right: 15, Bottom: 15},
	}, 16, 1, 1)
	out := tensorOf(t, 4, 1, 1, map[[3]int]float32{
		{0, 0, 0}: 1,
		{1, 0, 0}: 2,
		{2, 0, 0}: 3,
		{3, 0, 0}: 4,
	})

	landmarks, err := DecodeLandmarks(out, grid, 0.2, 1)
	require.NoError(t, err)
	require.Len(t, landmarks, 2)

	// Even anchor reads the first half of the channels, odd anchor the second.
	assert.InDelta(t, 0.2*32+7.5, landmarks[0][0].X, 1e-4)
	assert.InDelta(t, 0.4*32+7.5, landmarks[0][0].Y, 1e-4)
	assert.InDelta(t, 0.6*16+7.5, landmarks[1][0].X, 1e-4)
	assert.InDelta(t, 0.8*16+7.5, landmarks[1][0].Y, 1e-4)
}

func TestDecodeLandmarks_ZeroOffsetsAtAnchorCenter(t *testing.T) {
	grid := unitGrid(16, 2, 2)
	landmarks, err := DecodeLandmarks(tensorOf(t, 10, 2, 2, nil), grid, 0.2, 5)
	require.NoError(t, err)
	require.Len(t, landmarks, 4)

	for i, pts := range landmarks {
		require.Len(t, pts, 5)
		for _, p := range pts {
			assert.InDelta(t, grid.Anchors[i].CenterX(), p.X, 1e-4)
			assert.InDelta(t, grid.Anchors[i].CenterY(), p.Y, 1e-4)
		}
	}
}

func TestExtractScores_PositionMajor(t *testing.T) {
	out := tensorOf(t, 4, 1, 2, map[[3]int]float32{
		{0, 0, 0}: 0.9, {0, 0, 1}: 0.8,
		{2, 0, 0}: 0.1, {2, 0, 1}: 0.2,
		{3, 0, 0}: 0.3, {3, 0, 1}: 0.4,
	})

	scores, err := ExtractScores(out, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.3, 0.2, 0.4}, scores)
}

func TestExtractScores_RoundTrip(t *testing.T) {
	const c, h, w, offset = 6, 3, 4, 3
	data := make([]float32, c*h*w)
	for i := range data {
		data[i] = float32(i)
	}
	out, err := inference.NewOutput([]int{1, c, h, w}, data)
	require.NoError(t, err)

	scores, err := ExtractScores(out, offset)
	require.NoError(t, err)
	require.Len(t, scores, (c-offset)*h*w)

	for ch := offset; ch < c; ch++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				p := y*w + x
				assert.Equal(t, out.At(ch, y, x), scores[p*(c-offset)+(ch-offset)])
			}
		}
	}
}

func TestExtractMaskScores(t *testing.T) {
	out := tensorOf(t, 6, 1, 1, map[[3]int]float32{
		{3, 0, 0}: 0.7,
		{4, 0, 0}: 0.1,
		{5, 0, 0}: 0.2,
	})

	scores, err := ExtractMaskScores(out, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, scores)
}

func TestDecode_ShapeMismatch(t *testing.T) {
	grid := unitGrid(16, 2, 2)

	tests := []struct {
		name string
		run  func() error
	}{
		{
			name: "boxes with other spatial size",
			run: func() error {
				_, err := DecodeBoxes(tensorOf(t, 4, 3, 2, nil), grid)
				return err
			},
		},
		{
			name: "boxes with too few channels",
			run: func() error {
				_, err := DecodeBoxes(tensorOf(t, 3, 2, 2, nil), grid)
				return err
			},
		},
		{
			name: "landmarks with too few channels",
			run: func() error {
				_, err := DecodeLandmarks(tensorOf(t, 8, 2, 2, nil), grid, 0.2, 5)
				return err
			},
		},
		{
			name: "empty score block",
			run: func() error {
				_, err := ExtractScores(tensorOf(t, 2, 2, 2, nil), 2)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.run(), ErrShapeMismatch))
		})
	}
}
