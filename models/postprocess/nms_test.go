package postprocess

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-retinaface/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGreedyNMS(t *testing.T) {
	tests := []struct {
		name         string
		boxes        []images.Box
		scores       []float32
		iouThreshold float32
		expected     []int
	}{
		{
			name:         "overlapping pair and a disjoint box",
			boxes:        []images.Box{{Left: 0, Top: 0, Right: 10, Bottom: 10}, {Left: 1, Top: 1, Right: 11, Bottom: 11}, {Left: 50, Top: 50, Right: 60, Bottom: 60}},
			scores:       []float32{0.9, 0.8, 0.7},
			iouThreshold: 0.5,
			expected:     []int{0, 2},
		},
		{
			name:         "lower index loses to higher score",
			boxes:        []images.Box{{Left: 1, Top: 1, Right: 11, Bottom: 11}, {Left: 0, Top: 0, Right: 10, Bottom: 10}},
			scores:       []float32{0.6, 0.9},
			iouThreshold: 0.5,
			expected:     []int{1},
		},
		{
			name:         "equal scores keep the lower index",
			boxes:        []images.Box{{Left: 50, Top: 50, Right: 60, Bottom: 60}, {Left: 0, Top: 0, Right: 10, Bottom: 10}, {Left: 1, Top: 1, Right: 11, Bottom: 11}},
			scores:       []float32{0.8, 0.8, 0.8},
			iouThreshold: 0.5,
			expected:     []int{0, 1},
		},
		{
			name:         "overlap equal to the threshold suppresses",
			boxes:        []images.Box{{Left: 0, Top: 0, Right: 10, Bottom: 10}, {Left: 0, Top: 0, Right: 10, Bottom: 5}},
			scores:       []float32{0.9, 0.8},
			iouThreshold: 0.5, // IoU = 50 / 100
			expected:     []int{0},
		},
		{
			name:         "overlap under the threshold keeps both",
			boxes:        []images.Box{{Left: 0, Top: 0, Right: 10, Bottom: 10}, {Left: 0, Top: 0, Right: 10, Bottom: 5}},
			scores:       []float32{0.9, 0.8},
			iouThreshold: 0.51,
			expected:     []int{0, 1},
		},
		{
			name:         "suppressed box does not suppress others",
			boxes:        []images.Box{{Left: 0, Top: 0, Right: 10, Bottom: 10}, {Left: 4, Top: 0, Right: 14, Bottom: 10}, {Left: 8, Top: 0, Right: 18, Bottom: 10}},
			scores:       []float32{0.9, 0.8, 0.7},
			iouThreshold: 0.4, // 0-1: 0.429, 1-2: 0.429, 0-2: 0.111
			expected:     []int{0, 2},
		},
		{
			name:         "empty input",
			boxes:        nil,
			scores:       nil,
			iouThreshold: 0.5,
			expected:     []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GreedyNMS(tt.boxes, tt.scores, nil, tt.iouThreshold))
		})
	}
}

func TestGreedyNMS_Idempotent(t *testing.T) {
	boxes := []images.Box{
		{Left: 0, Top: 0, Right: 10, Bottom: 10}, {Left: 1, Top: 1, Right: 11, Bottom: 11}, {Left: 50, Top: 50, Right: 60, Bottom: 60}, {Left: 52, Top: 52, Right: 62, Bottom: 62}, {Left: 100, Top: 0, Right: 120, Bottom: 30}, {Left: 0, Top: 100, Right: 8, Bottom: 108},
	}
	scores := []float32{0.9, 0.8, 0.7, 0.95, 0.6, 0.6}

	keep := GreedyNMS(boxes, scores, nil, 0.5)
	require.NotEmpty(t, keep)

	subBoxes := make([]images.Box, len(keep))
	subScores := make([]float32, len(keep))
	for i, k := range keep {
		subBoxes[i] = boxes[k]
		subScores[i] = scores[k]
	}

	again := GreedyNMS(subBoxes, subScores, nil, 0.5)
	require.Len(t, again, len(keep))
	for i := range again {
		assert.Equal(t, i, again[i], "kept subset is already in score order")
	}
}

func TestGreedyNMS_SkipsInactiveAndMarksSuppressed(t *testing.T) {
	boxes := []images.Box{{Left: 0, Top: 0, Right: 10, Bottom: 10}, {Left: 1, Top: 1, Right: 11, Bottom: 11}, {Left: 50, Top: 50, Right: 60, Bottom: 60}, {Left: 0, Top: 0, Right: 10, Bottom: 10}}
	scores := []float32{0.9, 0.8, 0.7, 0.99}
	status := []Status{StatusActive, StatusActive, StatusActive, StatusBelowThreshold}

	keep := GreedyNMS(boxes, scores, status, 0.5)

	assert.Equal(t, []int{0, 2}, keep)
	assert.Equal(t, []Status{StatusActive, StatusSuppressed, StatusActive, StatusBelowThreshold}, status)
}

func TestThreshold_InclusiveBoundary(t *testing.T) {
	const confidence = float32(0.5)
	below := math32.Nextafter(confidence, 0)

	status := Threshold([]float32{confidence, below, 0.9, 0}, confidence)

	assert.Equal(t, []Status{StatusActive, StatusBelowThreshold, StatusActive, StatusBelowThreshold}, status)
	assert.Equal(t, 2, CountActive(status))
}

func TestThreshold_NaNIsBelow(t *testing.T) {
	status := Threshold([]float32{math32.NaN(), 0.9}, 0.5)
	assert.Equal(t, []Status{StatusBelowThreshold, StatusActive}, status)

	status = Threshold([]float32{math32.NaN()}, 0)
	assert.Equal(t, []Status{StatusBelowThreshold}, status)
}

func TestCandidates_Filter(t *testing.T) {
	c := &Candidates{
		Boxes:      []images.Box{{Left: 0, Top: 0, Right: 10, Bottom: 10}, {Left: 1, Top: 1, Right: 11, Bottom: 11}, {Left: 50, Top: 50, Right: 60, Bottom: 60}},
		Scores:     []float32{0.9, 0.8, 0.2},
		MaskScores: []float32{0.1, 0.2, 0.3},
	}

	keep, status := c.Filter(0.5, 0.5)
	assert.Equal(t, []int{0}, keep)
	assert.Equal(t, []Status{StatusActive, StatusSuppressed, StatusBelowThreshold}, status)

	var merged Candidates
	c.Select(&merged, keep)
	assert.Equal(t, []float32{0.9}, merged.Scores)
	assert.Equal(t, []float32{0.1}, merged.MaskScores)
	assert.Nil(t, merged.Landmarks)

	keep, _ = (&Candidates{Boxes: c.Boxes, Scores: []float32{0.1, 0.1, 0.1}}).Filter(0.5, 0.5)
	assert.Empty(t, keep)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "active", StatusActive.String())
	assert.Equal(t, "suppressed", StatusSuppressed.String())
	assert.Equal(t, "below-threshold", StatusBelowThreshold.String())
}
