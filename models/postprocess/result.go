// Package postprocess - Postprocessing utilities for anchor-based detectors.
package postprocess

import (
	"github.com/nvr-ai/go-retinaface/common"
	"github.com/nvr-ai/go-retinaface/images"
)

// Candidates holds the decoded proposals of one scale level as parallel slices.
//
// Landmarks and MaskScores are nil when the corresponding head is disabled;
// otherwise they have the same length as Boxes.
type Candidates struct {
	Boxes      []images.Box
	Scores     []float32
	Landmarks  [][]common.Point
	MaskScores []float32
}

// Len returns the number of candidates.
func (c *Candidates) Len() int {
	return len(c.Boxes)
}

// Select appends the candidates at indices to dst, in index order.
//
// Arguments:
//   - dst: The destination set, usually the cross-level accumulator.
//   - indices: The kept indices returned by GreedyNMS.
func (c *Candidates) Select(dst *Candidates, indices []int) {
	for _, i := range indices {
		dst.Boxes = append(dst.Boxes, c.Boxes[i])
		dst.Scores = append(dst.Scores, c.Scores[i])
		if c.Landmarks != nil {
			dst.Landmarks = append(dst.Landmarks, c.Landmarks[i])
		}
		if c.MaskScores != nil {
			dst.MaskScores = append(dst.MaskScores, c.MaskScores[i])
		}
	}
}

// Filter runs confidence thresholding and greedy NMS over the candidates.
//
// Arguments:
//   - confidence: The inclusive confidence threshold.
//   - iouThreshold: The NMS overlap threshold.
//
// Returns:
//   - The kept indices, highest score first.
//   - The final status of every candidate.
func (c *Candidates) Filter(confidence, iouThreshold float32) ([]int, []Status) {
	status := Threshold(c.Scores, confidence)
	if CountActive(status) == 0 {
		return []int{}, status
	}
	return GreedyNMS(c.Boxes, c.Scores, status, iouThreshold), status
}
