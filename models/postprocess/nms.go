// Package postprocess - Confidence filtering and Non-Maximum Suppression for one scale level.
package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-retinaface/images"
)

// Status is the per-candidate state during filtering.
//
// Candidates are never removed from their slices while a scale level is being
// processed, so boxes, scores, landmarks and mask scores stay index-aligned.
type Status uint8

const (
	// StatusActive candidates take part in suppression.
	StatusActive Status = iota
	// StatusSuppressed candidates overlap a kept candidate.
	StatusSuppressed
	// StatusBelowThreshold candidates scored under the confidence threshold.
	StatusBelowThreshold
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusSuppressed:
		return "suppressed"
	case StatusBelowThreshold:
		return "below-threshold"
	default:
		return "unknown"
	}
}

// Threshold marks every score under confidence as StatusBelowThreshold.
//
// The comparison is inclusive: a score equal to the threshold stays active. NaN
// scores are below every threshold.
//
// Arguments:
//   - scores: The per-anchor scores.
//   - confidence: The confidence threshold.
//
// Returns:
//   - A status slice parallel to scores.
func Threshold(scores []float32, confidence float32) []Status {
	status := make([]Status, len(scores))
	for i, s := range scores {
		if !(s >= confidence) {
			status[i] = StatusBelowThreshold
		}
	}
	return status
}

// CountActive returns the number of StatusActive entries.
func CountActive(status []Status) int {
	n := 0
	for _, s := range status {
		if s == StatusActive {
			n++
		}
	}
	return n
}

// GreedyNMS performs greedy Non-Maximum Suppression over one scale level.
//
// Indices are ordered by descending score with ties kept in original index
// order. Entries that are not StatusActive are left out. Walking that order, the
// next active index is kept and every later active index whose IoU with it is at
// least iouThreshold is marked StatusSuppressed.
//
// Arguments:
//   - boxes: The candidate boxes.
//   - scores: The candidate scores, parallel to boxes.
//   - status: The candidate states, parallel to boxes, updated in place. A nil
//     slice means all active.
//   - iouThreshold: The overlap at or above which a candidate is suppressed.
//
// Returns:
//   - The kept indices, highest score first. Empty when nothing is active.
//
// Example:
//
//	boxes := []images.Box{{0, 0, 10, 10}, {1, 1, 11, 11}, {50, 50, 60, 60}}
//	keep := GreedyNMS(boxes, []float32{0.9, 0.8, 0.7}, nil, 0.5) // [0 2]
func GreedyNMS(boxes []images.Box, scores []float32, status []Status, iouThreshold float32) []int {
	if status == nil {
		status = make([]Status, len(scores))
	}

	order := make([]int, 0, len(scores))
	for i := range scores {
		if status[i] == StatusActive {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	keep := make([]int, 0, len(order))
	for i, idx := range order {
		if status[idx] != StatusActive {
			continue
		}
		keep = append(keep, idx)

		for _, other := range order[i+1:] {
			if status[other] != StatusActive {
				continue
			}
			if images.IoU(boxes[idx], boxes[other]) >= iouThreshold {
				status[other] = StatusSuppressed
			}
		}
	}
	return keep
}
