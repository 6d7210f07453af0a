package postprocess

import (
	"github.com/nvr-ai/go-retinaface/common"
	"github.com/nvr-ai/go-retinaface/images"
	"github.com/pkg/errors"
)

// ErrGeometry is returned for non-positive network or image dimensions.
var ErrGeometry = errors.New("invalid frame geometry")

// Geometry is the per-call size context used to map network coordinates back
// to the source image.
type Geometry struct {
	// NetWidth, NetHeight are the network input dimensions.
	NetWidth  int `json:"net_width" yaml:"net_width"`
	NetHeight int `json:"net_height" yaml:"net_height"`
	// ImageWidth, ImageHeight are the source image dimensions.
	ImageWidth  int `json:"image_width" yaml:"image_width"`
	ImageHeight int `json:"image_height" yaml:"image_height"`
}

// Validate returns ErrGeometry when any dimension is not positive.
func (g Geometry) Validate() error {
	if g.NetWidth <= 0 || g.NetHeight <= 0 || g.ImageWidth <= 0 || g.ImageHeight <= 0 {
		return errors.Wrapf(ErrGeometry, "net %dx%d, image %dx%d",
			g.NetWidth, g.NetHeight, g.ImageWidth, g.ImageHeight)
	}
	return nil
}

// ScaleFactors returns the independent per-axis factors network / image.
func (g Geometry) ScaleFactors() (sx, sy float32) {
	return float32(g.NetWidth) / float32(g.ImageWidth), float32(g.NetHeight) / float32(g.ImageHeight)
}

// RescaleBox maps a network-space box to source-image space.
func RescaleBox(b images.Box, sx, sy float32) images.Box {
	return images.Box{Left: b.Left / sx, Top: b.Top / sy, Right: b.Right / sx, Bottom: b.Bottom / sy}
}

// RescalePoint maps a network-space point to source-image space.
func RescalePoint(p common.Point, sx, sy float32) common.Point {
	return common.Point{X: p.X / sx, Y: p.Y / sy}
}

// Label identifies the class attached to every aggregated detection.
type Label struct {
	ID   int
	Name string
}

// Aggregate converts the kept candidates of every scale level into detections.
//
// Boxes and landmarks are divided by the per-axis scale factors. Candidates are
// re-checked against the confidence threshold (inclusive) so that a level with a
// different marking window cannot leak low scores.
//
// Arguments:
//   - kept: The merged kept candidates of all scale levels.
//   - geom: The network and source image sizes.
//   - confidence: The confidence threshold.
//   - label: The class of every detection.
//
// Returns:
//   - The detections in kept order. Empty, never nil, when nothing survives.
//   - error: ErrGeometry for invalid dimensions.
func Aggregate(kept *Candidates, geom Geometry, confidence float32, label Label) ([]common.DetectedObject, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	sx, sy := geom.ScaleFactors()

	out := make([]common.DetectedObject, 0, kept.Len())
	for i, box := range kept.Boxes {
		score := kept.Scores[i]
		if !(score >= confidence) {
			continue
		}

		obj := common.DetectedObject{
			Box:        RescaleBox(box, sx, sy),
			Confidence: score,
			LabelID:    label.ID,
			Label:      label.Name,
		}
		if kept.Landmarks != nil {
			obj.Landmarks = make([]common.Point, len(kept.Landmarks[i]))
			for j, p := range kept.Landmarks[i] {
				obj.Landmarks[j] = RescalePoint(p, sx, sy)
			}
		}
		if kept.MaskScores != nil {
			obj.MaskScore = kept.MaskScores[i]
			obj.HasMaskScore = true
		}
		out = append(out, obj)
	}
	return out, nil
}
