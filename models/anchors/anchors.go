// Package anchors - Canonical anchor templates and per-stride anchor grids for
// multi-scale anchor-based detectors.
package anchors

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-retinaface/images"
)

// StrideConfig describes the anchors of one detection scale level.
type StrideConfig struct {
	// Stride is the grid cell size in network-input pixels.
	Stride int `json:"stride" yaml:"stride"`
	// BaseSize is the side of the square base anchor.
	BaseSize int `json:"base_size" yaml:"base_size"`
	// Ratios are the aspect ratios (height/width) to enumerate.
	Ratios []float32 `json:"ratios" yaml:"ratios"`
	// Scales are the size multipliers applied to every ratio variant.
	Scales []float32 `json:"scales" yaml:"scales"`
}

// AnchorsPerCell returns len(Ratios) * len(Scales).
func (c StrideConfig) AnchorsPerCell() int {
	return len(c.Ratios) * len(c.Scales)
}

// FPN maps a stride to its canonical anchors.
type FPN map[int][]images.Box

// Generate builds the canonical anchors of one stride, anchored at the origin.
//
// The base anchor is the square (0, 0, base-1, base-1). Every ratio variant keeps
// the base area and is recentered on the base center; every scale variant of a
// ratio variant multiplies its size and is recentered again.
//
// The order is ratio-major, scale-minor. Decoders rely on it: the k-th anchor of
// a cell reads the k-th channel group of every head.
//
// Arguments:
//   - cfg: The stride configuration.
//
// Returns:
//   - len(cfg.Ratios)*len(cfg.Scales) anchors.
//
// Example:
//
//	a := Generate(StrideConfig{Stride: 32, BaseSize: 16, Ratios: []float32{1}, Scales: []float32{32, 16}})
//	// a[0] = {-248, -248, 263, 263}, a[1] = {-120, -120, 135, 135}
func Generate(cfg StrideConfig) []images.Box {
	base := images.Box{Left: 0, Top: 0, Right: float32(cfg.BaseSize - 1), Bottom: float32(cfg.BaseSize - 1)}

	out := make([]images.Box, 0, cfg.AnchorsPerCell())
	for _, ratioAnchor := range ratioEnum(base, cfg.Ratios) {
		out = append(out, scaleEnum(ratioAnchor, cfg.Scales)...)
	}
	return out
}

// GenerateFPN builds the canonical anchors of every stride.
//
// Configurations are processed by descending stride. The result is keyed by
// stride, so the processing order does not affect it.
func GenerateFPN(cfgs []StrideConfig) FPN {
	sorted := make([]StrideConfig, len(cfgs))
	copy(sorted, cfgs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Stride > sorted[j].Stride })

	fpn := make(FPN, len(sorted))
	for _, cfg := range sorted {
		fpn[cfg.Stride] = Generate(cfg)
	}
	return fpn
}

func ratioEnum(anchor images.Box, ratios []float32) []images.Box {
	w, h := anchor.Width(), anchor.Height()
	cx, cy := anchor.CenterX(), anchor.CenterY()
	size := w * h

	out := make([]images.Box, 0, len(ratios))
	for _, ratio := range ratios {
		ws := math32.Round(math32.Sqrt(size / ratio))
		hs := math32.Round(ws * ratio)
		out = append(out, images.FromCenter(cx, cy, ws, hs))
	}
	return out
}

func scaleEnum(anchor images.Box, scales []float32) []images.Box {
	w, h := anchor.Width(), anchor.Height()
	cx, cy := anchor.CenterX(), anchor.CenterY()

	out := make([]images.Box, 0, len(scales))
	for _, scale := range scales {
		out = append(out, images.FromCenter(cx, cy, w*scale, h*scale))
	}
	return out
}
