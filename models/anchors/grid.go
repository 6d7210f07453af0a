package anchors

import "github.com/nvr-ai/go-retinaface/images"

// Grid is the full anchor plane of one stride for one spatial size.
type Grid struct {
	Stride  int
	Height  int
	Width   int
	PerCell int
	// Anchors holds Height*Width*PerCell boxes; see Index.
	Anchors []images.Box
}

// Len returns the number of anchors in the grid.
func (g *Grid) Len() int {
	return len(g.Anchors)
}

// Index returns the flat index of anchor k in cell (row, col).
func (g *Grid) Index(row, col, k int) int {
	return (row*g.Width+col)*g.PerCell + k
}

// Expand tiles the canonical anchors of a stride across a height x width grid.
//
// Cell (ih, iw) holds every canonical anchor translated by (iw*stride, ih*stride).
// Entries are row-major over width within height with the anchor index innermost,
// which matches the channel layout the decoders read.
//
// Arguments:
//   - canonical: The stride's canonical anchors, as returned by Generate.
//   - stride: The stride in network-input pixels.
//   - height, width: The spatial size of the stride's output tensors.
//
// Returns:
//   - A grid with exactly height*width*len(canonical) anchors.
func Expand(canonical []images.Box, stride, height, width int) *Grid {
	perCell := len(canonical)
	g := &Grid{
		Stride:  stride,
		Height:  height,
		Width:   width,
		PerCell: perCell,
		Anchors: make([]images.Box, height*width*perCell),
	}

	for ih := 0; ih < height; ih++ {
		sh := float32(ih * stride)
		for iw := 0; iw < width; iw++ {
			sw := float32(iw * stride)
			for k, a := range canonical {
				g.Anchors[g.Index(ih, iw, k)] = a.Shift(sw, sh)
			}
		}
	}
	return g
}
