// Package images - Box geometry shared by anchors, proposals and detections.
package images

// Box is an axis-aligned rectangle stored as its four edges in pixel space.
//
// Anchors and regressed proposals follow the inclusive pixel convention used by
// box regression: a box spanning pixels 0..15 has Left=0, Right=15 and a width
// of 16. Area, which only feeds the overlap metric, is the plain edge product.
type Box struct {
	Left, Top, Right, Bottom float32
}

// Width returns the inclusive width of the box.
func (b Box) Width() float32 {
	return b.Right - b.Left + 1
}

// Height returns the inclusive height of the box.
func (b Box) Height() float32 {
	return b.Bottom - b.Top + 1
}

// CenterX returns the horizontal center of the box.
func (b Box) CenterX() float32 {
	return b.Left + (b.Width()-1)/2
}

// CenterY returns the vertical center of the box.
func (b Box) CenterY() float32 {
	return b.Top + (b.Height()-1)/2
}

// Area returns (Right-Left)*(Bottom-Top).
func (b Box) Area() float32 {
	return (b.Right - b.Left) * (b.Bottom - b.Top)
}

// Shift returns the box translated by (dx, dy).
func (b Box) Shift(dx, dy float32) Box {
	return Box{Left: b.Left + dx, Top: b.Top + dy, Right: b.Right + dx, Bottom: b.Bottom + dy}
}

// FromCenter builds a box around (cx, cy) with the given inclusive size.
//
// Arguments:
//   - cx, cy: The center of the box.
//   - w, h: The inclusive width and height.
//
// Returns:
//   - The box whose edges lie 0.5*(size-1) away from the center on each axis.
//
// Example:
//
//	b := FromCenter(7.5, 7.5, 16, 16) // Box{0, 0, 15, 15}
func FromCenter(cx, cy, w, h float32) Box {
	return Box{
		Left:   cx - 0.5*(w-1),
		Top:    cy - 0.5*(h-1),
		Right:  cx + 0.5*(w-1),
		Bottom: cy + 0.5*(h-1),
	}
}

// IoU (Intersection over Union) measures how much two boxes overlap.
//
//	IoU = Area of Intersection / Area of Union
//
// The intersection is zero when the projections of the two boxes do not overlap
// on either axis. The union uses the Principle of Inclusion-Exclusion:
//
//	Union(A, B) = Area(A) + Area(B) - Intersection(A, B)
//
// Arguments:
//   - r: The first box.
//   - o: The other box to compare against.
//
// Returns:
//   - A value between 0.0 and 1.0. Degenerate boxes with an empty union yield 0.
//
// Example:
//
//	a := Box{Left: 0, Top: 0, Right: 10, Bottom: 10}
//	b := Box{Left: 5, Top: 5, Right: 15, Bottom: 15}
//	iou := IoU(a, b) // 25 / 175 ≈ 0.142857
func IoU(r, o Box) float32 {
	interW := min(r.Right, o.Right) - max(r.Left, o.Left)
	interH := min(r.Bottom, o.Bottom) - max(r.Top, o.Top)
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}
	return interArea / unionArea
}
