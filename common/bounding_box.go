// Package common - Detection results handed to rendering and reporting collaborators.
package common

import (
	"fmt"
	"image"

	"github.com/nvr-ai/go-retinaface/images"
)

// Point is a 2D point in pixel space.
type Point struct {
	X, Y float32
}

// DetectedObject is one final detection in source-image coordinates.
type DetectedObject struct {
	// Box edges in source-image pixels.
	Box images.Box
	// Confidence in [0, 1].
	Confidence float32
	// LabelID is the class index into the label table.
	LabelID int
	// Label is the human-readable class name.
	Label string
	// Landmarks are the facial keypoints (eyes, nose, mouth corners), or nil when
	// the model has no landmark head.
	Landmarks []Point
	// MaskScore is the auxiliary classification score; valid only when HasMaskScore is set.
	MaskScore    float32
	HasMaskScore bool
}

// Width returns the box width in source-image pixels, counting both edge
// pixels like images.Box.Width.
func (d *DetectedObject) Width() float32 {
	return d.Box.Width()
}

// Height returns the box height in source-image pixels, counting both edge
// pixels like images.Box.Height.
func (d *DetectedObject) Height() float32 {
	return d.Box.Height()
}

// String formats the detection for logs.
//
// Example:
//
//	d := DetectedObject{Label: "Face", Confidence: 0.95, Box: images.Box{Left: 10, Top: 20, Right: 110, Bottom: 140}}
//	fmt.Println(d.String()) // Object Face (confidence 0.950000): (10.00, 20.00), (110.00, 140.00)
func (d *DetectedObject) String() string {
	return fmt.Sprintf("Object %s (confidence %f): (%.2f, %.2f), (%.2f, %.2f)",
		d.Label, d.Confidence, d.Box.Left, d.Box.Top, d.Box.Right, d.Box.Bottom)
}

// ToRect converts the box to an image.Rectangle.
//
// Coordinates are truncated to integers, so the rectangle is only suitable for
// drawing and cropping.
//
// Example:
//
//	d := DetectedObject{Box: images.Box{Left: 100.5, Top: 100.5, Right: 200.5, Bottom: 300.5}}
//	rect := d.ToRect() // (100,100)-(200,300)
func (d *DetectedObject) ToRect() image.Rectangle {
	return image.Rect(int(d.Box.Left), int(d.Box.Top), int(d.Box.Right), int(d.Box.Bottom)).Canon()
}
