// Package cvoutput - Adapters from OpenCV DNN output blobs to inference outputs.
package cvoutput

import (
	"github.com/nvr-ai/go-retinaface/inference"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// FromMat views the data of a float32 NCHW blob returned by gocv.Net.Forward.
//
// The Mat keeps ownership of its buffer; the view is valid until the Mat is closed.
//
// Arguments:
//   - mat: A continuous CV_32F blob shaped [1, C, H, W].
//
// Returns:
//   - *inference.Output: The view.
//   - error: inference.ErrInvalidOutput for an empty, non-float or non-continuous blob.
func FromMat(mat gocv.Mat) (*inference.Output, error) {
	if mat.Empty() {
		return nil, errors.Wrap(inference.ErrInvalidOutput, "empty mat")
	}
	if mat.Type() != gocv.MatTypeCV32F {
		return nil, errors.Wrapf(inference.ErrInvalidOutput, "mat type %v is not CV_32F", mat.Type())
	}
	if !mat.IsContinuous() {
		return nil, errors.Wrap(inference.ErrInvalidOutput, "mat is not continuous")
	}

	data, err := mat.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrapf(inference.ErrInvalidOutput, "mat data: %v", err)
	}
	return inference.NewOutput(mat.Size(), data)
}

// FromMats views the blobs of gocv.Net.ForwardLayers by layer name.
//
// Arguments:
//   - names: The output layer names passed to ForwardLayers.
//   - mats: The blobs in the same order.
//
// Returns:
//   - map[string]*inference.Output: The views keyed by layer name.
//   - error: inference.ErrInvalidOutput when the lists differ in length or a blob is invalid.
func FromMats(names []string, mats []gocv.Mat) (map[string]*inference.Output, error) {
	if len(names) != len(mats) {
		return nil, errors.Wrapf(inference.ErrInvalidOutput, "%d layer names for %d blobs", len(names), len(mats))
	}

	outputs := make(map[string]*inference.Output, len(names))
	for i, name := range names {
		out, err := FromMat(mats[i])
		if err != nil {
			return nil, errors.Wrapf(err, "layer %q", name)
		}
		outputs[name] = out
	}
	return outputs, nil
}
