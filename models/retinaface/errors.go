package retinaface

import "github.com/pkg/errors"

var (
	// ErrConfig reports an invalid configuration or model outputs that do not
	// match the configured strides and heads.
	ErrConfig = errors.New("retinaface: configuration error")
	// ErrShapeMismatch reports output tensors that disagree with the anchor grid
	// of their stride or with each other. No tensor data is read when it is returned.
	ErrShapeMismatch = errors.New("retinaface: output shape mismatch")
)
