// Package model - Shared model identifiers and interfaces.
package model

import (
	"github.com/nvr-ai/go-retinaface/common"
	"github.com/nvr-ai/go-retinaface/inference"
	"github.com/nvr-ai/go-retinaface/models/postprocess"
	"go.uber.org/zap"
)

// Family is the family of models.
type Family string

const (
	// ModelFamilyFace is the face detector family (single foreground class).
	ModelFamilyFace Family = "face"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameRetinaFace is the name of the RetinaFace model.
	ModelNameRetinaFace Name = "retinaface"
)

// Model turns the raw outputs of one inference call into detections.
type Model interface {
	// Name returns the model name.
	Name() Name
	// Family returns the model family.
	Family() Family
	// Bind validates the model outputs reported by the runtime and maps them to heads.
	Bind(outputs []inference.OutputInfo) error
	// PostProcessNamed decodes the outputs of one frame, keyed by output name.
	PostProcessNamed(outputs map[string]*inference.Output, geom postprocess.Geometry) ([]common.DetectedObject, error)
}

// NewModelArgs is the arguments for creating a new model.
type NewModelArgs struct {
	Name Name `json:"name" yaml:"name"`
	// ConfigPath is an optional YAML configuration file.
	ConfigPath string `json:"config_path" yaml:"config_path"`
	// Logger receives model events. Nil discards them.
	Logger *zap.Logger `json:"-" yaml:"-"`
}
