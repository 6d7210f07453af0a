// Package models - registry for models.
package models

import (
	"github.com/nvr-ai/go-retinaface/models/model"
	"github.com/nvr-ai/go-retinaface/models/retinaface"
	"github.com/pkg/errors"
)

// ErrUnsupportedModel is returned for a model name with no registered constructor.
var ErrUnsupportedModel = errors.New("unsupported model")

// NewModel creates a new detection model instance based on the specified model type.
//
// This factory function is the entry point for model creation, routing requests
// to the model-specific constructors behind the shared model.Model interface.
//
// Arguments:
//   - args: The model name, an optional configuration file and logger.
//
// Returns:
//   - model.Model: The model. Call Bind with the runtime's outputs before use.
//   - error: ErrUnsupportedModel for an unknown name, or the constructor's error.
//
// Example:
//
// ```go
//
//	m, err := NewModel(model.NewModelArgs{
//	    Name:       model.ModelNameRetinaFace,
//	    ConfigPath: "/etc/nvr/retinaface.yaml",
//	})
//
//	if err != nil {
//	    log.Fatalf("Failed to create detection model: %v", err)
//	}
//
// ```
func NewModel(args model.NewModelArgs) (model.Model, error) {
	switch args.Name {
	case model.ModelNameRetinaFace:
		cfg := retinaface.DefaultConfig()
		if args.ConfigPath != "" {
			var err error
			if cfg, err = retinaface.LoadConfig(args.ConfigPath); err != nil {
				return nil, err
			}
		}
		m, err := retinaface.NewModel(cfg, retinaface.WithLogger(args.Logger))
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedModel, "%q", args.Name)
	}
}
