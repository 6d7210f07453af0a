// Package retinaface - Post-processing for RetinaFace-style multi-scale anchor
// detectors: anchor decoding, per-level NMS and rescaling to the source image.
package retinaface

import (
	"github.com/nvr-ai/go-retinaface/models/anchors"
	"github.com/nvr-ai/go-retinaface/models/model"
	"go.uber.org/zap"
)

// Model is the post-processing engine of one RetinaFace model configuration.
//
// PostProcess and PostProcessNamed may be called concurrently for different
// frames. Bind must complete before PostProcessNamed is used.
type Model struct {
	cfg    Config
	labels model.Labels
	cache  *anchors.Cache
	logger *zap.Logger

	bindings map[string]binding
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger. The default logger discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithLabels overrides the label table of the configuration.
func WithLabels(labels model.Labels) Option {
	return func(m *Model) {
		m.labels = labels
	}
}

// NewModel validates the configuration and builds the canonical anchors.
//
// Arguments:
//   - cfg: The model configuration.
//   - opts: Optional logger and label table.
//
// Returns:
//   - *Model: The engine.
//   - error: ErrConfig for an invalid configuration.
//
// @example
// m, err := NewModel(DefaultConfig(), WithLogger(zap.NewExample()))
//
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewModel(cfg Config, opts ...Option) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fpn := anchors.GenerateFPN(cfg.Strides)
	m := &Model{
		cfg:    cfg,
		labels: model.Labels(cfg.Labels),
		cache:  anchors.NewCache(fpn),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, s := range cfg.Strides {
		m.logger.Info("anchors generated",
			zap.Int("stride", s.Stride),
			zap.Int("anchors_per_cell", len(fpn[s.Stride])),
		)
	}
	m.logger.Info("retinaface model created",
		zap.Int("strides", len(cfg.Strides)),
		zap.Float32("confidence_threshold", cfg.ConfidenceThreshold),
		zap.Float32("nms_threshold", cfg.NMSThreshold),
		zap.Bool("landmarks", cfg.Landmarks),
		zap.Bool("masks", cfg.Masks),
	)
	return m, nil
}

// Name returns model.ModelNameRetinaFace.
func (m *Model) Name() model.Name {
	return model.ModelNameRetinaFace
}

// Family returns model.ModelFamilyFace.
func (m *Model) Family() model.Family {
	return model.ModelFamilyFace
}

// Config returns a copy of the configuration.
func (m *Model) Config() Config {
	return m.cfg
}

// Label returns the class id and label text attached to every detection.
func (m *Model) Label() (int, string) {
	return m.cfg.LabelID, m.labels.Name(m.cfg.LabelID)
}
