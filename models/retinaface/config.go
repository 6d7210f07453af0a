package retinaface

import (
	"os"

	"github.com/nvr-ai/go-retinaface/models/anchors"
	"github.com/nvr-ai/go-retinaface/models/model"
	"github.com/nvr-ai/go-retinaface/util"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config describes the detection heads of a RetinaFace-style model and its
// post-processing thresholds.
type Config struct {
	// Strides lists one anchor configuration per detection scale level. Detections
	// are emitted in this order.
	Strides []anchors.StrideConfig `json:"strides" yaml:"strides"`

	// ConfidenceThreshold filters candidates below this score (inclusive keep).
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`

	// NMSThreshold is the per-level IoU at or above which a candidate is suppressed.
	NMSThreshold float32 `json:"nms_threshold" yaml:"nms_threshold"`

	// Landmarks enables the landmark head.
	Landmarks bool `json:"landmarks" yaml:"landmarks"`
	// LandmarkCount is the number of points per detection.
	LandmarkCount int `json:"landmark_count" yaml:"landmark_count"`
	// LandmarkStd scales the raw landmark offsets.
	LandmarkStd float32 `json:"landmark_std" yaml:"landmark_std"`

	// Masks enables the auxiliary mask classification head.
	Masks bool `json:"masks" yaml:"masks"`

	// ScoreOffset is the first foreground channel of the score head. Zero means
	// the anchors-per-cell background channels come first.
	ScoreOffset int `json:"score_offset" yaml:"score_offset"`
	// MaskOffset is the first channel read from the mask head. Zero means
	// twice the anchors per cell.
	MaskOffset int `json:"mask_offset" yaml:"mask_offset"`

	// LabelID is the class id of every detection.
	LabelID int `json:"label_id" yaml:"label_id"`
	// Labels is the label table indexed by class id.
	Labels []string `json:"labels" yaml:"labels"`
	// LabelsPath, when set, replaces Labels with the lines of a label file.
	LabelsPath string `json:"labels_path" yaml:"labels_path"`
}

// DefaultConfig returns the reference three-level face detector configuration.
//
// Returns:
//   - Config: strides 32/16/8 with two square anchors each, confidence 0.5,
//     NMS 0.5, five landmarks with std 0.2, masks disabled.
//
// @example
// cfg := DefaultConfig()
// cfg.ConfidenceThreshold = 0.8
// m, err := NewModel(cfg)
func DefaultConfig() Config {
	return Config{
		Strides: []anchors.StrideConfig{
			{Stride: 32, BaseSize: 16, Ratios: []float32{1}, Scales: []float32{32, 16}},
			{Stride: 16, BaseSize: 16, Ratios: []float32{1}, Scales: []float32{8, 4}},
			{Stride: 8, BaseSize: 16, Ratios: []float32{1}, Scales: []float32{2, 1}},
		},
		ConfidenceThreshold: 0.5,
		NMSThreshold:        0.5,
		Landmarks:           true,
		LandmarkCount:       5,
		LandmarkStd:         0.2,
		Masks:               false,
		LabelID:             1,
		Labels:              append([]string(nil), model.DefaultFaceLabels...),
	}
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig.
//
// Keys missing from the file keep their default values. When labels_path is
// set the label file is loaded into Labels.
//
// Arguments:
//   - path: Path to the YAML file.
//
// Returns:
//   - Config: The validated configuration.
//   - error: Read, parse or validation error (ErrConfig for invalid values).
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(ErrConfig, "parse config %s: %v", path, err)
	}

	if cfg.LabelsPath != "" {
		labels, err := util.LoadLabels(cfg.LabelsPath)
		if err != nil {
			return Config{}, err
		}
		cfg.Labels = labels
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration.
//
// Returns:
//   - error: ErrConfig describing the first invalid field, nil otherwise.
func (c *Config) Validate() error {
	if len(c.Strides) == 0 {
		return errors.Wrap(ErrConfig, "no strides configured")
	}

	seen := make(map[int]bool, len(c.Strides))
	for _, s := range c.Strides {
		switch {
		case s.Stride <= 0:
			return errors.Wrapf(ErrConfig, "stride %d must be positive", s.Stride)
		case seen[s.Stride]:
			return errors.Wrapf(ErrConfig, "stride %d configured twice", s.Stride)
		case s.BaseSize <= 0:
			return errors.Wrapf(ErrConfig, "stride %d: base size %d must be positive", s.Stride, s.BaseSize)
		case len(s.Ratios) == 0 || len(s.Scales) == 0:
			return errors.Wrapf(ErrConfig, "stride %d: ratios and scales must not be empty", s.Stride)
		}
		for _, r := range s.Ratios {
			if r <= 0 {
				return errors.Wrapf(ErrConfig, "stride %d: ratio %v must be positive", s.Stride, r)
			}
		}
		for _, sc := range s.Scales {
			if sc <= 0 {
				return errors.Wrapf(ErrConfig, "stride %d: scale %v must be positive", s.Stride, sc)
			}
		}
		seen[s.Stride] = true
	}

	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return errors.Wrapf(ErrConfig, "confidence threshold %v outside [0, 1]", c.ConfidenceThreshold)
	}
	if c.NMSThreshold <= 0 || c.NMSThreshold > 1 {
		return errors.Wrapf(ErrConfig, "nms threshold %v outside (0, 1]", c.NMSThreshold)
	}
	if c.Landmarks && c.LandmarkCount <= 0 {
		return errors.Wrapf(ErrConfig, "landmark count %d must be positive", c.LandmarkCount)
	}
	if c.Landmarks && c.LandmarkStd <= 0 {
		return errors.Wrapf(ErrConfig, "landmark std %v must be positive", c.LandmarkStd)
	}
	if c.ScoreOffset < 0 || c.MaskOffset < 0 {
		return errors.Wrapf(ErrConfig, "channel offsets must not be negative (score %d, mask %d)",
			c.ScoreOffset, c.MaskOffset)
	}
	if c.LabelID < 0 {
		return errors.Wrapf(ErrConfig, "label id %d must not be negative", c.LabelID)
	}
	return nil
}

// scoreOffset returns the first foreground channel for a stride with a anchors per cell.
func (c *Config) scoreOffset(a int) int {
	if c.ScoreOffset > 0 {
		return c.ScoreOffset
	}
	return a
}

// maskOffset returns the first mask channel for a stride with a anchors per cell.
func (c *Config) maskOffset(a int) int {
	if c.MaskOffset > 0 {
		return c.MaskOffset
	}
	return 2 * a
}
