package retinaface

import (
	"github.com/nvr-ai/go-retinaface/common"
	"github.com/nvr-ai/go-retinaface/inference"
	"github.com/nvr-ai/go-retinaface/models/anchors"
	"github.com/nvr-ai/go-retinaface/models/postprocess"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// StrideOutputs holds the output tensors of one scale level.
//
// Landmarks must be set when landmarks are enabled and Masks when masks are
// enabled; both are ignored otherwise.
type StrideOutputs struct {
	Stride    int
	Scores    *inference.Output
	Boxes     *inference.Output
	Landmarks *inference.Output
	Masks     *inference.Output
}

// PostProcess turns the raw outputs of one frame into face detections in
// source image coordinates.
//
// Scale levels are processed in configuration order. For every level the
// anchors are expanded over the tensor grid (cached per stride and network
// size), boxes and landmarks are decoded, candidates below the confidence
// threshold are dropped and greedy NMS runs within the level. The survivors of
// all levels are merged without cross-level suppression and rescaled.
//
// Arguments:
//   - outputs: One entry per configured stride, in any order.
//   - geom: The network input and source image sizes.
//
// Returns:
//   - The detections, level by level and by descending score within a level.
//     Empty, never nil, when nothing passes the threshold.
//   - error: ErrConfig, ErrShapeMismatch or postprocess.ErrGeometry.
//
// @example
// dets, err := m.PostProcess([]StrideOutputs{s32, s16, s8}, postprocess.Geometry{
// NetWidth: 640, NetHeight: 640, ImageWidth: 1920, ImageHeight: 1080,
// })
func (m *Model) PostProcess(outputs []StrideOutputs, geom postprocess.Geometry) ([]common.DetectedObject, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}

	byStride := make(map[int]StrideOutputs, len(outputs))
	for _, o := range outputs {
		if _, dup := byStride[o.Stride]; dup {
			return nil, errors.Wrapf(ErrConfig, "stride %d given twice", o.Stride)
		}
		byStride[o.Stride] = o
	}

	levels := make([]level, 0, len(m.cfg.Strides))
	for _, s := range m.cfg.Strides {
		o, ok := byStride[s.Stride]
		if !ok {
			return nil, errors.Wrapf(ErrShapeMismatch, "no outputs for stride %d", s.Stride)
		}
		l, err := m.prepare(o, geom)
		if err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}

	merged := &postprocess.Candidates{}
	for _, l := range levels {
		candidates, err := m.decode(l)
		if err != nil {
			return nil, err
		}

		kept, _ := candidates.Filter(m.cfg.ConfidenceThreshold, m.cfg.NMSThreshold)
		candidates.Select(merged, kept)

		m.logger.Debug("scale level processed",
			zap.Int("stride", l.grid.Stride),
			zap.Int("height", l.grid.Height),
			zap.Int("width", l.grid.Width),
			zap.Int("candidates", candidates.Len()),
			zap.Int("kept", len(kept)),
		)
	}

	id, name := m.Label()
	return postprocess.Aggregate(merged, geom, m.cfg.ConfidenceThreshold, postprocess.Label{ID: id, Name: name})
}

// level is a stride whose tensors have been checked against its anchor grid.
type level struct {
	grid    *anchors.Grid
	outputs StrideOutputs
}

type headOutput struct {
	head Head
	out  *inference.Output
}

// prepare validates the tensors of one stride and resolves its anchor grid.
func (m *Model) prepare(o StrideOutputs, geom postprocess.Geometry) (level, error) {
	heads := []headOutput{
		{HeadScores, o.Scores},
		{HeadBoxes, o.Boxes},
	}
	if m.cfg.Landmarks {
		heads = append(heads, headOutput{HeadLandmarks, o.Landmarks})
	}
	if m.cfg.Masks {
		heads = append(heads, headOutput{HeadMasks, o.Masks})
	}

	for _, h := range heads {
		if h.out == nil {
			return level{}, errors.Wrapf(ErrShapeMismatch, "stride %d: missing %s output", o.Stride, h.head)
		}
		if h.out.Height() != o.Scores.Height() || h.out.Width() != o.Scores.Width() {
			return level{}, errors.Wrapf(ErrShapeMismatch, "stride %d: %s output is %dx%d, scores are %dx%d",
				o.Stride, h.head, h.out.Height(), h.out.Width(), o.Scores.Height(), o.Scores.Width())
		}
	}

	key := anchors.Key{Stride: o.Stride, InputWidth: geom.NetWidth, InputHeight: geom.NetHeight}
	grid, hit, err := m.cache.Grid(key, o.Scores.Height(), o.Scores.Width())
	if err != nil {
		return level{}, errors.Wrapf(ErrConfig, "%v", err)
	}
	if !hit {
		m.logger.Debug("anchor grid expanded",
			zap.Int("stride", o.Stride),
			zap.Int("height", grid.Height),
			zap.Int("width", grid.Width),
			zap.Int("anchors", grid.Len()),
		)
	}

	for _, h := range heads {
		minLen := 1
		switch h.head {
		case HeadBoxes:
			minLen = 4
		case HeadLandmarks:
			minLen = 2 * m.cfg.LandmarkCount
		}
		if _, err := checkGrid(h.out, grid, minLen); err != nil {
			return level{}, errors.Wrapf(err, "%s output", h.head)
		}
	}

	a := grid.PerCell
	if want := m.cfg.scoreOffset(a) + a; o.Scores.Channels() != want {
		return level{}, errors.Wrapf(ErrShapeMismatch, "stride %d: score output has %d channels, want %d",
			o.Stride, o.Scores.Channels(), want)
	}
	if m.cfg.Masks {
		if want := m.cfg.maskOffset(a) + a; o.Masks.Channels() != want {
			return level{}, errors.Wrapf(ErrShapeMismatch, "stride %d: mask output has %d channels, want %d",
				o.Stride, o.Masks.Channels(), want)
		}
	}

	return level{grid: grid, outputs: o}, nil
}

// decode builds the candidates of one validated stride.
func (m *Model) decode(l level) (*postprocess.Candidates, error) {
	var (
		c   postprocess.Candidates
		err error
	)

	if c.Scores, err = ExtractScores(l.outputs.Scores, m.cfg.scoreOffset(l.grid.PerCell)); err != nil {
		return nil, err
	}
	if c.Boxes, err = DecodeBoxes(l.outputs.Boxes, l.grid); err != nil {
		return nil, err
	}
	if m.cfg.Landmarks {
		if c.Landmarks, err = DecodeLandmarks(l.outputs.Landmarks, l.grid, m.cfg.LandmarkStd, m.cfg.LandmarkCount); err != nil {
			return nil, err
		}
	}
	if m.cfg.Masks {
		if m.cfg.MaskOffset > 0 {
			c.MaskScores, err = ExtractScores(l.outputs.Masks, m.cfg.MaskOffset)
		} else {
			c.MaskScores, err = ExtractMaskScores(l.outputs.Masks, l.grid.PerCell)
		}
		if err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// PostProcessNamed is PostProcess over outputs keyed by model output name, as
// mapped by Bind.
//
// Arguments:
//   - outputs: The output tensors by name. Unbound names are ignored.
//   - geom: The network input and source image sizes.
//
// Returns:
//   - The detections as PostProcess returns them.
//   - error: ErrConfig before Bind, ErrShapeMismatch when a bound output is missing.
func (m *Model) PostProcessNamed(outputs map[string]*inference.Output, geom postprocess.Geometry) ([]common.DetectedObject, error) {
	if m.bindings == nil {
		return nil, errors.Wrap(ErrConfig, "model outputs are not bound")
	}

	byStride := make(map[int]*StrideOutputs, len(m.cfg.Strides))
	for _, s := range m.cfg.Strides {
		byStride[s.Stride] = &StrideOutputs{Stride: s.Stride}
	}
	for name, b := range m.bindings {
		out, ok := outputs[name]
		if !ok || out == nil {
			return nil, errors.Wrapf(ErrShapeMismatch, "missing output %q", name)
		}
		so := byStride[b.stride]
		switch b.head {
		case HeadScores:
			so.Scores = out
		case HeadBoxes:
			so.Boxes = out
		case HeadLandmarks:
			so.Landmarks = out
		case HeadMasks:
			so.Masks = out
		}
	}

	list := make([]StrideOutputs, 0, len(byStride))
	for _, s := range m.cfg.Strides {
		list = append(list, *byStride[s.Stride])
	}
	return m.PostProcess(list, geom)
}
