package retinaface

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-retinaface/inference"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Head identifies the role of a model output.
type Head int

const (
	// HeadScores is the background/foreground classifier.
	HeadScores Head = iota
	// HeadBoxes is the box regression head.
	HeadBoxes
	// HeadLandmarks is the landmark regression head.
	HeadLandmarks
	// HeadMasks is the auxiliary mask classifier.
	HeadMasks
)

// String returns the head name.
func (h Head) String() string {
	switch h {
	case HeadScores:
		return "scores"
	case HeadBoxes:
		return "boxes"
	case HeadLandmarks:
		return "landmarks"
	case HeadMasks:
		return "masks"
	default:
		return "unknown"
	}
}

type binding struct {
	stride int
	head   Head
}

var strideSuffix = regexp.MustCompile(`stride(\d+)`)

// classify maps an output name to its head. Outputs of disabled heads and
// unknown outputs are ignored.
func (m *Model) classify(name string) (Head, bool) {
	switch {
	case strings.Contains(name, "bbox"):
		return HeadBoxes, true
	case strings.Contains(name, "cls"):
		return HeadScores, true
	case strings.Contains(name, "landmark"):
		return HeadLandmarks, m.cfg.Landmarks
	case strings.Contains(name, "type"):
		return HeadMasks, m.cfg.Masks
	default:
		return 0, false
	}
}

// heads returns the heads every stride must provide.
func (m *Model) heads() []Head {
	heads := []Head{HeadScores, HeadBoxes}
	if m.cfg.Landmarks {
		heads = append(heads, HeadLandmarks)
	}
	if m.cfg.Masks {
		heads = append(heads, HeadMasks)
	}
	return heads
}

// Bind validates the outputs a runtime reports for the model and maps each one
// to a stride and head.
//
// Outputs are classified by name: "bbox" for boxes, "cls" for scores,
// "landmark" for landmarks and "type" for masks. Every enabled head needs one
// output per stride. Outputs are assigned to strides through a "strideN" name
// suffix when every output of the head carries one; otherwise by ascending
// spatial height, the smallest map going to the largest stride.
//
// Arguments:
//   - outputs: The model outputs.
//
// Returns:
//   - error: ErrConfig when heads are missing, duplicated, cannot be ordered or
//     declare channel counts that do not match the anchors.
func (m *Model) Bind(outputs []inference.OutputInfo) error {
	groups := make(map[Head][]inference.OutputInfo)
	for _, o := range outputs {
		head, ok := m.classify(o.Name)
		if !ok {
			m.logger.Debug("ignoring model output", zap.String("name", o.Name))
			continue
		}
		groups[head] = append(groups[head], o)
	}

	strides := make([]int, len(m.cfg.Strides))
	for i, s := range m.cfg.Strides {
		strides[i] = s.Stride
	}
	sort.Sort(sort.Reverse(sort.IntSlice(strides)))

	bindings := make(map[string]binding, len(strides)*len(m.heads()))
	for _, head := range m.heads() {
		group := groups[head]
		if len(group) != len(strides) {
			return errors.Wrapf(ErrConfig, "expected %d %s outputs, got %d", len(strides), head, len(group))
		}

		assigned, err := assignStrides(group, strides)
		if err != nil {
			return errors.Wrapf(err, "%s outputs", head)
		}
		for name, stride := range assigned {
			if err := m.checkChannels(head, stride, group, name); err != nil {
				return err
			}
			bindings[name] = binding{stride: stride, head: head}
			m.logger.Info("bound model output",
				zap.String("name", name),
				zap.String("head", head.String()),
				zap.Int("stride", stride),
			)
		}
	}

	m.bindings = bindings
	return nil
}

// assignStrides maps output names to strides. strides is sorted descending.
func assignStrides(group []inference.OutputInfo, strides []int) (map[string]int, error) {
	known := make(map[int]bool, len(strides))
	for _, s := range strides {
		known[s] = true
	}

	assigned := make(map[string]int, len(group))
	used := make(map[int]bool, len(group))
	for _, o := range group {
		match := strideSuffix.FindStringSubmatch(o.Name)
		if match == nil {
			break
		}
		s, err := strconv.Atoi(match[1])
		if err != nil || !known[s] || used[s] {
			break
		}
		assigned[o.Name] = s
		used[s] = true
	}
	if len(assigned) == len(group) {
		return assigned, nil
	}

	sorted := make([]inference.OutputInfo, len(group))
	copy(sorted, group)
	for _, o := range sorted {
		if o.Height() <= 0 {
			return nil, errors.Wrapf(ErrConfig, "output %q has no stride suffix and no static height", o.Name)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Height() < sorted[j].Height() })

	assigned = make(map[string]int, len(group))
	for i, o := range sorted {
		if i > 0 && o.Height() == sorted[i-1].Height() {
			return nil, errors.Wrapf(ErrConfig, "outputs %q and %q have the same height %d",
				sorted[i-1].Name, o.Name, o.Height())
		}
		assigned[o.Name] = strides[i]
	}
	return assigned, nil
}

// checkChannels validates a declared channel count. Dynamic counts are checked at decode time.
func (m *Model) checkChannels(head Head, stride int, group []inference.OutputInfo, name string) error {
	var info inference.OutputInfo
	for _, o := range group {
		if o.Name == name {
			info = o
		}
	}
	c := int(info.Channels())
	if c <= 0 {
		return nil
	}

	canonical, _ := m.cache.Canonical(stride)
	a := len(canonical)

	var ok bool
	switch head {
	case HeadScores:
		ok = c == m.cfg.scoreOffset(a)+a
	case HeadBoxes:
		ok = c%a == 0 && c/a >= 4
	case HeadLandmarks:
		ok = c%a == 0 && c/a >= 2*m.cfg.LandmarkCount
	case HeadMasks:
		ok = c == m.cfg.maskOffset(a)+a
	}
	if !ok {
		return errors.Wrapf(ErrConfig, "output %q: %d channels do not fit %s of stride %d with %d anchors",
			name, c, head, stride, a)
	}
	return nil
}
