package model

import "strconv"

// Labels is an ordered label table; the index is the class id.
type Labels []string

// DefaultFaceLabels is the label table of single-class face detectors.
var DefaultFaceLabels = Labels{"__background__", "Face"}

// Name returns the label of id, or "Label #N" when id is out of range.
func (l Labels) Name(id int) string {
	if id >= 0 && id < len(l) {
		return l[id]
	}
	return "Label #" + strconv.Itoa(id)
}
