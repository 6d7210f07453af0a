package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabels_Name(t *testing.T) {
	tests := []struct {
		name     string
		labels   Labels
		id       int
		expected string
	}{
		{"in range", DefaultFaceLabels, 1, "Face"},
		{"background", DefaultFaceLabels, 0, "__background__"},
		{"past the end", DefaultFaceLabels, 2, "Label #2"},
		{"negative", DefaultFaceLabels, -1, "Label #-1"},
		{"empty table", nil, 1, "Label #1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.labels.Name(tt.id))
		})
	}
}
