package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadLabels(t *testing.T) {
	labels, err := LoadLabels(writeFile(t, "__background__\r\nFace\r\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"__background__", "Face"}, labels)

	labels, err = LoadLabels(writeFile(t, "face\n\nmasked face"))
	require.NoError(t, err)
	assert.Equal(t, []string{"face", "", "masked face"}, labels)
}

func TestLoadLabels_Errors(t *testing.T) {
	_, err := LoadLabels(writeFile(t, ""))
	assert.True(t, errors.Is(err, ErrEmptyLabels))

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
