package util

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ErrEmptyLabels is returned when a label file has no labels.
var ErrEmptyLabels = errors.New("label file is empty")

// LoadLabels reads a label table, one label per line. Line i is class id i.
//
// Trailing carriage returns are stripped so files written on Windows load the
// same way. Blank lines are kept, since they still occupy a class id.
//
// Arguments:
// - path: Path to the label file.
//
// Returns:
// - []string: The labels in file order.
// - error: Error if the file cannot be read or holds no labels.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open label file %s", path)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read label file %s", path)
	}

	if len(labels) == 0 {
		return nil, errors.Wrap(ErrEmptyLabels, path)
	}
	return labels, nil
}
