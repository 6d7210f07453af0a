// Package ortoutput - Adapters from ONNX Runtime tensors and model metadata to
// inference outputs.
package ortoutput

import (
	"os"
	"runtime"

	"github.com/nvr-ai/go-retinaface/inference"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// LibraryPathEnv overrides the platform default of SharedLibPath.
const LibraryPathEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// SharedLibPath returns the path to the ONNX Runtime shared library for the current platform.
//
// Returns:
//   - string: The value of LibraryPathEnv when set, the bundled library path otherwise.
func SharedLibPath() string {
	if p := os.Getenv(LibraryPathEnv); p != "" {
		return p
	}
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.1.23.0.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}

// InitEnvironment loads the ONNX Runtime shared library once per process.
//
// Returns:
//   - error: Error if the library is missing or cannot be initialized.
func InitEnvironment() error {
	if ort.IsInitialized() {
		return nil
	}

	libPath := SharedLibPath()
	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(err, "onnxruntime library not found at %s", libPath)
	}
	ort.SetSharedLibraryPath(libPath)

	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "initialize onnxruntime environment")
	}
	return nil
}

// OutputInfos reads the declared outputs of an ONNX model without creating a session.
//
// The result is what the RetinaFace model binds its heads to. InitEnvironment must
// have been called.
//
// Arguments:
//   - modelPath: Path to the .onnx file.
//
// Returns:
//   - []inference.OutputInfo: One entry per model output, in model order.
//   - error: Error if the model cannot be read.
func OutputInfos(modelPath string) ([]inference.OutputInfo, error) {
	_, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read outputs of %s", modelPath)
	}
	return fromInfos(outputs), nil
}

func fromInfos(outputs []ort.InputOutputInfo) []inference.OutputInfo {
	infos := make([]inference.OutputInfo, 0, len(outputs))
	for _, o := range outputs {
		infos = append(infos, inference.OutputInfo{
			Name:  o.Name,
			Shape: append([]int64(nil), o.Dimensions...),
		})
	}
	return infos
}

// FromTensor views the data of a float32 ONNX Runtime tensor.
//
// The tensor keeps ownership of its buffer; the view is valid until the tensor
// is destroyed or the session writes into it again.
//
// Arguments:
//   - t: A tensor shaped [1, C, H, W].
//
// Returns:
//   - *inference.Output: The view.
//   - error: inference.ErrInvalidOutput for a nil tensor or an unsupported shape.
func FromTensor(t *ort.Tensor[float32]) (*inference.Output, error) {
	if t == nil {
		return nil, errors.Wrap(inference.ErrInvalidOutput, "nil onnxruntime tensor")
	}

	shape := t.GetShape()
	dims := make([]int, len(shape))
	for i, d := range shape {
		dims[i] = int(d)
	}
	return inference.NewOutput(dims, t.GetData())
}

// FromTensors views session outputs by name.
//
// Arguments:
//   - names: The output names, in the order the session was created with.
//   - tensors: The output tensors in the same order.
//
// Returns:
//   - map[string]*inference.Output: The views keyed by output name.
//   - error: inference.ErrInvalidOutput when the lists differ in length or a
//     tensor is not a float32 NCHW tensor.
func FromTensors(names []string, tensors []ort.ArbitraryTensor) (map[string]*inference.Output, error) {
	if len(names) != len(tensors) {
		return nil, errors.Wrapf(inference.ErrInvalidOutput, "%d output names for %d tensors", len(names), len(tensors))
	}

	outputs := make(map[string]*inference.Output, len(names))
	for i, name := range names {
		t, ok := tensors[i].(*ort.Tensor[float32])
		if !ok {
			return nil, errors.Wrapf(inference.ErrInvalidOutput, "output %q is not a float32 tensor", name)
		}
		out, err := FromTensor(t)
		if err != nil {
			return nil, errors.Wrapf(err, "output %q", name)
		}
		outputs[name] = out
	}
	return outputs, nil
}
