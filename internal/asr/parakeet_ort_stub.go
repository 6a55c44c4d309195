//go:build !onnxruntime

package asr

import "fmt"

// newORTSession stub for builds without the onnxruntime tag, so the module
// compiles without the ONNX Runtime shared library.
func newORTSession(path string) (inferenceSession, error) {
	return nil, fmt.Errorf("parakeet backend requires the onnxruntime build tag (model %q)", path)
}
