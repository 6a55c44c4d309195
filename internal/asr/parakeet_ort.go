//go:build onnxruntime

package asr

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// ortSession wraps an ONNX Runtime session discovered via model
// introspection. Models take either one input (the float payload) or two
// (payload plus a length tensor).
type ortSession struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
}

func newORTSession(path string) (inferenceSession, error) {
	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("initializing onnxruntime: %w", ortInitErr)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("inspecting model: %w", err)
	}
	if len(inputs) == 0 || len(inputs) > 2 || len(outputs) == 0 {
		return nil, fmt.Errorf("unsupported model I/O: %d inputs, %d outputs", len(inputs), len(outputs))
	}

	inputNames := make([]string, len(inputs))
	for i, in := range inputs {
		inputNames[i] = in.Name
	}

	session, err := ort.NewDynamicAdvancedSession(path, inputNames, []string{outputs[0].Name}, nil)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &ortSession{session: session, inputNames: inputNames}, nil
}

func (s *ortSession) runFeatures(features []float32, melBins, frames int) ([]float32, []int64, error) {
	if frames == 0 {
		return nil, nil, fmt.Errorf("no feature frames")
	}
	payload, err := ort.NewTensor(ort.NewShape(1, int64(melBins), int64(frames)), features)
	if err != nil {
		return nil, nil, fmt.Errorf("creating feature tensor: %w", err)
	}
	defer payload.Destroy()
	return s.run(payload, int64(frames))
}

func (s *ortSession) runRaw(samples []float32) ([]float32, []int64, error) {
	payload, err := ort.NewTensor(ort.NewShape(1, int64(len(samples))), samples)
	if err != nil {
		return nil, nil, fmt.Errorf("creating audio tensor: %w", err)
	}
	defer payload.Destroy()
	return s.run(payload, int64(len(samples)))
}

// run feeds the payload (plus a length tensor when the model declares a
// second input) and copies out the logits.
func (s *ortSession) run(payload ort.Value, length int64) ([]float32, []int64, error) {
	inputs := []ort.Value{payload}

	if len(s.inputNames) == 2 {
		lengths, err := ort.NewTensor(ort.NewShape(1), []int64{length})
		if err != nil {
			return nil, nil, fmt.Errorf("creating length tensor: %w", err)
		}
		defer lengths.Destroy()
		inputs = append(inputs, lengths)
	}

	outputs := make([]ort.Value, 1)
	if err := s.session.Run(inputs, outputs); err != nil {
		return nil, nil, fmt.Errorf("session run: %w", err)
	}
	defer outputs[0].Destroy()

	logits, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}

	data := make([]float32, len(logits.GetData()))
	copy(data, logits.GetData())
	return data, logits.GetShape(), nil
}

func (s *ortSession) close() error {
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	return nil
}
