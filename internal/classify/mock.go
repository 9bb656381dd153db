package classify

import "context"

// MockRunner is a test implementation of the Runner interface returning a
// fixed probability vector.
type MockRunner struct {
	probs []float64
	err   error
	calls int
}

// NewMockRunner creates a MockRunner that returns the given probabilities.
func NewMockRunner(probs []float64) *MockRunner {
	return &MockRunner{probs: probs}
}

// SetError sets the error that will be returned by Run.
func (m *MockRunner) SetError(err error) {
	m.err = err
}

// Calls returns how many times Run was invoked.
func (m *MockRunner) Calls() int {
	return m.calls
}

// Run returns the pre-configured probabilities or error.
func (m *MockRunner) Run(ctx context.Context, tensor []float32) ([]float64, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.probs, nil
}

// Close is a no-op for the mock runner.
func (m *MockRunner) Close() error {
	return nil
}
