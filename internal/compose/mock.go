package compose

import "context"

// MockComposer is a test implementation of the Composer interface.
type MockComposer struct {
	sentence string
	err      error
	calls    int
}

// NewMockComposer creates a MockComposer returning the given sentence.
func NewMockComposer(sentence string) *MockComposer {
	return &MockComposer{sentence: sentence}
}

// SetError sets the error that will be returned by Compose.
func (m *MockComposer) SetError(err error) {
	m.err = err
}

// Calls returns how many times Compose was invoked.
func (m *MockComposer) Calls() int {
	return m.calls
}

// Compose returns the pre-configured sentence or error.
func (m *MockComposer) Compose(ctx context.Context, words []string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.sentence, nil
}
