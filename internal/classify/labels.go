package classify

import (
	"encoding/json"
	"fmt"
	"os"
)

// PlaceholderWord is returned whenever a real word cannot be decoded:
// model not loaded, or a class index outside the label table. Sessions
// keep placeholder entries for undo purposes but exclude them from the
// composed sentence.
const PlaceholderWord = "sign_detected"

// State describes how much of the classifier could be loaded at startup.
type State int

const (
	// StateUnloaded means the model file is missing; predictions are
	// placeholders with zero confidence.
	StateUnloaded State = iota
	// StateLoaded means both model and label table are available.
	StateLoaded
	// StateLoadedNoLabels means the model runs but the label file is
	// missing, so indices decode through the built-in fallback table.
	StateLoadedNoLabels
)

// String returns the operator-facing name of the state.
func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateLoadedNoLabels:
		return "loaded_no_labels"
	default:
		return "mock_mode"
	}
}

// LabelTable maps model class indices to words.
type LabelTable struct {
	words []string
}

// NewLabelTable builds a table from an in-memory word list ordered by
// class index.
func NewLabelTable(words []string) *LabelTable {
	return &LabelTable{words: words}
}

// LoadLabelTable reads a JSON array of words ordered by class index.
func LoadLabelTable(path string) (*LabelTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label file: %w", err)
	}

	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		return nil, fmt.Errorf("parse label file: %w", err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("label file %s is empty", path)
	}

	return &LabelTable{words: words}, nil
}

// FallbackLabelTable returns the built-in letter table used when no label
// file is available. It only covers the alphabet classes, so most indices
// will decode to the placeholder, but the server stays usable for testing.
func FallbackLabelTable() *LabelTable {
	words := make([]string, 26)
	for i := range words {
		words[i] = string(rune('A' + i))
	}
	return &LabelTable{words: words}
}

// Len returns the number of classes in the table.
func (t *LabelTable) Len() int {
	return len(t.words)
}

// Decode maps a class index to its word. Out-of-range indices (a
// model/label mismatch seen in the field) decode to the placeholder
// instead of failing the request.
func (t *LabelTable) Decode(index int) (string, bool) {
	if index < 0 || index >= len(t.words) {
		return PlaceholderWord, false
	}
	return t.words[index], true
}
