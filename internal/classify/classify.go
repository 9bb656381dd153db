// Package classify adapts the pre-trained sign classification model: it
// fits a landmark sequence to the model window, runs inference and decodes
// the winning class index to a word.
package classify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/signifyapp/signify-server/internal/landmark"
)

// Prediction is the result of classifying one sign segment.
type Prediction struct {
	Word       string  `json:"word"`
	Confidence float64 `json:"confidence"`
	ClassIndex int     `json:"predicted_index"`
}

// Runner executes the black-box model over one fitted window and returns
// the class-probability vector.
type Runner interface {
	Run(ctx context.Context, tensor []float32) ([]float64, error)
	Close() error
}

// Classifier turns landmark sequences into word predictions.
type Classifier struct {
	runner Runner
	labels *LabelTable
	state  State
	window int
	logger *zap.Logger
}

// Options configures a Classifier.
type Options struct {
	ModelPath string
	LabelPath string
	// Window is the model's temporal input length; defaults to
	// landmark.MaxFrames.
	Window int
}

// New builds a Classifier, degrading rather than failing when artifacts
// are missing: no model file means mock-prediction mode, no label file
// means the built-in fallback table.
func New(opts Options, logger *zap.Logger) *Classifier {
	c := &Classifier{
		window: opts.Window,
		logger: logger,
	}
	if c.window <= 0 {
		c.window = landmark.MaxFrames
	}

	runner, err := NewProcessRunner(opts.ModelPath, c.window)
	if err != nil {
		logger.Warn("classifier model unavailable, serving mock predictions",
			zap.String("model_path", opts.ModelPath),
			zap.Error(err))
		c.state = StateUnloaded
		return c
	}
	c.runner = runner

	labels, err := LoadLabelTable(opts.LabelPath)
	if err != nil {
		logger.Warn("label table unavailable, using letter fallback",
			zap.String("label_path", opts.LabelPath),
			zap.Error(err))
		c.labels = FallbackLabelTable()
		c.state = StateLoadedNoLabels
		return c
	}

	c.labels = labels
	c.state = StateLoaded
	logger.Info("classifier ready",
		zap.Int("classes", labels.Len()),
		zap.Int("window", c.window))
	return c
}

// NewWithRunner builds a Classifier over an explicit runner and label
// table. Tests and embedders use this to skip artifact loading.
func NewWithRunner(runner Runner, labels *LabelTable, state State, window int, logger *zap.Logger) *Classifier {
	if window <= 0 {
		window = landmark.MaxFrames
	}
	return &Classifier{
		runner: runner,
		labels: labels,
		state:  state,
		window: window,
		logger: logger,
	}
}

// State reports which degraded mode, if any, the classifier is in.
func (c *Classifier) State() State {
	return c.state
}

// Window returns the temporal input length of the model.
func (c *Classifier) Window() int {
	return c.window
}

// Predict fits the sequence to the model window and returns one
// Prediction.
//
// An unloaded classifier yields the placeholder prediction with zero
// confidence instead of an error; callers must treat that as a distinct
// condition from a low-confidence real prediction.
func (c *Classifier) Predict(ctx context.Context, seq landmark.Sequence) (Prediction, error) {
	if c.state == StateUnloaded || c.runner == nil {
		return Prediction{Word: PlaceholderWord, Confidence: 0, ClassIndex: -1}, nil
	}

	fitted := landmark.Fit(seq, c.window)
	probs, err := c.runner.Run(ctx, landmark.Tensor(fitted))
	if err != nil {
		return Prediction{}, fmt.Errorf("run model: %w", err)
	}
	if len(probs) == 0 {
		return Prediction{}, fmt.Errorf("model returned empty probability vector")
	}

	index := argmax(probs)
	word, ok := c.labels.Decode(index)
	if !ok {
		c.logger.Warn("class index outside label table, using placeholder",
			zap.Int("index", index),
			zap.Int("classes", c.labels.Len()))
	}

	return Prediction{
		Word:       word,
		Confidence: probs[index],
		ClassIndex: index,
	}, nil
}

// Close releases the inference runner.
func (c *Classifier) Close() error {
	if c.runner == nil {
		return nil
	}
	return c.runner.Close()
}

func argmax(probs []float64) int {
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best
}
