package classify

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/signifyapp/signify-server/internal/landmark"
)

// ProcessRunner runs the TFLite model through a persistent Python
// subprocess: a length-prefixed float32 tensor goes in on stdin, a JSON
// line with the class-probability vector comes back on stdout.
type ProcessRunner struct {
	modelPath string
	window    int
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
}

// NewProcessRunner creates a runner for the model at modelPath. The
// subprocess is started lazily on first inference. The model file must
// exist up front so a missing artifact degrades at startup, not on the
// first request.
func NewProcessRunner(modelPath string, window int) (*ProcessRunner, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("model path not configured")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	if findInferenceScript() == "" {
		return nil, fmt.Errorf("inference_service.py not found")
	}

	return &ProcessRunner{modelPath: modelPath, window: window}, nil
}

// Run executes one inference over the flat (window, 100, 3) tensor and
// returns the probability vector.
func (r *ProcessRunner) Run(ctx context.Context, tensor []float32) ([]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := r.window * landmark.TotalLandmarks * 3
	if len(tensor) != want {
		return nil, fmt.Errorf("tensor has %d values, model expects %d", len(tensor), want)
	}

	if err := r.ensureStarted(); err != nil {
		return nil, err
	}

	payload := make([]byte, 4+len(tensor)*4)
	binary.BigEndian.PutUint32(payload, uint32(len(tensor)*4))
	for i, v := range tensor {
		binary.BigEndian.PutUint32(payload[4+i*4:], math.Float32bits(v))
	}

	if _, err := r.stdin.Write(payload); err != nil {
		return nil, fmt.Errorf("write tensor: %w", err)
	}

	line, err := r.stdout.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var response struct {
		Probabilities []float64 `json:"probabilities"`
		Error         string    `json:"error"`
	}
	if err := json.Unmarshal([]byte(line), &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("inference service: %s", response.Error)
	}

	return response.Probabilities, nil
}

// Close shuts down the inference subprocess.
func (r *ProcessRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return nil
	}

	if r.stdin != nil {
		r.stdin.Close()
	}
	err := r.cmd.Wait()
	r.started = false
	r.cmd = nil
	r.stdin = nil
	r.stdout = nil
	return err
}

func (r *ProcessRunner) ensureStarted() error {
	if r.started {
		return nil
	}

	scriptPath := findInferenceScript()
	if scriptPath == "" {
		return fmt.Errorf("inference_service.py not found")
	}

	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	r.cmd = exec.Command(pythonPath, scriptPath,
		"--model", r.modelPath,
		fmt.Sprintf("--window=%d", r.window),
	)

	stdin, err := r.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := r.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	r.cmd.Stderr = os.Stderr

	if err := r.cmd.Start(); err != nil {
		return fmt.Errorf("start inference service: %w", err)
	}

	r.stdin = stdin
	r.stdout = bufio.NewReader(stdout)
	r.started = true
	return nil
}

func findInferenceScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/inference_service.py",
		"../scripts/inference_service.py",
		filepath.Join(execDir, "scripts/inference_service.py"),
		filepath.Join(os.Getenv("HOME"), ".signify/scripts/inference_service.py"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".signify/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
