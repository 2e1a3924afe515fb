package segment

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/wgomg/storyteller/internal/config"
	"github.com/wgomg/storyteller/internal/utils"
)

var errPoolClosed = errors.New("spacy segmenter is closed")

const maxResponseBytes = 32 * 1024 * 1024

type Task struct {
	RequestID string
	Text      string
	Result    chan<- TaskResult
}

type TaskResult struct {
	Sentences []Sentence
	Err       error
}

// SpacyWorkerPool runs en_core_web_sm (or the configured model) in Python
// worker processes and talks to them over newline-delimited JSON.
type SpacyWorkerPool struct {
	logger    *utils.Logger
	script    string
	venv      string
	cfg       *config.SegmenterConfig
	taskQueue chan Task
	wg        sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	// newCmd builds worker processes; replaced in tests.
	newCmd func(name string, args ...string) *exec.Cmd
}

type SpacyWorker struct {
	id      int
	process *exec.Cmd
	stdin   io.WriteCloser
	stdout  io.ReadCloser
	scanner *bufio.Scanner
	mu      sync.Mutex
	pool    *SpacyWorkerPool
}

type SpacyRequest struct {
	Text string `json:"text"`
}

type SpacyToken struct {
	Text string `json:"text"`
	Idx  int    `json:"idx"`
	Kind string `json:"kind"`
}

type SpacyResponse struct {
	Sentences [][]SpacyToken      `json:"sentences"`
	Error     string              `json:"error,omitempty"`
	DebugInfo *SpacyResponseDebug `json:"debug_info"`
}

type SpacyResponseDebug struct {
	ProcessingTimeMS int `json:"processing_time_ms"`
	TokenCount       int `json:"token_count"`
}

func NewSpacySegmenter(logger *utils.Logger, cfg *config.SegmenterConfig) *SpacyWorkerPool {
	pythonDir := filepath.Join(cfg.Python.ConfigDir, "python")
	script := filepath.Join(pythonDir, "spacy_segmenter.py")
	venv := filepath.Join(cfg.Python.ConfigDir, "venv")

	return &SpacyWorkerPool{
		logger:    logger,
		script:    script,
		venv:      venv,
		cfg:       cfg,
		taskQueue: make(chan Task, 100),
		newCmd:    exec.Command,
	}
}

func (p *SpacyWorkerPool) Name() string {
	return "spacy:" + p.cfg.Model
}

func (p *SpacyWorkerPool) Initialize() error {
	p.logger.Info(nil, "Initializing spaCy segmenter (%s) with %d workers", p.cfg.Model, p.cfg.WorkerCount)

	if err := p.setupEnvironment(); err != nil {
		return fmt.Errorf("failed to setup environment: %w", err)
	}

	if err := p.startWorkers(filepath.Join(p.venv, "bin", "python"), p.script); err != nil {
		return err
	}

	p.logger.Info(nil, "spaCy segmenter initialized successfully")
	return nil
}

func (p *SpacyWorkerPool) startWorkers(python string, args ...string) error {
	workers := make([]*SpacyWorker, 0, p.cfg.WorkerCount)
	for i := 0; i < p.cfg.WorkerCount; i++ {
		worker, err := p.startWorker(i, python, args...)
		if err != nil {
			for _, w := range workers {
				w.close()
			}
			return fmt.Errorf("failed to start worker %d: %w", i, err)
		}
		workers = append(workers, worker)
	}

	for _, worker := range workers {
		p.wg.Add(1)
		go p.runWorker(worker)
	}
	return nil
}

// Segment hands text to the next free worker and waits for its sentences.
func (p *SpacyWorkerPool) Segment(ctx context.Context, text string) ([]Sentence, error) {
	if !utf8.ValidString(text) {
		return nil, ErrMalformedText
	}
	if utils.IsBlank(text) {
		return nil, nil
	}

	if p.cfg.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.cfg.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	result := make(chan TaskResult, 1)
	task := Task{
		Text:   text,
		Result: result,
	}
	task.RequestID = utils.RequestID(ctx)

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, errPoolClosed
	}
	select {
	case p.taskQueue <- task:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return nil, fmt.Errorf("queue spacy task: %w", ctx.Err())
	}

	select {
	case res := <-result:
		return res.Sentences, res.Err
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for spacy worker: %w", ctx.Err())
	}
}

func (p *SpacyWorkerPool) runWorker(worker *SpacyWorker) {
	defer p.wg.Done()
	defer worker.close()

	for task := range p.taskQueue {
		if err := worker.processTask(task); err != nil {
			p.logger.Error(&task.RequestID, "spaCy worker %d failed: %v", worker.id, err)
			task.Result <- TaskResult{Err: err}
			return
		}
	}
}

func (p *SpacyWorkerPool) startWorker(id int, python string, args ...string) (*SpacyWorker, error) {
	cmd := p.newCmd(python, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("start process: %w", err)
	}

	worker := &SpacyWorker{
		id:      id,
		process: cmd,
		stdin:   stdin,
		stdout:  stdout,
		scanner: bufio.NewScanner(stdout),
		pool:    p,
	}
	worker.scanner.Buffer(make([]byte, 64*1024), maxResponseBytes)

	workerConfig := map[string]any{
		"model_name": p.cfg.Model,
	}

	configJSON, err := json.Marshal(workerConfig)
	if err != nil {
		worker.close()
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	configJSON = append(configJSON, '\n')
	if _, err := stdin.Write(configJSON); err != nil {
		worker.close()
		return nil, fmt.Errorf("send config: %w", err)
	}

	if !worker.scanner.Scan() {
		worker.close()
		return nil, fmt.Errorf("failed to read READY message")
	}

	var readyMsg struct {
		Status   string   `json:"status"`
		Model    string   `json:"model"`
		Pipeline []string `json:"pipeline"`
	}
	if err := json.Unmarshal(worker.scanner.Bytes(), &readyMsg); err != nil {
		worker.close()
		return nil, fmt.Errorf("failed to parse ready message: %w", err)
	}

	if readyMsg.Status != "ready" {
		worker.close()
		return nil, fmt.Errorf("unexpected startup status: %s", readyMsg.Status)
	}

	p.logger.Debug(nil, "spaCy worker %d ready (model=%s, pipeline=%v)", id, readyMsg.Model, readyMsg.Pipeline)

	return worker, nil
}

func (w *SpacyWorker) processTask(task Task) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	reqJSON, err := json.Marshal(SpacyRequest{Text: task.Text})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	reqJSON = append(reqJSON, '\n')
	if _, err := w.stdin.Write(reqJSON); err != nil {
		return fmt.Errorf("write request: %w", err)
	}

	if !w.scanner.Scan() {
		if err := w.scanner.Err(); err != nil {
			return fmt.Errorf("read stdout: %w", err)
		}
		return fmt.Errorf("stdout closed")
	}

	var resp SpacyResponse
	if err := json.Unmarshal(w.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	// a model-level error leaves the worker usable
	if resp.Error != "" {
		task.Result <- TaskResult{Err: fmt.Errorf("spacy error: %s", resp.Error)}
		return nil
	}

	if resp.DebugInfo != nil {
		w.pool.logger.Debug(
			&task.RequestID,
			"spaCy segmentation stats: worker=%d, process_ms=%d, tokens=%d",
			w.id,
			resp.DebugInfo.ProcessingTimeMS,
			resp.DebugInfo.TokenCount,
		)
	}

	sentences, err := sentencesFromResponse(task.Text, resp)
	task.Result <- TaskResult{Sentences: sentences, Err: err}
	return nil
}

// sentencesFromResponse maps spaCy's character offsets onto byte offsets of
// text and checks that every token really sits where spaCy says it does.
func sentencesFromResponse(text string, resp SpacyResponse) ([]Sentence, error) {
	byteOffsets := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		byteOffsets = append(byteOffsets, i)
	}
	byteOffsets = append(byteOffsets, len(text))

	sentences := make([]Sentence, 0, len(resp.Sentences))
	for _, spacySentence := range resp.Sentences {
		if len(spacySentence) == 0 {
			continue
		}

		tokens := make([]Token, 0, len(spacySentence))
		for _, st := range spacySentence {
			runeEnd := st.Idx + utf8.RuneCountInString(st.Text)
			if st.Idx < 0 || runeEnd >= len(byteOffsets) {
				return nil, fmt.Errorf("token %q at %d is outside the text", st.Text, st.Idx)
			}

			start, end := byteOffsets[st.Idx], byteOffsets[runeEnd]
			if text[start:end] != st.Text {
				return nil, fmt.Errorf("token %q does not match text at %d", st.Text, st.Idx)
			}
			tokens = append(tokens, Token{Text: st.Text, Start: start, End: end, Kind: parseTokenKind(st.Kind)})
		}
		sentences = append(sentences, newSentence(text, tokens))
	}

	return sentences, nil
}

func (w *SpacyWorker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stdin != nil {
		w.stdin.Close()
	}

	done := make(chan struct{})
	go func() {
		w.process.Wait()
		close(done)
	}()

	timeout := time.Duration(w.pool.cfg.Python.ProcessShutdownTimeout) * time.Second
	select {
	case <-done:
	case <-time.After(timeout):
		w.pool.logger.Debug(nil, "spaCy worker %d did not exit after %s, killing it", w.id, timeout)
		w.process.Process.Kill()
		select {
		case <-done:
		case <-time.After(time.Duration(w.pool.cfg.Python.ProcessKillTimeout) * time.Second):
			w.pool.logger.Error(nil, "spaCy worker %d still running after kill", w.id)
		}
	}
}

func (p *SpacyWorkerPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.taskQueue)
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

func (p *SpacyWorkerPool) setupEnvironment() error {
	if err := os.MkdirAll(p.cfg.Python.ConfigDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := p.extractScriptIfNeeded(); err != nil {
		return fmt.Errorf("failed to extract script: %w", err)
	}

	if err := p.checkPython(); err != nil {
		return fmt.Errorf("python check failed: %w", err)
	}

	if err := p.createVenv(); err != nil {
		return fmt.Errorf("failed to create venv: %w", err)
	}

	if p.cfg.Python.SkipInstall {
		p.logger.Debug(nil, "Skipping Python requirements installation")
		return nil
	}

	if err := p.installRequirements(); err != nil {
		return fmt.Errorf("failed to install requirements: %w", err)
	}

	return nil
}

func (p *SpacyWorkerPool) checkPython() error {
	cmd := exec.Command("python3", "--version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("python3 not found: %w", err)
	}

	p.logger.Debug(nil, "Python3 found")
	return nil
}

func (p *SpacyWorkerPool) createVenv() error {
	venvPython := filepath.Join(p.venv, "bin", "python")

	if _, err := os.Stat(venvPython); err == nil {
		p.logger.Debug(nil, "Virtual environment already exists at %s", p.venv)
		return nil
	}

	p.logger.Info(nil, "Creating virtual environment at %s", p.venv)

	cmd := exec.Command("python3", "-m", "venv", p.venv)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to create venv: %s: %w", output, err)
	}

	p.logger.Info(nil, "Virtual environment created successfully")
	return nil
}

func (p *SpacyWorkerPool) installRequirements() error {
	venvPython := filepath.Join(p.venv, "bin", "python")
	requirementsPath := filepath.Join(p.cfg.Python.ConfigDir, "python", "requirements.txt")

	p.logger.Info(nil, "Installing Python requirements")

	cmd := exec.Command(venvPython, "-m", "pip", "install", "-r", requirementsPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to install %s: %s: %w", requirementsPath, output, err)
	}

	p.logger.Info(nil, "Downloading spaCy model %s", p.cfg.Model)

	cmd = exec.Command(venvPython, "-m", "spacy", "download", p.cfg.Model)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to download model %s: %s: %w", p.cfg.Model, output, err)
	}

	p.logger.Info(nil, "Python requirements installed successfully")
	return nil
}

func (p *SpacyWorkerPool) extractScriptIfNeeded() error {
	pythonDir := filepath.Join(p.cfg.Python.ConfigDir, "python")

	if err := os.MkdirAll(pythonDir, 0755); err != nil {
		return fmt.Errorf("failed to create python directory: %w", err)
	}

	if _, err := os.Stat(p.script); err == nil {
		p.logger.Debug(nil, "Python script already exists at %s", p.script)
		return nil
	}

	p.logger.Info(nil, "Extracting embedded Python script to %s", p.script)

	if err := os.WriteFile(p.script, []byte(embeddedPythonScript), 0755); err != nil {
		return fmt.Errorf("failed to write python script: %w", err)
	}

	requirementsPath := filepath.Join(pythonDir, "requirements.txt")
	requirementsContent := embeddedRequirements
	if requirementsContent == "" {
		requirementsContent = defaultRequirements
	}

	if err := os.WriteFile(requirementsPath, []byte(requirementsContent), 0644); err != nil {
		return fmt.Errorf("failed to write requirements file: %w", err)
	}

	p.logger.Info(nil, "Python script extracted successfully")
	return nil
}

// HealthCheck segments a fixed two-sentence text and expects two sentences.
func (p *SpacyWorkerPool) HealthCheck(ctx context.Context) error {
	sentences, err := p.Segment(ctx, "Pooh ate honey. Piglet watched.")
	if err != nil {
		return fmt.Errorf("health check: worker error: %w", err)
	}
	if len(sentences) != 2 {
		return fmt.Errorf("health check: expected 2 sentences, got %d", len(sentences))
	}
	return nil
}
