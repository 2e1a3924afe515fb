package segment

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/wgomg/storyteller/internal/config"
	"github.com/wgomg/storyteller/internal/utils"
)

// TestHelperProcess stands in for the Python worker. It speaks the same
// protocol and segments with the rule-based model.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	in := bufio.NewScanner(os.Stdin)
	out := json.NewEncoder(os.Stdout)

	if !in.Scan() {
		return
	}
	var cfg struct {
		ModelName string `json:"model_name"`
	}
	json.Unmarshal(in.Bytes(), &cfg)
	out.Encode(map[string]any{"status": "ready", "model": cfg.ModelName, "pipeline": []string{"tok2vec", "parser"}})

	seg := NewRuleSegmenter()
	for in.Scan() {
		var req SpacyRequest
		if err := json.Unmarshal(in.Bytes(), &req); err != nil {
			out.Encode(map[string]string{"error": err.Error()})
			continue
		}
		if req.Text == "explode" {
			out.Encode(map[string]string{"error": "model exploded"})
			continue
		}

		sentences, _ := seg.Segment(context.Background(), req.Text)
		resp := SpacyResponse{DebugInfo: &SpacyResponseDebug{}}
		for _, s := range sentences {
			var tokens []SpacyToken
			for _, tok := range s.Tokens {
				tokens = append(tokens, SpacyToken{
					Text: tok.Text,
					Idx:  utf8.RuneCountInString(req.Text[:tok.Start]),
					Kind: tok.Kind.String(),
				})
			}
			resp.Sentences = append(resp.Sentences, tokens)
			resp.DebugInfo.TokenCount += len(tokens)
		}
		out.Encode(resp)
	}
}

func newTestPool(t *testing.T, workers int) *SpacyWorkerPool {
	t.Helper()

	cfg := &config.SegmenterConfig{
		Backend:     config.SegmenterSpacy,
		Model:       "en_core_web_sm",
		WorkerCount: workers,
		TimeoutMs:   5000,
		Python: config.PythonConfig{
			ConfigDir:              t.TempDir(),
			ProcessShutdownTimeout: 2,
			ProcessKillTimeout:     1,
		},
	}

	pool := NewSpacySegmenter(utils.NewDiscardLogger(), cfg)
	pool.newCmd = func(name string, args ...string) *exec.Cmd {
		cmd := exec.Command(os.Args[0], "-test.run=TestHelperProcess", "--")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
		return cmd
	}

	if err := pool.startWorkers("python3"); err != nil {
		t.Fatalf("startWorkers() error = %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestSpacyPoolSegment(t *testing.T) {
	pool := newTestPool(t, 2)

	sentences, err := pool.Segment(context.Background(), "The cat sat. The dog ran fast.")
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(sentences))
	}
	if sentences[0].Len() != 4 || sentences[1].Len() != 5 {
		t.Errorf("token counts = %d, %d, want 4, 5", sentences[0].Len(), sentences[1].Len())
	}
	if sentences[1].Text != "The dog ran fast." {
		t.Errorf("second sentence = %q", sentences[1].Text)
	}
}

func TestSpacyPoolConcurrent(t *testing.T) {
	pool := newTestPool(t, 2)

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func(i int) {
			text := fmt.Sprintf("Pooh found %d pots. Piglet counted them.", i)
			sentences, err := pool.Segment(context.Background(), text)
			if err == nil && len(sentences) != 2 {
				err = fmt.Errorf("request %d: got %d sentences", i, len(sentences))
			}
			errs <- err
		}(i)
	}

	for i := 0; i < 8; i++ {
		if err := <-errs; err != nil {
			t.Error(err)
		}
	}
}

func TestSpacyPoolModelErrorKeepsWorker(t *testing.T) {
	pool := newTestPool(t, 1)

	_, err := pool.Segment(context.Background(), "explode")
	if err == nil || !strings.Contains(err.Error(), "model exploded") {
		t.Fatalf("expected model error, got %v", err)
	}

	if err := pool.HealthCheck(context.Background()); err != nil {
		t.Errorf("worker unusable after model error: %v", err)
	}
}

func TestSpacyPoolBlankAndInvalid(t *testing.T) {
	pool := newTestPool(t, 1)

	sentences, err := pool.Segment(context.Background(), "   ")
	if err != nil || len(sentences) != 0 {
		t.Errorf("blank text: got %d sentences, err %v", len(sentences), err)
	}

	if _, err := pool.Segment(context.Background(), "\xfe"); !errors.Is(err, ErrMalformedText) {
		t.Errorf("expected ErrMalformedText, got %v", err)
	}
}

func TestSpacyPoolClosed(t *testing.T) {
	pool := newTestPool(t, 1)
	if err := pool.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if _, err := pool.Segment(context.Background(), "Hello there."); !errors.Is(err, errPoolClosed) {
		t.Errorf("expected errPoolClosed, got %v", err)
	}
}

func TestSentencesFromResponse(t *testing.T) {
	text := "Héllo wörld. Bye."
	resp := SpacyResponse{
		Sentences: [][]SpacyToken{
			{{Text: "Héllo", Idx: 0, Kind: "word"}, {Text: "wörld", Idx: 6, Kind: "word"}, {Text: ".", Idx: 11, Kind: "punct"}},
			{{Text: "Bye", Idx: 13, Kind: "word"}, {Text: ".", Idx: 16, Kind: "punct"}},
		},
	}

	sentences, err := sentencesFromResponse(text, resp)
	if err != nil {
		t.Fatalf("sentencesFromResponse() error = %v", err)
	}
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(sentences))
	}

	world := sentences[0].Tokens[1]
	if world.Start != 7 || world.End != 13 || text[world.Start:world.End] != "wörld" {
		t.Errorf("wörld at [%d:%d], want [7:13]", world.Start, world.End)
	}
	if sentences[0].Tokens[2].Kind != Punct {
		t.Errorf("kind of '.' = %s, want punct", sentences[0].Tokens[2].Kind)
	}
	if sentences[1].Text != "Bye." {
		t.Errorf("second sentence = %q, want %q", sentences[1].Text, "Bye.")
	}
}

func TestSentencesFromResponseMismatch(t *testing.T) {
	tests := []struct {
		name  string
		token SpacyToken
	}{
		{name: "wrong offset", token: SpacyToken{Text: "cat", Idx: 1}},
		{name: "past the end", token: SpacyToken{Text: "cat", Idx: 40}},
		{name: "negative", token: SpacyToken{Text: "cat", Idx: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := SpacyResponse{Sentences: [][]SpacyToken{{tt.token}}}
			if _, err := sentencesFromResponse("The cat.", resp); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
