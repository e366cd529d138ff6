package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/lineage/internal/cache"
	"github.com/ppiankov/lineage/internal/logging"
	"github.com/ppiankov/lineage/internal/model"
	"github.com/ppiankov/lineage/internal/worker"
)

// writePNG writes a w x h test image and returns its path
func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEncodeImage_Downscales(t *testing.T) {
	path := writePNG(t, t.TempDir(), "scan.png", 400, 200)

	data, err := EncodeImage(path, 100)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a jpeg: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Errorf("expected 100x50, got %dx%d", cfg.Width, cfg.Height)
	}

	data, err = EncodeImage(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	cfg, _ = jpeg.DecodeConfig(bytes.NewReader(data))
	if cfg.Width != 400 || cfg.Height != 200 {
		t.Errorf("expected original size with no limit, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestEncodeImage_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := EncodeImage(path, 100); err == nil {
		t.Error("expected decode error")
	}
}

func TestPromptFor(t *testing.T) {
	if PromptFor(RoleVision, "") != VisionPrompt {
		t.Error("expected vision prompt")
	}
	if PromptFor(RoleOCR, "") != OCRPrompt {
		t.Error("expected OCR prompt")
	}
	if PromptFor(RoleVision, "custom") != "custom" {
		t.Error("expected override to win")
	}
}

func TestOllamaEngine_Transcribe(t *testing.T) {
	path := writePNG(t, t.TempDir(), "obit.png", 32, 32)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Model != "minicpm-v" || req.Stream {
			t.Errorf("unexpected request: model=%s stream=%v", req.Model, req.Stream)
		}
		if req.Prompt != VisionPrompt {
			t.Errorf("expected vision prompt, got %q", req.Prompt)
		}
		if len(req.Images) != 1 {
			t.Errorf("expected one image, got %d", len(req.Images))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if _, err := base64.StdEncoding.DecodeString(req.Images[0]); err != nil {
			t.Errorf("image is not base64: %v", err)
		}
		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Model:    "minicpm-v",
			Response: "  PERSON: Thomas Lack\nDOCTYPE: obituary\n",
			Done:     true,
		})
	}))
	defer server.Close()

	engine, err := NewOllamaEngine(model.EngineConfig{BaseURL: server.URL, Model: "minicpm-v", Timeout: 5}, RoleVision, nil)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	text, err := engine.Transcribe(context.Background(), path)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "PERSON: Thomas Lack\nDOCTYPE: obituary" {
		t.Errorf("Unexpected text: %q", text)
	}
}

func TestOllamaEngine_APIError(t *testing.T) {
	path := writePNG(t, t.TempDir(), "obit.png", 8, 8)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "model not loaded"}`))
	}))
	defer server.Close()

	engine, _ := NewOllamaEngine(model.EngineConfig{BaseURL: server.URL, Model: "minicpm-v", Timeout: 5}, RoleVision, nil)
	_, err := engine.Transcribe(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("expected API error, got %v", err)
	}
}

func TestOllamaEngine_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"models": []}`))
	}))

	engine, _ := NewOllamaEngine(model.EngineConfig{BaseURL: server.URL, Model: "minicpm-v", Timeout: 5}, RoleVision, nil)
	if !engine.IsAvailable(context.Background()) {
		t.Error("expected engine to be available")
	}

	server.Close()
	if engine.IsAvailable(context.Background()) {
		t.Error("expected engine to be unavailable after server shutdown")
	}
}

func TestOllamaEngine_RejectsDocuments(t *testing.T) {
	engine, _ := NewOllamaEngine(model.EngineConfig{Model: "minicpm-v"}, RoleVision, nil)
	_, err := engine.Transcribe(context.Background(), "letter.pdf")
	if !errors.Is(err, ErrUnsupportedFile) {
		t.Errorf("expected ErrUnsupportedFile, got %v", err)
	}
}

func TestOpenAIEngine_Transcribe(t *testing.T) {
	path := writePNG(t, t.TempDir(), "census.png", 16, 16)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "data:image/jpeg;base64,") {
			t.Error("expected image data URL in request")
		}

		resp := openai.ChatCompletionResponse{
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{
				{
					Message: openai.ChatCompletionMessage{
						Role:    "assistant",
						Content: "1880 census, household of John Lack",
					},
					FinishReason: "stop",
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	engine, err := NewOpenAIEngine(model.EngineConfig{APIKey: "test-key", BaseURL: server.URL, Timeout: 5}, RoleOCR, nil)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	if engine.Model() != openai.GPT4oMini {
		t.Errorf("expected default model, got %s", engine.Model())
	}

	text, err := engine.Transcribe(context.Background(), path)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "1880 census, household of John Lack" {
		t.Errorf("Unexpected text: %q", text)
	}
}

func TestOpenAIEngine_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIEngine(model.EngineConfig{}, RoleVision, nil); err == nil {
		t.Error("expected error without API key")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		engine  string
		want    string
		wantErr bool
	}{
		{"tesseract", "tesseract", false},
		{"Ollama", "ollama", false},
		{"openai", "openai", false},
		{"", "", false},
		{"abbyy", "", true},
	}

	for _, tt := range tests {
		cfg := model.EngineConfig{Engine: tt.engine, Model: "m", APIKey: "k"}
		tr, err := New(cfg, RoleVision, nil)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q) error = %v, wantErr %v", tt.engine, err, tt.wantErr)
			continue
		}
		if tt.want == "" {
			if tr != nil {
				t.Errorf("New(%q) expected nil transcriber", tt.engine)
			}
			continue
		}
		if tr.Name() != tt.want {
			t.Errorf("New(%q).Name() = %s, want %s", tt.engine, tr.Name(), tt.want)
		}
	}
}

type countingEngine struct {
	calls int
	text  string
}

func (c *countingEngine) Name() string                     { return "fake" }
func (c *countingEngine) Model() string                    { return "v1" }
func (c *countingEngine) IsAvailable(context.Context) bool { return true }

func (c *countingEngine) Transcribe(_ context.Context, _ string) (string, error) {
	c.calls++
	return c.text, nil
}

func TestCached_ReusesTranscription(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "a.png", 4, 4)

	inner := &countingEngine{text: "Mary Harrison"}
	store := cache.NewMemoryCache(time.Minute, time.Minute)
	tr := WithCache(inner, store, time.Minute, nil)

	for i := 0; i < 3; i++ {
		text, err := tr.Transcribe(context.Background(), path)
		if err != nil || text != "Mary Harrison" {
			t.Fatalf("unexpected result %q, %v", text, err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("expected one backend call, got %d", inner.calls)
	}

	// Same content under another name shares the entry
	data, _ := os.ReadFile(path)
	copyPath := filepath.Join(dir, "b.png")
	if err := os.WriteFile(copyPath, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Transcribe(context.Background(), copyPath); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("expected identical content to hit the cache, got %d calls", inner.calls)
	}
}

func TestCached_SkipsEmptyText(t *testing.T) {
	path := writePNG(t, t.TempDir(), "blank.png", 4, 4)

	inner := &countingEngine{}
	tr := WithCache(inner, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute, nil)

	_, _ = tr.Transcribe(context.Background(), path)
	_, _ = tr.Transcribe(context.Background(), path)
	if inner.calls != 2 {
		t.Errorf("expected empty results to be retried, got %d calls", inner.calls)
	}
}

type readOnlyCache struct{ cache.Cache }

func (readOnlyCache) Set(string, []byte, time.Duration) error {
	return errors.New("disk full")
}

func TestCached_LogsFailedWrite(t *testing.T) {
	path := writePNG(t, t.TempDir(), "a.png", 4, 4)

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	inner := &countingEngine{text: "Mary Harrison"}
	tr := WithCache(inner, readOnlyCache{cache.NewMemoryCache(time.Minute, time.Minute)}, time.Minute, logger)

	text, err := tr.Transcribe(context.Background(), path)
	if err != nil || text != "Mary Harrison" {
		t.Fatalf("a failed cache write should not fail the call, got %q, %v", text, err)
	}
	if !strings.Contains(buf.String(), "transcript cache write failed") || !strings.Contains(buf.String(), "disk full") {
		t.Errorf("expected the write error to be logged, got %q", buf.String())
	}
}

func TestLimited_CancelledContext(t *testing.T) {
	inner := &countingEngine{text: "x"}
	l := worker.NewLimiter(0.001, 1)
	tr := WithLimiter(inner, l)

	// First call consumes the burst
	if _, err := tr.Transcribe(context.Background(), "a.png"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tr.Transcribe(ctx, "a.png"); err == nil {
		t.Error("expected cancelled wait to fail")
	}
	if inner.calls != 1 {
		t.Errorf("expected one backend call, got %d", inner.calls)
	}
	if tr.Name() != "fake" {
		t.Errorf("expected wrapped name, got %s", tr.Name())
	}
}
