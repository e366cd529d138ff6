package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/lineage/internal/extract"
	"github.com/ppiankov/lineage/internal/model"
)

// OllamaEngine sends images to a local Ollama vision model.
type OllamaEngine struct {
	baseURL    string
	model      string
	prompt     string
	maxPx      int
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Images  []string      `json:"images"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`

	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaEngine creates a new Ollama engine for role
func NewOllamaEngine(cfg model.EngineConfig, role Role, logger *slog.Logger) (*OllamaEngine, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., minicpm-v, llava)")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 180 * time.Second // vision models are slow on CPU
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &OllamaEngine{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		model:     cfg.Model,
		prompt:    PromptFor(role, cfg.Prompt),
		maxPx:     cfg.MaxImagePx,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: newProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy),
			},
		},
		logger: logger,
	}, nil
}

// Name returns the engine name
func (e *OllamaEngine) Name() string {
	return "ollama"
}

// Model returns the configured model
func (e *OllamaEngine) Model() string {
	return e.model
}

// IsAvailable checks if Ollama is running by listing its models
func (e *OllamaEngine) IsAvailable(ctx context.Context) bool {
	url := fmt.Sprintf("%s/api/tags", e.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		e.logger.Warn("ollama availability check failed", "stage", "request", "error", err)
		return false
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.logger.Warn("ollama availability check failed", "base_url", e.baseURL, "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		e.logger.Warn("ollama availability check failed", "base_url", e.baseURL, "status", resp.StatusCode)
		return false
	}
	return true
}

// Transcribe sends the image at path to the model with the role prompt.
func (e *OllamaEngine) Transcribe(ctx context.Context, path string) (string, error) {
	if !extract.IsImage(path) {
		return "", fmt.Errorf("ollama %s: %w", path, ErrUnsupportedFile)
	}

	img, err := EncodeImageBase64(path, e.maxPx)
	if err != nil {
		return "", err
	}

	apiReq := ollamaRequest{
		Model:  e.model,
		Prompt: e.prompt,
		Stream: false,
		Images: []string{img},
		Options: ollamaOptions{
			Temperature: 0.1,
			NumPredict:  e.maxTokens,
		},
	}

	start := time.Now()
	resp, err := e.makeRequest(ctx, apiReq)
	if err != nil {
		return "", fmt.Errorf("ollama API error: %w", err)
	}

	e.logger.Debug("ollama transcription",
		"path", path,
		"model", resp.Model,
		"tokens", resp.PromptEvalCount+resp.EvalCount,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return strings.TrimSpace(resp.Response), nil
}

func (e *OllamaEngine) makeRequest(ctx context.Context, apiReq ollamaRequest) (*ollamaResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/generate", e.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("API error (%d): %s", httpResp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("API error (%d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp ollamaResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &resp, nil
}
