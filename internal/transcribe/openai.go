package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/lineage/internal/extract"
	"github.com/ppiankov/lineage/internal/model"
)

// OpenAIEngine sends images to an OpenAI-compatible chat completion API.
type OpenAIEngine struct {
	client    *openai.Client
	model     string
	prompt    string
	maxPx     int
	maxTokens int
	timeout   time.Duration
	logger    *slog.Logger
}

// NewOpenAIEngine creates a new OpenAI engine for role
func NewOpenAIEngine(cfg model.EngineConfig, role Role, logger *slog.Logger) (*OpenAIEngine, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPProxy != "" || cfg.HTTPSProxy != "" {
		clientConfig.HTTPClient = &http.Client{
			Transport: &http.Transport{Proxy: newProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy)},
		}
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &OpenAIEngine{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     modelName,
		prompt:    PromptFor(role, cfg.Prompt),
		maxPx:     cfg.MaxImagePx,
		maxTokens: cfg.MaxTokens,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// Name returns the engine name
func (e *OpenAIEngine) Name() string {
	return "openai"
}

// Model returns the configured model
func (e *OpenAIEngine) Model() string {
	return e.model
}

// IsAvailable checks the API key by listing models
func (e *OpenAIEngine) IsAvailable(ctx context.Context) bool {
	if _, err := e.client.ListModels(ctx); err != nil {
		e.logger.Warn("openai availability check failed", "error", err)
		return false
	}
	return true
}

// Transcribe sends the image at path as a data URL alongside the role prompt.
func (e *OpenAIEngine) Transcribe(ctx context.Context, path string) (string, error) {
	if !extract.IsImage(path) {
		return "", fmt.Errorf("openai %s: %w", path, ErrUnsupportedFile)
	}

	img, err := EncodeImageBase64(path, e.maxPx)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: e.prompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    "data:image/jpeg;base64," + img,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		MaxTokens:   e.maxTokens,
		Temperature: 0.1,
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	e.logger.Debug("openai transcription", "path", path, "model", e.model, "tokens", resp.Usage.TotalTokens)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
