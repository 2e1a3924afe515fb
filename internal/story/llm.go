package story

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"

	"github.com/wgomg/storyteller/internal/config"
	"github.com/wgomg/storyteller/internal/utils"
)

const systemPrompt = "You are a storyteller for young children. You write short, gentle stories set in the Hundred Acre Wood, " +
	"using plain words and short sentences that an early reader can follow."

type LLMGenerator struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *utils.Logger
	cfg        *config.LlmConfig
	timeout    time.Duration
	retryDelay time.Duration
}

func NewLLMGenerator(cfg *config.Config, logger *utils.Logger) (*LLMGenerator, error) {
	if cfg.Llm.URL == "" || cfg.Llm.Token == "" {
		return nil, fmt.Errorf("LLM_URL and LLM_TOKEN are required")
	}

	requestTimeout := time.Duration(cfg.App.HttpTimeoutSeconds) * time.Second
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}

	return &LLMGenerator{
		baseURL: cfg.Llm.URL,
		token:   cfg.Llm.Token,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger:     logger,
		cfg:        &cfg.Llm,
		timeout:    requestTimeout * time.Duration(max(cfg.Llm.RetryAttempts, 1)),
		retryDelay: time.Second,
	}, nil
}

// Generate asks the model for a story. Failed requests are retried with
// exponential backoff, all attempts together bounded by one timeout.
func (g *LLMGenerator) Generate(ctx context.Context, character, prompt string) (string, error) {
	if err := validate(character, prompt); err != nil {
		return "", err
	}

	reqID := utils.RequestID(ctx)

	r := retry.New[string](retry.Config{
		MaxAttempts:   max(g.cfg.RetryAttempts, 1),
		InitialDelay:  g.retryDelay,
		BackoffPolicy: retry.BackoffExponential,
	})
	t := timeout.New[string](timeout.Config{
		DefaultTimeout: g.timeout,
	})

	story, err := t.Execute(ctx, g.timeout, func(ctx context.Context) (string, error) {
		return r.Do(ctx, func(ctx context.Context) (string, error) {
			return g.complete(ctx, &reqID, character, prompt)
		})
	})
	if err != nil {
		g.logger.Error(&reqID, "Story generation failed: %v", err)
		return "", err
	}

	return story, nil
}

func (g *LLMGenerator) complete(ctx context.Context, reqID *string, character, prompt string) (string, error) {
	userPrompt := fmt.Sprintf(
		"Write a story centered around %s. The story will be about: %s\nReturn only the story text, without a title, explanations or formatting.",
		character,
		prompt,
	)

	reqBody := ChatRequest{
		Messages: []ChatMessage{
			{
				Role:    "system",
				Content: systemPrompt,
			}, {
				Role: "user", Content: userPrompt,
			},
		},
		Model:            g.cfg.Model,
		Thinking:         &ThinkingConfig{Type: "disabled"},
		FrequencyPenalty: g.cfg.FrequencyPenalty,
		MaxTokens:        g.cfg.MaxTokens,
		PresencePenalty:  g.cfg.PresencePenalty,
		ResponseFormat:   ResponseFormat{Type: "text"},
		Stream:           false,
		Temperature:      g.cfg.Temperature,
		TopP:             1,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	g.logger.Debug(reqID, "Sending LLM request (~%d prompt tokens)",
		utils.EstimateTokensFromWords(utils.CountWords(systemPrompt+" "+userPrompt)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	g.setAuthHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", g.handleAPIError(resp)
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	g.logger.Debug(reqID, "LLM usage - prompt_tokens: %d, completion_tokens: %d, total_tokens: %d",
		chatResp.Usage.PromptTokens,
		chatResp.Usage.CompletionTokens,
		chatResp.Usage.TotalTokens)

	if len(chatResp.Choices) == 0 || strings.TrimSpace(chatResp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("empty response from LLM")
	}

	story := strings.TrimSpace(utils.CleanCodeBlock(chatResp.Choices[0].Message.Content))

	g.logger.Debug(reqID, "LLM story: %s", utils.Preview(story, 80))

	return story, nil
}

func (g *LLMGenerator) setAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", g.token))
}

func (g *LLMGenerator) handleAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
		Body:       string(body),
	}
}
