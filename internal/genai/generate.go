package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	maxRequestSize = 2 * 1024 * 1024 // 2MB total JSON payload
	maxPromptSize  = 512 * 1024      // 512KB prompt text
)

func (c *client) Generate(parentCtx context.Context, req *GenerateRequest) (string, error) {
	start := time.Now()

	if c.cfg.APIKey == "" {
		return "", notConfiguredError()
	}

	if req == nil {
		return "", fmt.Errorf("genai: request is nil")
	}
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("genai: invalid request: %w", err)
	}
	if len(req.Prompt) > maxPromptSize {
		return "", fmt.Errorf("genai: prompt too large (%d bytes, max %d)", len(req.Prompt), maxPromptSize)
	}

	c.logger.Debug("generation request starting",
		zap.Int("prompt_len", len(req.Prompt)),
		zap.Int("image_count", len(req.Images)),
	)

	// Per-request timeout (0 = only use parentCtx)
	var ctx context.Context
	var cancel context.CancelFunc
	if c.cfg.UpstreamTimeout > 0 {
		ctx, cancel = context.WithTimeout(parentCtx, c.cfg.UpstreamTimeout)
	} else {
		ctx, cancel = context.WithCancel(parentCtx)
	}
	defer cancel()

	bodyBytes, err := json.Marshal(buildProviderRequest(req))
	if err != nil {
		return "", fmt.Errorf("genai: marshal request: %w", err)
	}
	if len(bodyBytes) > maxRequestSize {
		return "", fmt.Errorf("genai: request too large (%d bytes, max %d)", len(bodyBytes), maxRequestSize)
	}

	maxRetries := c.cfg.MaxRetries
	if req.Options.MaxRetries > 0 {
		maxRetries = req.Options.MaxRetries
	}

	// Probe candidate models in preference order, starting with the one
	// that last answered. A model that 404s is skipped (and forgotten if it
	// was the remembered one); any other failure is final for this call.
	for _, model := range c.candidateModels() {
		text, err := c.generateWithModel(ctx, model, bodyBytes, maxRetries)
		if err == nil {
			c.rememberModel(model)
			c.logger.Info("generation request completed",
				zap.String("model", model),
				zap.Int("response_len", len(text)),
				zap.Duration("duration", time.Since(start)),
			)
			return text, nil
		}
		if errors.Is(err, errModelNotFound) {
			c.logger.Debug("candidate model not available, trying next",
				zap.String("model", model),
			)
			c.forgetModel(model)
			continue
		}
		c.logger.Error("generation request failed",
			zap.String("model", model),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return "", err
	}

	return "", upstreamError("no candidate model available", errModelNotFound)
}

// generateWithModel performs the HTTP call against one model endpoint.
func (c *client) generateWithModel(ctx context.Context, model string, body []byte, maxRetries int) (string, error) {
	url := c.cfg.BaseURL + "/v1beta/models/" + model + ":generateContent"

	// A fresh *http.Request is built for each attempt.
	doOnce := func(ctx context.Context) (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("genai: build HTTP request: %w", err)
		}
		httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)
		httpReq.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(httpReq)
	}

	resp, err := c.doWithRetry(ctx, maxRetries, doOnce)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var pResp providerGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&pResp); err != nil {
		return "", upstreamError("decode upstream response", err)
	}

	text := extractText(&pResp)
	if text == "" {
		return "", upstreamError("upstream returned no text candidates", nil)
	}
	return text, nil
}

// buildProviderRequest maps our request onto the upstream wire shape.
func buildProviderRequest(req *GenerateRequest) providerGenerateRequest {
	parts := make([]providerPart, 0, 1+len(req.Images))
	parts = append(parts, providerPart{Text: req.Prompt})
	for _, img := range req.Images {
		parts = append(parts, providerPart{
			InlineData: &providerInlineData{
				MIMEType: img.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}

	pReq := providerGenerateRequest{
		Contents: []providerContent{{Role: "user", Parts: parts}},
	}

	if req.Options.Temperature > 0 || req.Options.MaxOutputTokens > 0 {
		cfg := &providerGenerationConfig{
			MaxOutputTokens: req.Options.MaxOutputTokens,
		}
		if req.Options.Temperature > 0 {
			t := req.Options.Temperature
			cfg.Temperature = &t
		}
		pReq.GenerationConfig = cfg
	}

	return pReq
}

// extractText concatenates the text parts of the first candidate.
func extractText(resp *providerGenerateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String())
}

func (c *client) candidateModels() []string {
	c.modelMu.Lock()
	known := c.knownModel
	c.modelMu.Unlock()

	if known == "" {
		return c.cfg.Models
	}

	models := make([]string, 0, len(c.cfg.Models)+1)
	models = append(models, known)
	for _, m := range c.cfg.Models {
		if m != known {
			models = append(models, m)
		}
	}
	return models
}

func (c *client) rememberModel(model string) {
	c.modelMu.Lock()
	c.knownModel = model
	c.modelMu.Unlock()
}

// forgetModel clears the remembered model if it stopped resolving, so the
// next call re-probes the full candidate list.
func (c *client) forgetModel(model string) {
	c.modelMu.Lock()
	if c.knownModel == model {
		c.knownModel = ""
	}
	c.modelMu.Unlock()
}
