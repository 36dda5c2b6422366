package genai

import (
	"context"
	"errors"
	"fmt"
)

// GenerateOptions tunes a single generation call.
type GenerateOptions struct {
	Temperature     float32 // [0,1]; 0 means provider default
	MaxOutputTokens int     // >0; 0 means provider default
	MaxRetries      int     // 0 means use the client default
}

// ImageData is an optional inline image attached to the prompt.
type ImageData struct {
	MIMEType string
	Data     []byte
}

// GenerateRequest describes one call to the upstream text-generation API.
type GenerateRequest struct {
	Prompt  string
	Images  []ImageData
	Options GenerateOptions
}

func (r *GenerateRequest) Validate() error {
	if r.Prompt == "" {
		return errors.New("prompt is required")
	}
	if r.Options.Temperature < 0 || r.Options.Temperature > 1 {
		return errors.New("temperature must be between 0 and 1")
	}
	if r.Options.MaxOutputTokens < 0 {
		return errors.New("max output tokens must be positive")
	}
	for i, img := range r.Images {
		if img.MIMEType == "" {
			return fmt.Errorf("images[%d] is missing a MIME type", i)
		}
		if len(img.Data) == 0 {
			return fmt.Errorf("images[%d] has no data", i)
		}
	}
	return nil
}

// Client is the upstream generation contract. The rate-limited queue wraps
// an implementation of this and is itself a Client, so callers never talk to
// the raw HTTP client directly.
type Client interface {
	Generate(ctx context.Context, req *GenerateRequest) (string, error)
}
