package genai

// Request shape we send upstream (generateContent-style).
type providerGenerateRequest struct {
	Contents         []providerContent         `json:"contents"`
	GenerationConfig *providerGenerationConfig `json:"generationConfig,omitempty"`
}

type providerContent struct {
	Role  string         `json:"role,omitempty"`
	Parts []providerPart `json:"parts"`
}

// A part is either text or inline image data, never both.
type providerPart struct {
	Text       string              `json:"text,omitempty"`
	InlineData *providerInlineData `json:"inlineData,omitempty"`
}

type providerInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type providerGenerationConfig struct {
	Temperature     *float32 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type providerCandidate struct {
	Content      providerContent `json:"content"`
	FinishReason string          `json:"finishReason,omitempty"`
}

type providerUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type providerGenerateResponse struct {
	Candidates    []providerCandidate `json:"candidates"`
	UsageMetadata *providerUsage      `json:"usageMetadata,omitempty"`
}

type providerErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
