package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"agentgate/internal/domain"
)

const geminiAPIBase = "https://generativelanguage.googleapis.com/v1/models"

// geminiErrorBodyLimit caps how much of an error response body ends up in
// the returned error.
const geminiErrorBodyLimit = 512

// GeminiProvider calls the Google Gemini generateContent API. The key is
// sent in the x-goog-api-key header so it never appears in URLs or logs.
type GeminiProvider struct {
	apiKey      string
	model       string
	client      *http.Client
	baseURL     string
	marshalFunc func(v interface{}) ([]byte, error) // for testing
}

// NewGeminiProvider returns a Gemini-backed LLMProvider.
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	return &GeminiProvider{
		apiKey:      apiKey,
		model:       model,
		client:      &http.Client{Timeout: 60 * time.Second},
		baseURL:     geminiAPIBase,
		marshalFunc: json.Marshal,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate implements domain.LLMProvider.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	raw, err := p.marshalFunc(payload)
	if err != nil {
		return "", fmt.Errorf("gemini marshal: %w", err)
	}

	resp, err := p.post(ctx, raw)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, geminiErrorBodyLimit))
		return "", fmt.Errorf("gemini api: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("gemini decode: %w", err)
	}
	return joinCandidateText(&out)
}

func (p *GeminiProvider) post(ctx context.Context, body []byte) (*http.Response, error) {
	url := fmt.Sprintf("%s/%s:generateContent", p.baseURL, p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini do: %w", err)
	}
	return resp, nil
}

// joinCandidateText concatenates the text parts of the first candidate.
func joinCandidateText(out *geminiResponse) (string, error) {
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates in response")
	}
	var sb strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

var _ domain.LLMProvider = (*GeminiProvider)(nil)
