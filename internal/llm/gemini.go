package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"briefing-agent/internal/resilience/retry"
)

const (
	geminiEndpoint     = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"
	defaultGeminiModel = "gemini-2.0-flash"
)

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

type geminiBackend struct {
	apiKey     string
	modelName  string
	endpoint   string
	httpClient *http.Client
}

// NewGemini builds a Gemini client using the REST generateContent API.
// The model defaults to gemini-2.0-flash and can be overridden with
// GEMINI_MODEL.
func NewGemini(apiKey string) Client {
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultGeminiModel
	}
	return newResilientClient(&geminiBackend{
		apiKey:     apiKey,
		modelName:  model,
		endpoint:   geminiEndpoint,
		httpClient: &http.Client{Timeout: invokeTimeout},
	})
}

func (g *geminiBackend) name() Provider { return ProviderGemini }
func (g *geminiBackend) model() string  { return g.modelName }

func (g *geminiBackend) invoke(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	// The key rides in a header, never the URL: transport errors wrap the
	// request URL into their message, and that message ends up in logs.
	url := fmt.Sprintf(g.endpoint, g.modelName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini api request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read gemini response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Surface the structured error message when the body carries one,
		// so the retry classifier sees text like "rate limit" or "503".
		var parsed geminiResponse
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil {
			return "", &retry.HTTPError{StatusCode: resp.StatusCode, Body: parsed.Error.Message}
		}
		return "", &retry.HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response contained no content")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
