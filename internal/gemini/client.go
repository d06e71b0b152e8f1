// Package gemini is a thin client for the Gemini generateContent REST API,
// used as the drafting collaborator: prompt and image bytes in, structured
// JSON text out.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Generation tuning. Low temperature: the draft should stick to the
// metadata it was given.
const (
	temperature = 0.2
	topP        = 0.95
	topK        = 40
)

// Client calls one Gemini model.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	maxRetries int
}

// NewClient builds a client for the given model and API key.
func NewClient(model, apiKey string, timeout time.Duration, maxRetries int) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// ImagePart is one photo attached to a drafting request.
type ImagePart struct {
	MIMEType string
	Data     []byte
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature        float64        `json:"temperature"`
	MaxOutputTokens    int            `json:"maxOutputTokens"`
	TopP               float64        `json:"topP"`
	TopK               int            `json:"topK"`
	ResponseMIMEType   string         `json:"responseMimeType"`
	ResponseJSONSchema map[string]any `json:"responseJsonSchema"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// articleSchema is the structured-output schema for a draft. Must use
// responseJsonSchema (not responseSchema); that variant supports
// additionalProperties.
func articleSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":         map[string]any{"type": "string"},
			"date":          map[string]any{"type": "string"},
			"location":      map[string]any{"type": "string"},
			"tags":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"body_markdown": map[string]any{"type": "string"},
			"capture_info": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"captured_at": map[string]any{"type": "string"},
					"location":    map[string]any{"type": "string"},
				},
				"required":             []string{"captured_at", "location"},
				"additionalProperties": false,
			},
		},
		"required":             []string{"title", "date", "location", "tags", "body_markdown", "capture_info"},
		"additionalProperties": false,
	}
}

// Draft sends the prompt plus image parts and returns the raw model text.
// Timeouts and 429/5xx responses are retried in-process with exponential
// backoff; other API errors return immediately.
func (c *Client) Draft(ctx context.Context, prompt string, maxOutputTokens int, images []ImagePart) (string, error) {
	parts := []part{{Text: prompt}}
	for _, img := range images {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: img.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}
	reqBody := generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:        temperature,
			MaxOutputTokens:    maxOutputTokens,
			TopP:               topP,
			TopK:               topK,
			ResponseMIMEType:   "application/json",
			ResponseJSONSchema: articleSchema(),
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	var text string
	backoff := retry.WithMaxRetries(uint64(c.maxRetries), retry.NewExponential(time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Network errors and client timeouts are worth another try.
			return retry.RetryableError(fmt.Errorf("gemini request: %w", err))
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read response: %w", err))
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("gemini api: %d %s", resp.StatusCode, strings.TrimSpace(string(raw))))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("gemini api: %d %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}

		var out generateResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		var sb strings.Builder
		if len(out.Candidates) > 0 {
			for _, p := range out.Candidates[0].Content.Parts {
				sb.WriteString(p.Text)
			}
		}
		text = strings.TrimSpace(sb.String())
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
