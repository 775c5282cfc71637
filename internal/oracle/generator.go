package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Generator produces raw text for a prompt. The remote implementation
// is treated as unreliable; callers must tolerate any error.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// HTTPGenerator calls a hosted text-generation endpoint. The response
// shape varies between an array of objects and a single object, both
// carrying a generated_text field, so parsing is defensive.
type HTTPGenerator struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewHTTPGenerator(endpoint, token string, timeout time.Duration) *HTTPGenerator {
	return &HTTPGenerator{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Inputs string `json:"inputs"`
}

type generateResponse struct {
	GeneratedText string `json:"generated_text"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Inputs: prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generator returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	return parseGenerated(raw)
}

func parseGenerated(raw []byte) (string, error) {
	var list []generateResponse
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 || list[0].GeneratedText == "" {
			return "", fmt.Errorf("generator returned empty result")
		}
		return list[0].GeneratedText, nil
	}

	var single generateResponse
	if err := json.Unmarshal(raw, &single); err != nil {
		return "", fmt.Errorf("unparseable generator response: %w", err)
	}
	if single.GeneratedText == "" {
		return "", fmt.Errorf("generator returned empty result")
	}
	return single.GeneratedText, nil
}
