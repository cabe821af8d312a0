// Package translate wraps the external machine-translation collaborator.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotConfigured is returned when no translation backend is set up.
var ErrNotConfigured = errors.New("translation service not configured")

type Result struct {
	TargetLanguage string `json:"targetLanguage"`
	Translation    string `json:"translation"`
}

// Translator turns message text into the requested language.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (*Result, error)
}

// HTTPTranslator posts to a configured external translation endpoint.
type HTTPTranslator struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPTranslator(url, apiKey string, timeout time.Duration) *HTTPTranslator {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPTranslator{
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTranslator) Translate(ctx context.Context, text, targetLanguage string) (*Result, error) {
	if t.url == "" {
		return nil, ErrNotConfigured
	}

	if t.url == "" {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(map[string]string{
		"text":           text,
		"targetLanguage": targetLanguage,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding translate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building translate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling translate service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("translate service returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding translate response: %w", err)
	}
	if result.TargetLanguage == "" {
		result.TargetLanguage = targetLanguage
	}
	return &result, nil
}
