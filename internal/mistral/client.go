// Package mistral implements the embeddings provider client against the
// Mistral REST API.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pdfinsight/internal/model"
)

const (
	defaultBaseURL = "https://api.mistral.ai"
	defaultTimeout = 60 * time.Second
)

type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		BaseURL:    baseURL,
		APIKey:     strings.TrimSpace(apiKey),
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one vector per input, in input order. The provider
// reports each vector's position explicitly, so ordering is taken from
// the response rather than assumed.
func (c *Client) Embed(ctx context.Context, modelName string, inputs []string) ([][]float32, error) {
	apiKey := strings.TrimSpace(c.APIKey)
	if apiKey == "" {
		return nil, &model.ProviderError{
			Code:      "MISTRAL_AUTH",
			Message:   "missing Mistral API key",
			Retryable: false,
		}
	}
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}

	payload, err := json.Marshal(embedRequest{Model: modelName, Input: inputs})
	if err != nil {
		return nil, &model.ProviderError{Code: "MISTRAL_FAILED", Message: "failed to marshal embeddings request", Retryable: false, Cause: err}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, &model.ProviderError{Code: "MISTRAL_FAILED", Message: "failed to build embeddings request", Retryable: false, Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &model.ProviderError{Code: "MISTRAL_FAILED", Message: "embeddings request failed", Retryable: true, Cause: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.ProviderError{Code: "MISTRAL_FAILED", Message: "failed to read embeddings response", Retryable: true, StatusCode: resp.StatusCode, Cause: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		message := strings.TrimSpace(string(bodyBytes))
		if message == "" {
			message = fmt.Sprintf("mistral embeddings returned status %d", resp.StatusCode)
		}
		return nil, mapProviderError(resp.StatusCode, message)
	}

	var parsed embedResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return nil, &model.ProviderError{Code: "MISTRAL_FAILED", Message: "failed to decode embeddings response", Retryable: false, Cause: err}
	}
	if len(parsed.Data) != len(inputs) {
		return nil, &model.ProviderError{
			Code:      "MISTRAL_FAILED",
			Message:   fmt.Sprintf("embeddings response had %d vectors for %d inputs", len(parsed.Data), len(inputs)),
			Retryable: false,
		}
	}

	vectors := make([][]float32, len(inputs))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, &model.ProviderError{
				Code:      "MISTRAL_FAILED",
				Message:   fmt.Sprintf("embeddings response index %d out of range", item.Index),
				Retryable: false,
			}
		}
		vectors[item.Index] = item.Embedding
	}
	for i, vec := range vectors {
		if len(vec) == 0 {
			return nil, &model.ProviderError{
				Code:      "MISTRAL_FAILED",
				Message:   fmt.Sprintf("embeddings response missing vector for input %d", i),
				Retryable: false,
			}
		}
	}
	return vectors, nil
}

func mapProviderError(statusCode int, message string) error {
	pe := &model.ProviderError{
		Code:       "MISTRAL_FAILED",
		Message:    message,
		Retryable:  false,
		StatusCode: statusCode,
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		pe.Code = "MISTRAL_AUTH"
		pe.Retryable = false
	case statusCode == http.StatusTooManyRequests:
		pe.Code = "MISTRAL_RATE_LIMIT"
		pe.Retryable = true
	case statusCode >= http.StatusInternalServerError:
		pe.Retryable = true
	case statusCode >= http.StatusBadRequest && statusCode < http.StatusInternalServerError:
		pe.Retryable = false
	default:
		pe.Retryable = true
	}

	return pe
}
