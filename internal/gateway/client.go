package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const rawBodyExcerptLen = 200

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// centavos converts a BRL amount into the smallest currency unit most
// providers expect.
func centavos(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > rawBodyExcerptLen {
		s = s[:rawBodyExcerptLen] + "..."
	}
	return s
}

// doRequest performs one JSON request against a provider API and returns the
// raw response body. A non-2xx status becomes a GatewayError carrying the
// provider's own error message when one can be extracted.
func doRequest(ctx context.Context, client *http.Client, provider Provider, method, url string, headers map[string]string, payload interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &GatewayError{Provider: provider, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GatewayError{Provider: provider, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GatewayError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Message:    providerMessage(body),
		}
	}

	return body, nil
}

// doFormRequest is doRequest for providers speaking form-encoded bodies
// (stripe).
func doFormRequest(ctx context.Context, client *http.Client, provider Provider, method, url string, headers map[string]string, form string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, strings.NewReader(form))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &GatewayError{Provider: provider, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GatewayError{Provider: provider, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GatewayError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Message:    providerMessage(body),
		}
	}

	return body, nil
}

// decodeInto unmarshals a provider response. A body that is not valid JSON is
// surfaced as a GatewayError with a truncated raw excerpt, never swallowed.
func decodeInto(provider Provider, body []byte, dest interface{}) error {
	if err := json.Unmarshal(body, dest); err != nil {
		return &GatewayError{
			Provider: provider,
			Message:  fmt.Sprintf("malformed response body: %s", excerpt(body)),
		}
	}
	return nil
}

// providerMessage digs a human-readable error message out of the usual spots
// providers put one.
func providerMessage(body []byte) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Errors  json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return excerpt(body)
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	if len(envelope.Error) > 0 {
		var s string
		if json.Unmarshal(envelope.Error, &s) == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
	}
	if len(envelope.Errors) > 0 {
		return excerpt(envelope.Errors)
	}
	return excerpt(body)
}
