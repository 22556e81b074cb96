package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cenkalti/backoff/v4"

	"github.com/kozaktomas/face-search/internal/store"
)

// apiError carries the HTTP status and Qdrant error message of a failed
// request so callers can map it onto the store error taxonomy.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("qdrant request failed with status %d: %s", e.StatusCode, e.Message)
}

// doJSON performs one HTTP request with an optional JSON body and
// unmarshals the enveloped JSON response. Transport failures and 5xx
// responses are retried with exponential backoff up to maxRetries and
// then surfaced as store.ErrStoreUnavailable; 4xx responses are
// returned as *apiError without retrying.
func doJSON[T any](ctx context.Context, c *Client, method, endpoint string, requestBody any) (*envelope[T], error) {
	var bodyBytes []byte
	if requestBody != nil {
		var err error
		bodyBytes, err = json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("could not marshal request body: %w", err)
		}
	}

	var result *envelope[T]
	operation := func() error {
		var err error
		result, err = doJSONOnce[T](ctx, c, method, endpoint, bodyBytes)
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	return result, nil
}

func doJSONOnce[T any](ctx context.Context, c *Client, method, endpoint string, bodyBytes []byte) (*envelope[T], error) {
	var bodyReader io.Reader
	if bodyBytes != nil {
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolveURL(endpoint), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	if bodyBytes != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &apiError{StatusCode: resp.StatusCode, Message: extractErrorMessage(body)}
	}

	var result envelope[T]
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}
	return &result, nil
}

// extractErrorMessage pulls the error string out of a Qdrant error body,
// falling back to the raw body when it does not match the envelope shape.
func extractErrorMessage(body []byte) string {
	var env envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err == nil && len(env.Status) > 0 {
		if msg := statusError(env.Status); msg != "" {
			return msg
		}
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return string(body)
}
