package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/common"
)

const defaultTimeout = 60 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// postJSON sends body to url and returns the raw response. 429 and 5xx
// responses are reported as retryable.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any, provider string) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("%w: %s API status %d", common.ErrRateLimit, provider, resp.StatusCode),
			Retryable: true,
		}
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("%s API error (status %d): %s", provider, resp.StatusCode, string(respBody)),
			Retryable: true,
		}
	case resp.StatusCode != http.StatusOK:
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("%s API error (status %d): %s", provider, resp.StatusCode, string(respBody)),
			Retryable: false,
		}
	}
	return respBody, nil
}
