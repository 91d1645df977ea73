package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/common"
	"github.com/hsh7097/MoneyTalk-sub002/internal/service"
	"github.com/oklog/ulid/v2"
)

// Compile-time interface check
var _ service.TelemetryCollector = (*HTTPCollector)(nil)

const defaultTimeout = 10 * time.Second

// HTTPCollector posts samples as JSON to a collection endpoint.
type HTTPCollector struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
}

// NewHTTPCollector creates a collector for endpoint.
func NewHTTPCollector(endpoint string, timeout time.Duration, logger *slog.Logger) (*HTTPCollector, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: telemetry endpoint", common.ErrMissingConfig)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPCollector{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		endpoint:   endpoint,
	}, nil
}

// Upload sends one sample. The body is masked again before sending and a ULID
// is assigned when the sample has no ID.
func (c *HTTPCollector) Upload(ctx context.Context, sample service.TelemetrySample) error {
	if sample.ID == "" {
		sample.ID = ulid.Make().String()
	}
	sample.MaskedBody = MaskPII(sample.MaskedBody)

	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return common.ExternalError("telemetry", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return common.ExternalError("telemetry", fmt.Errorf("status %d", resp.StatusCode))
	}

	c.logger.Debug("Uploaded telemetry sample", "sample_id", sample.ID, "source", sample.Source)
	return nil
}
