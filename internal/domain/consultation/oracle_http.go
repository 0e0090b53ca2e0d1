package consultation

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

// HTTPOracle calls the extraction/generation service over JSON HTTP. Every
// call carries a per-attempt deadline; deadline overruns map to
// ErrExtractionTimeout so the iteration loop can treat them as
// non-productive. Transient failures are retried up to a fixed budget,
// never indefinitely.
type HTTPOracle struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	callTimeout time.Duration
	maxRetries  int
}

// HTTPOracleOption customises an HTTPOracle.
type HTTPOracleOption func(*HTTPOracle)

// WithHTTPClient overrides the underlying HTTP client (used by tests).
func WithHTTPClient(c *http.Client) HTTPOracleOption {
	return func(o *HTTPOracle) { o.httpClient = c }
}

// WithCallTimeout sets the per-attempt deadline.
func WithCallTimeout(d time.Duration) HTTPOracleOption {
	return func(o *HTTPOracle) { o.callTimeout = d }
}

// WithMaxRetries sets the retry budget for transient failures.
func WithMaxRetries(n int) HTTPOracleOption {
	return func(o *HTTPOracle) { o.maxRetries = n }
}

func NewHTTPOracle(baseURL, apiKey string, opts ...HTTPOracleOption) *HTTPOracle {
	o := &HTTPOracle{
		baseURL:     baseURL,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		callTimeout: 20 * time.Second,
		maxRetries:  2,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type extractRequest struct {
	Transcript []Message `json:"transcript"`
	FocusAreas []string  `json:"focus_areas,omitempty"`
}

type composeRequest struct {
	Section string       `json:"section"`
	Input   SectionInput `json:"input"`
}

func (o *HTTPOracle) Extract(ctx context.Context, transcript []Message, focusAreas []string) (*ExtractionResult, error) {
	var result ExtractionResult
	err := o.call(ctx, "/v1/extract", extractRequest{Transcript: transcript, FocusAreas: focusAreas}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (o *HTTPOracle) ComposeSection(ctx context.Context, section string, input SectionInput) (*SectionResult, error) {
	var result SectionResult
	err := o.call(ctx, "/v1/compose", composeRequest{Section: section, Input: input}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (o *HTTPOracle) call(ctx context.Context, path string, reqBody, respBody interface{}) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encode oracle request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			// Caller cancelled; no event is recorded, no retries attempted.
			return err
		}
		lastErr = o.attempt(ctx, path, payload, respBody)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrExtractionTimeout) || errors.Is(lastErr, context.Canceled) {
			// A deadline overrun consumes the whole call: the iteration
			// budget is the retry mechanism for timeouts.
			return lastErr
		}
	}
	return fmt.Errorf("oracle call failed after %d attempts: %w", o.maxRetries+1, lastErr)
}

func (o *HTTPOracle) attempt(ctx context.Context, path string, payload []byte, respBody interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrExtractionTimeout
		}
		if errors.Is(err, context.Canceled) {
			return context.Canceled
		}
		return fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Body is drained but never logged: oracle responses may quote
		// transcript content.
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("decode oracle response: %w", err)
	}
	return nil
}
