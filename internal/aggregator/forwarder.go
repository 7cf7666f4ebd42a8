package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"minco/internal/service"
)

// ForwardError wraps a downstream delivery failure with a retryability
// hint. Timeouts and transport errors are worth retrying by an external
// scheduler; rejections are not.
type ForwardError struct {
	Err       error
	Retryable bool
}

func (e *ForwardError) Error() string { return e.Err.Error() }
func (e *ForwardError) Unwrap() error { return e.Err }

// IsRetryable reports whether a forward failure is transient.
func IsRetryable(err error) bool {
	var fe *ForwardError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// ServiceForwarder applies the combined figure directly to the in-process
// capital service.
type ServiceForwarder struct {
	Capital *service.CapitalService
}

func (f *ServiceForwarder) Forward(ctx context.Context, c Combined) error {
	if f == nil || f.Capital == nil {
		return &ForwardError{Err: errors.New("capital service unavailable"), Retryable: false}
	}
	live := c.Live
	status := c.Status
	_, _, err := f.Capital.Update(ctx, service.UpdateInput{
		Amount:     c.Equity,
		LiveProfit: &live,
		Status:     &status,
	})
	if err != nil {
		return &ForwardError{Err: err, Retryable: false}
	}
	return nil
}

// HTTPForwarder posts the combined figure to a remote live-sync endpoint.
// The request carries the MT5-compatible field names that endpoint expects.
type HTTPForwarder struct {
	URL     string
	Secret  string
	Timeout time.Duration
	HTTP    *http.Client
}

type forwardPayload struct {
	Equity     json.Number `json:"equity"`
	LiveProfit json.Number `json:"liveProfit"`
	Status     string      `json:"status"`
	Secret     string      `json:"secret,omitempty"`
}

func (f *HTTPForwarder) Forward(ctx context.Context, c Combined) error {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(forwardPayload{
		Equity:     json.Number(c.Equity.String()),
		LiveProfit: json.Number(c.Live.String()),
		Status:     c.Status,
		Secret:     f.Secret,
	})
	if err != nil {
		return &ForwardError{Err: err, Retryable: false}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.URL, bytes.NewReader(body))
	if err != nil {
		return &ForwardError{Err: err, Retryable: false}
	}
	req.Header.Set("Content-Type", "application/json")

	client := f.HTTP
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return &ForwardError{Err: err, Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &ForwardError{
		Err:       fmt.Errorf("forward target returned %d", resp.StatusCode),
		Retryable: resp.StatusCode >= 500,
	}
}
