package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/edgebench/edgebench/pkg/model"
	"github.com/edgebench/edgebench/pkg/spec"
)

// Measurer issues single timed GET requests against benchmark targets. It
// never returns a Go error: every failure mode is folded into the returned
// MeasurementResult so the orchestrator only ever sees values.
type Measurer struct {
	client    *http.Client
	userAgent string
}

// NewMeasurer returns a Measurer whose requests time out after the given
// duration. The timeout is enforced by the HTTP transport; the measurement
// logic itself imposes none.
func NewMeasurer(timeout time.Duration, userAgent string) *Measurer {
	return &Measurer{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
	}
}

// Measure performs one GET against url and returns its MeasurementResult.
//
// The request carries a Cache-Control: no-cache header asking intermediate
// and browser-style caches to revalidate. This is not a guarantee against
// CDN or edge caching: the benchmark intentionally measures what a real
// client experiences, edge-cache hits included.
//
// The client time is the elapsed wall clock from sending the request to
// receiving the response headers. It is not adjusted by anything the body
// reports.
func (m *Measurer) Measure(ctx context.Context, url string) model.MeasurementResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		zero := 0.0
		return errorResult(&zero, fmt.Sprintf("cannot create request: %v", err))
	}
	req.Header.Set("Cache-Control", "no-cache")
	if m.userAgent != "" {
		req.Header.Set("User-Agent", m.userAgent)
	}

	start := time.Now()
	resp, err := m.client.Do(req)
	elapsed := msSince(start)
	if err != nil {
		// Transport failures (DNS, connection reset, timeout) are captured
		// here with the elapsed time up to the failure.
		return errorResult(&elapsed, fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := truncatedBody(resp.Body)
		return errorResult(&elapsed,
			fmt.Sprintf("HTTP %d: %s", resp.StatusCode, body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorResult(&elapsed, fmt.Sprintf("cannot read response body: %v", err))
	}
	var envelope model.Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return errorResult(&elapsed, fmt.Sprintf("invalid JSON body: %v", err))
	}

	switch envelope.Validate() {
	case model.VerdictInvalid:
		return errorResult(&elapsed, "response body lacks timeMs or binding")
	case model.VerdictErrorBody:
		// Transport-level success wrapping an application-level error, e.g.
		// a database failure reported with HTTP 200. Passed through as data.
		binding := envelope.Binding
		if binding == "" {
			binding = spec.BindingError
		}
		return model.MeasurementResult{
			ClientTimeMs: &elapsed,
			ServerTimeMs: envelope.TimeMs,
			Binding:      binding,
			Error:        envelope.Error,
		}
	default:
		return model.MeasurementResult{
			ClientTimeMs: &elapsed,
			ServerTimeMs: envelope.TimeMs,
			Binding:      envelope.Binding,
		}
	}
}

func errorResult(clientTimeMs *float64, message string) model.MeasurementResult {
	return model.MeasurementResult{
		ClientTimeMs: clientTimeMs,
		Binding:      spec.BindingError,
		Error:        message,
	}
}

// truncatedBody reads at most spec.MaxErrorBodyLength bytes of body so
// error messages stay bounded.
func truncatedBody(body io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(body, spec.MaxErrorBodyLength))
	if err != nil {
		return fmt.Sprintf("(unreadable body: %v)", err)
	}
	return string(b)
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
