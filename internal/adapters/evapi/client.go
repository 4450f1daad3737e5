// Package evapi is a client for the EV routing backend: route optimization,
// the charging-station catalogue, best-station lookup and EV profiles.
package evapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/pkg/metrics"
	"github.com/samirrijal/voltroute/internal/pkg/telemetry"
)

const apiPrefix = "/api/v1"

// Client talks to the backend over HTTP. It implements ports.RouteOptimizer,
// ports.StationCatalogue, ports.ReachabilityService and ports.ProfileStore.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "evapi")
	return c
}

// statusError is a non-2xx answer from the backend.
type statusError struct {
	Status int
	Detail string
}

func (e *statusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Detail)
}

func isStatus(err error, status int) bool {
	var se *statusError
	return errors.As(err, &se) && se.Status == status
}

func startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	ctx, span := telemetry.Tracer().Start(ctx, "evapi."+op)
	span.SetAttributes(attribute.String(telemetry.AttrUpstreamOp, op))
	return ctx, span
}

// do sends one request and decodes a JSON answer into out (when non-nil).
// The call is timed under op and annotates the span carried by ctx.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	span := trace.SpanFromContext(ctx)

	start := time.Now()
	status := 0
	defer func() {
		metrics.UpstreamRequestDuration.
			WithLabelValues(op, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	}()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return err
	}
	defer resp.Body.Close()

	status = resp.StatusCode
	span.SetAttributes(attribute.Int(telemetry.AttrHTTPStatus, status))

	if status < 200 || status > 299 {
		var detail struct {
			Detail any `json:"detail"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&detail)
		se := &statusError{Status: status}
		if s, ok := detail.Detail.(string); ok {
			se.Detail = s
		}
		if status != http.StatusNotFound {
			span.SetStatus(codes.Error, se.Error())
		}
		return se
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func transport(op string, err error) error {
	return &domain.TransportError{Op: op, Err: err}
}
