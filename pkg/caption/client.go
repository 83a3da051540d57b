// Package caption sends captured images to the remote captioning service.
package caption

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/teslashibe/visionmate/internal/httpc"
	"github.com/teslashibe/visionmate/pkg/payload"
)

// Multipart field and file name the service expects.
const (
	FieldName = "file"
	FileName  = "captured.jpg"
)

// maxResponseBytes bounds how much of a response is read.
const maxResponseBytes = 1 << 20

// ErrNoEndpoint is returned by New without an endpoint.
var ErrNoEndpoint = errors.New("caption: endpoint required")

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Defaults to httpc.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMeter sets the meter instruments are created from.
func WithMeter(m metric.Meter) Option {
	return func(c *Client) { c.meter = m }
}

// Client posts images to one captioning endpoint. It never retries.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
	meter    metric.Meter

	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// New creates a client for endpoint, which must be an absolute http(s) URL.
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("caption: invalid endpoint %q", endpoint)
	}

	c := &Client{
		endpoint: endpoint,
		http:     httpc.Client,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.meter == nil {
		c.meter = otel.Meter("github.com/teslashibe/visionmate/pkg/caption")
	}
	c.logger = c.logger.With("component", "caption.client")

	if c.requests, err = c.meter.Int64Counter("visionmate.caption.requests",
		metric.WithDescription("Caption requests by outcome")); err != nil {
		return nil, fmt.Errorf("caption: create counter: %w", err)
	}
	if c.latency, err = c.meter.Float64Histogram("visionmate.caption.latency",
		metric.WithDescription("Caption round trip time"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("caption: create histogram: %w", err)
	}

	return c, nil
}

// Endpoint returns the configured URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type response struct {
	Caption *string `json:"caption"`
}

// Caption posts img as multipart field "file" and returns the caption text.
func (c *Client) Caption(ctx context.Context, img *payload.Image) (string, error) {
	start := time.Now()
	text, err := c.do(ctx, img)

	outcome := "ok"
	var capErr *Error
	if errors.As(err, &capErr) {
		outcome = capErr.Kind.String()
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	c.requests.Add(ctx, 1, attrs)
	c.latency.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		c.logger.Warn("caption failed", "error", err, "latency_ms", time.Since(start).Milliseconds())
		return "", err
	}
	c.logger.Info("caption received", "chars", len(text), "latency_ms", time.Since(start).Milliseconds())
	return text, nil
}

func (c *Client) do(ctx context.Context, img *payload.Image) (string, error) {
	body, contentType, err := encodeBody(img)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &Error{Kind: KindNetwork, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{Kind: KindNetwork, StatusCode: resp.StatusCode, Body: truncate(string(data), 200)}
	}

	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return "", &Error{Kind: KindMalformedResponse, StatusCode: resp.StatusCode, Err: err}
	}
	if r.Caption == nil {
		return "", &Error{Kind: KindMalformedResponse, StatusCode: resp.StatusCode, Err: errors.New(`missing "caption" field`)}
	}
	return *r.Caption, nil
}

func encodeBody(img *payload.Image) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FieldName, FileName))
	h.Set("Content-Type", payload.MIMEJPEG)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", fmt.Errorf("write part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
