package caption

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/teslashibe/visionmate/pkg/payload"
)

func testImage() *payload.Image {
	return payload.NewJPEG([]byte{0xff, 0xd8, 0xff, 0xd9}, 2, 2, "frame")
}

func TestNewValidatesEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		wantErr  bool
	}{
		{"", true},
		{"not a url", true},
		{"ftp://example.com/caption", true},
		{"http://10.0.0.69:8000/caption/", false},
		{"https://caption.example.com/caption", false},
	}
	for _, tt := range tests {
		_, err := New(tt.endpoint)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q) error = %v, wantErr %v", tt.endpoint, err, tt.wantErr)
		}
	}
	if _, err := New(""); !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("expected ErrNoEndpoint, got %v", err)
	}
}

func TestCaptionSuccess(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Filename != "captured.jpg" {
			t.Errorf("expected captured.jpg, got %s", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("expected image/jpeg part, got %s", ct)
		}
		data, _ := io.ReadAll(file)
		if len(data) != 4 {
			t.Errorf("expected 4 bytes, got %d", len(data))
		}
		if r.MultipartForm != nil && len(r.MultipartForm.File) != 1 {
			t.Errorf("expected a single file part")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"caption":"a dog on a beach"}`))
	}))
	defer server.Close()

	c, err := New(server.URL + "/caption/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	text, err := c.Caption(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Caption: %v", err)
	}
	if text != "a dog on a beach" {
		t.Errorf("unexpected caption %q", text)
	}
	if requests != 1 {
		t.Errorf("expected exactly one request, got %d", requests)
	}
}

func TestCaptionErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind Kind
		wantErr  error
	}{
		{"server error", 500, `{"detail":"boom"}`, KindNetwork, ErrNetwork},
		{"not found", 404, `not found`, KindNetwork, ErrNetwork},
		{"missing field", 200, `{"text":"a cat"}`, KindMalformedResponse, ErrMalformedResponse},
		{"not json", 200, `<html>`, KindMalformedResponse, ErrMalformedResponse},
		{"wrong type", 200, `{"caption":42}`, KindMalformedResponse, ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests int
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests++
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, _ := New(server.URL)
			_, err := c.Caption(context.Background(), testImage())

			var capErr *Error
			if !errors.As(err, &capErr) {
				t.Fatalf("expected *Error, got %T: %v", err, err)
			}
			if capErr.Kind != tt.wantKind {
				t.Errorf("expected kind %s, got %s", tt.wantKind, capErr.Kind)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantErr)
			}
			if requests != 1 {
				t.Errorf("no retries expected, got %d requests", requests)
			}
		})
	}
}

func TestCaptionTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c, _ := New(url, WithHTTPClient(&http.Client{Timeout: time.Second}))
	_, err := c.Caption(context.Background(), testImage())
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
	if errors.Is(err, ErrMalformedResponse) {
		t.Error("transport failure must not match ErrMalformedResponse")
	}
}

func TestCaptionRecordsMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"caption":"x"}`))
	}))
	defer server.Close()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	c, err := New(server.URL, WithMeter(provider.Meter("test")))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Caption(context.Background(), testImage()); err != nil {
		t.Fatalf("Caption: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
		}
	}
	for _, name := range []string{"visionmate.caption.requests", "visionmate.caption.latency"} {
		if !found[name] {
			t.Errorf("metric %s not recorded", name)
		}
	}
}
