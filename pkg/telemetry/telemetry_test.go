package telemetry

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSetupServesMetrics(t *testing.T) {
	tel, err := Setup("visionmate-test", "test", nil)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer tel.Shutdown(context.Background())

	counter, err := tel.Meter("test").Int64Counter("visionmate.test.events")
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	tel.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "visionmate_test_events") {
		t.Errorf("expected counter in exposition, got:\n%s", body)
	}
}
