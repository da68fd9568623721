package telemetry

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/yuanying/narrator/internal/config"
)

func TestSetup_Disabled(t *testing.T) {
	tel, err := Setup(context.Background(), config.TelemetryConfig{}, nil)
	if err != nil {
		t.Fatalf("Setup() failed: %v", err)
	}
	if tel.Handler() != nil || tel.Addr() != "" {
		t.Error("disabled telemetry should not serve metrics")
	}
	counter, err := tel.MeterProvider().Meter("test").Int64Counter("noop")
	if err != nil {
		t.Fatalf("Int64Counter() failed: %v", err)
	}
	counter.Add(context.Background(), 1)
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() failed: %v", err)
	}
}

func TestSetup_ServesPrometheus(t *testing.T) {
	ctx := context.Background()
	tel, err := Setup(ctx, config.TelemetryConfig{PrometheusBind: "127.0.0.1:0"}, nil)
	if err != nil {
		t.Fatalf("Setup() failed: %v", err)
	}
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	counter, err := tel.MeterProvider().Meter("test").Int64Counter("narrator.test.chunks")
	if err != nil {
		t.Fatalf("Int64Counter() failed: %v", err)
	}
	counter.Add(ctx, 3)

	resp, err := http.Get("http://" + tel.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "narrator_test_chunks") {
		t.Errorf("metrics output missing counter:\n%s", body)
	}
}

func TestSetup_BadBind(t *testing.T) {
	if _, err := Setup(context.Background(), config.TelemetryConfig{PrometheusBind: "not-an-address"}, nil); err == nil {
		t.Error("Setup() should fail for an invalid bind address")
	}
}
