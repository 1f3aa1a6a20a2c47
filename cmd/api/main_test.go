package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appconfig "github.com/wolfman30/gemini-chat/internal/config"
	"github.com/wolfman30/gemini-chat/pkg/logging"
)

func TestSetupMetricsExposesMetrics(t *testing.T) {
	handler, metrics := setupMetrics()
	if handler == nil || metrics == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	metrics.ObserveCompletion("ok", "gemini-1.5-flash", 0.4)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "geminichat_chat_completions_total") {
		t.Fatalf("expected completion counter to be exported")
	}
}

func TestSetupMetricsUsesPrivateRegistry(t *testing.T) {
	// Registering twice would panic on a shared registry.
	_, _ = setupMetrics()
	_, _ = setupMetrics()
}

func TestConnectPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	logger := logging.New("error")
	if pool := connectPostgresPool(context.Background(), "", logger); pool != nil {
		t.Fatalf("expected nil pool for empty URL")
	}
}

func TestOpenSQLDBEmptyURLReturnsNil(t *testing.T) {
	logger := logging.New("error")
	if db := openSQLDB("  ", logger); db != nil {
		t.Fatalf("expected nil db for empty URL")
	}
}

func TestWriteTimeoutCoversProbesAndCompletion(t *testing.T) {
	cfg := &appconfig.Config{
		Models:            []string{"a", "b", "c", "d"},
		CompletionTimeout: 60 * time.Second,
		ProbeTimeout:      15 * time.Second,
	}
	if got := writeTimeout(cfg); got != 135*time.Second {
		t.Fatalf("expected 135s, got %s", got)
	}
}
