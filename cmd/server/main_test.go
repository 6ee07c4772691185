package main

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/config"
)

func TestListenAddr(t *testing.T) {
	if got := listenAddr(&config.Config{}); got != ":8080" {
		t.Fatalf("expected default :8080, got %s", got)
	}
	if got := listenAddr(&config.Config{HTTPPort: "6000"}); got != ":6000" {
		t.Fatalf("expected :6000, got %s", got)
	}
}

func TestShutdownTimeout(t *testing.T) {
	if got := shutdownTimeout(&config.Config{}); got != 10*time.Second {
		t.Fatalf("expected default 10s, got %s", got)
	}
	if got := shutdownTimeout(&config.Config{HTTPShutdownTimeout: time.Second}); got != time.Second {
		t.Fatalf("expected 1s, got %s", got)
	}
}

func TestRun_MemoryBackend(t *testing.T) {
	cfg := &config.Config{
		StorageBackend:      config.StorageMemory,
		HTTPPort:            "0",
		HTTPShutdownTimeout: time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, zerolog.Nop(), ready) }()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("run returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
