package main

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func TestLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "warn": slog.LevelWarn, "error": slog.LevelError, "info": slog.LevelInfo, "x": slog.LevelInfo}
	for in, want := range cases {
		if got := level(in); got != want {
			t.Fatalf("level(%q)=%v want %v", in, got, want)
		}
	}
}

func TestRunValidationError(t *testing.T) {
	t.Setenv("BK_REMOTE_URL", "")
	t.Setenv("BK_BEARER_TOKEN", "")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := run(ctx); err == nil {
		t.Fatal("expected config validation error")
	}
}

func TestRunSuccessCancel(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BK_REMOTE_URL", "http://127.0.0.1:1")
	t.Setenv("BK_REQUIRE_TOKEN", "false")
	t.Setenv("BK_BIND_ADDRESS", "127.0.0.1:0")
	t.Setenv("BK_AVAILABILITY_SOURCE", filepath.Join(dir, "availability.json"))
	t.Setenv("BK_ROLLOVER_MARKER", filepath.Join(dir, "marker"))
	t.Setenv("BK_REQUEST_TIMEOUT", "200ms")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(400 * time.Millisecond)
		cancel()
	}()
	err := run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected run error: %v", err)
	}
}
