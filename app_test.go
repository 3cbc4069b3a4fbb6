package main

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func testOptions() *Options {
	return &Options{
		Port:            "127.0.0.1:0",
		LedsPins:        "4,17,27",
		LedsDriver:      "noop",
		AnimationPeriod: "5ms",
		FeaturesMetrics: true,
	}
}

func TestAppBuildAndStop(t *testing.T) {
	a := &app{opts: testOptions(), logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	if _, err := a.build(); err != nil {
		t.Fatalf("build: %v", err)
	}
	if a.bank.Len() != 3 {
		t.Errorf("bank has %d LEDs, want 3", a.bank.Len())
	}

	if err := a.controller.StartPattern("pingpong"); err != nil {
		t.Fatalf("StartPattern: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	bank := a.bank
	a.stop()

	if bank.CountOn() != 0 {
		t.Errorf("%d LEDs still on after stop", bank.CountOn())
	}
	if a.controller != nil || a.server != nil {
		t.Error("stop should release the components")
	}

	// A second stop is a no-op.
	a.stop()
}

func TestAppStartReturnsAfterStop(t *testing.T) {
	a := &app{opts: testOptions(), logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	done := make(chan error, 1)
	go func() { done <- a.start() }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		a.mu.Lock()
		ready := a.server != nil
		a.mu.Unlock()
		if ready {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("server was never built")
		}
		time.Sleep(2 * time.Millisecond)
	}

	a.stop()

	select {
	case err := <-done:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("start returned %v, want http.ErrServerClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("start did not return after stop")
	}
}

func TestAppBuildRejectsBadConfig(t *testing.T) {
	opts := testOptions()
	opts.LedsPins = "4,4"
	a := &app{opts: opts, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	if _, err := a.build(); err == nil {
		t.Fatal("build should reject duplicate pins")
	}
}
