package connwatch

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

// testBackoff returns a fast backoff config for tests.
func testBackoff() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 1 * time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		MaxRetries:   5,
		PollInterval: 5 * time.Millisecond,
		ProbeTimeout: 100 * time.Millisecond,
	}
}

// waitFor polls cond every tick until it returns true or timeout elapses.
// Fails the test with msg on timeout.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(1 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for condition: %s", msg)
}

func TestDefaultBackoffConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultBackoffConfig()

	if cfg.InitialDelay != 2*time.Second {
		t.Errorf("InitialDelay = %v, want 2s", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 60*time.Second {
		t.Errorf("MaxDelay = %v, want 60s", cfg.MaxDelay)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("Multiplier = %v, want 2.0", cfg.Multiplier)
	}
	if cfg.MaxRetries != 10 {
		t.Errorf("MaxRetries = %d, want 10", cfg.MaxRetries)
	}
	if cfg.PollInterval != 60*time.Second {
		t.Errorf("PollInterval = %v, want 60s", cfg.PollInterval)
	}
	if cfg.ProbeTimeout != 10*time.Second {
		t.Errorf("ProbeTimeout = %v, want 10s", cfg.ProbeTimeout)
	}
}

func TestWatch_ImmediateSuccess(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var readyCalled atomic.Int32

	w := Watch(ctx, WatchConfig{
		Name:    "test-immediate",
		Probe:   func(ctx context.Context) error { return nil },
		Backoff: testBackoff(),
		OnReady: func() { readyCalled.Add(1) },
		Logger:  slog.Default(),
	})

	waitFor(t, 2*time.Second, w.IsReady, "IsReady() == true")

	if w.LastError() != nil {
		t.Errorf("expected nil LastError, got %v", w.LastError())
	}
	if readyCalled.Load() != 1 {
		t.Errorf("OnReady called %d times, want 1", readyCalled.Load())
	}
}

func TestWatch_BackoffThenSuccess(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errDown := errors.New("dependency down")
	var attempts atomic.Int32

	// Fail 3 times, then succeed.
	probe := func(ctx context.Context) error {
		n := attempts.Add(1)
		if n <= 3 {
			return errDown
		}
		return nil
	}

	var readyCalled atomic.Int32

	w := Watch(ctx, WatchConfig{
		Name:    "test-backoff",
		Probe:   probe,
		Backoff: testBackoff(),
		OnReady: func() { readyCalled.Add(1) },
		Logger:  slog.Default(),
	})

	waitFor(t, 2*time.Second, w.IsReady, "IsReady() == true after retries")

	if readyCalled.Load() != 1 {
		t.Errorf("OnReady called %d times, want 1", readyCalled.Load())
	}
	if n := attempts.Load(); n < 4 {
		t.Errorf("expected at least 4 probe attempts, got %d", n)
	}
}

func TestWatch_ExhaustsRetries(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errDown := errors.New("always down")
	var attempts atomic.Int32

	w := Watch(ctx, WatchConfig{
		Name:    "test-exhaust",
		Probe:   func(ctx context.Context) error { attempts.Add(1); return errDown },
		Backoff: testBackoff(),
		Logger:  slog.Default(),
	})

	// Wait until all startup retries have been attempted.
	waitFor(t, 2*time.Second, func() bool {
		return attempts.Load() >= 5
	}, "all startup retries attempted")

	if w.IsReady() {
		t.Error("expected IsReady() == false after exhausting retries")
	}
	if w.LastError() == nil {
		t.Error("expected non-nil LastError")
	}
}

func TestWatch_DependencyGoesDown(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errDown := errors.New("went down")
	var shouldFail atomic.Bool

	probe := func(ctx context.Context) error {
		if shouldFail.Load() {
			return errDown
		}
		return nil
	}

	var downCalled atomic.Int32

	w := Watch(ctx, WatchConfig{
		Name:    "test-goes-down",
		Probe:   probe,
		Backoff: testBackoff(),
		OnDown:  func(err error) { downCalled.Add(1) },
		Logger:  slog.Default(),
	})

	waitFor(t, 2*time.Second, w.IsReady, "initially ready")

	// Make the dependency fail.
	shouldFail.Store(true)

	// Wait for at least one poll cycle to detect the failure.
	waitFor(t, 2*time.Second, func() bool {
		return !w.IsReady()
	}, "IsReady() == false after failure")

	if downCalled.Load() < 1 {
		t.Errorf("OnDown called %d times, want >= 1", downCalled.Load())
	}
}

func TestWatch_DependencyRecovers(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errDown := errors.New("down")
	var shouldFail atomic.Bool
	shouldFail.Store(true) // start failing

	probe := func(ctx context.Context) error {
		if shouldFail.Load() {
			return errDown
		}
		return nil
	}

	var readyCalled atomic.Int32

	bcfg := testBackoff()
	bcfg.MaxRetries = 2 // exhaust quickly

	w := Watch(ctx, WatchConfig{
		Name:    "test-recovers",
		Probe:   probe,
		Backoff: bcfg,
		OnReady: func() { readyCalled.Add(1) },
		Logger:  slog.Default(),
	})

	// Wait for startup retries to exhaust.
	waitFor(t, 2*time.Second, func() bool {
		return w.LastError() != nil
	}, "startup retries exhausted")

	if w.IsReady() {
		t.Fatal("expected not ready after startup exhaustion")
	}

	// Recover the dependency.
	shouldFail.Store(false)

	// Wait for background poll to detect recovery.
	waitFor(t, 2*time.Second, w.IsReady, "IsReady() == true after recovery")

	if readyCalled.Load() < 1 {
		t.Errorf("OnReady called %d times, want >= 1", readyCalled.Load())
	}
}

func TestWatch_ContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())

	errDown := errors.New("down")
	w := Watch(ctx, WatchConfig{
		Name:    "test-cancel",
		Probe:   func(ctx context.Context) error { return errDown },
		Backoff: testBackoff(),
		Logger:  slog.Default(),
	})

	// Cancel context and verify the watcher stops.
	cancel()

	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()

	select {
	case <-done:
		// Good, watcher stopped.
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after context cancellation")
	}
}

func TestWatch_Stop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	w := Watch(ctx, WatchConfig{
		Name:    "test-stop",
		Probe:   func(ctx context.Context) error { return nil },
		Backoff: testBackoff(),
		Logger:  slog.Default(),
	})

	waitFor(t, 2*time.Second, w.IsReady, "ready before stop")

	// Stop should return promptly.
	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return within timeout")
	}
}

func TestWatch_ProbeTimeout(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Probe that blocks until context expires.
	probe := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	bcfg := testBackoff()
	bcfg.ProbeTimeout = 5 * time.Millisecond
	bcfg.MaxRetries = 1

	w := Watch(ctx, WatchConfig{
		Name:    "test-probe-timeout",
		Probe:   probe,
		Backoff: bcfg,
		Logger:  slog.Default(),
	})

	waitFor(t, 2*time.Second, func() bool {
		return w.LastError() != nil
	}, "probe error recorded after timeout")

	if w.IsReady() {
		t.Error("expected not ready when probe always times out")
	}
}

func TestWatch_OnReadyNotCalledWhenAlreadyReady(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var readyCalled atomic.Int32
	var probeCount atomic.Int32

	_ = Watch(ctx, WatchConfig{
		Name: "test-already-ready",
		Probe: func(ctx context.Context) error {
			probeCount.Add(1)
			return nil
		},
		Backoff: testBackoff(),
		OnReady: func() { readyCalled.Add(1) },
		Logger:  slog.Default(),
	})

	// Wait for multiple poll cycles to pass.
	waitFor(t, 2*time.Second, func() bool {
		return probeCount.Load() >= 3
	}, "at least 3 probes completed")

	// OnReady should be called exactly once (startup), not on every successful poll.
	if n := readyCalled.Load(); n != 1 {
		t.Errorf("OnReady called %d times, want exactly 1", n)
	}
}

func TestWatch_PanicsOnEmptyName(t *testing.T) {
	t.Parallel()
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for empty Name")
		}
	}()

	Watch(context.Background(), WatchConfig{
		Name:    "",
		Probe:   func(ctx context.Context) error { return nil },
		Backoff: testBackoff(),
	})
}

func TestWatch_PanicsOnNilProbe(t *testing.T) {
	t.Parallel()
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for nil Probe")
		}
	}()

	Watch(context.Background(), WatchConfig{
		Name:    "test-nil-probe",
		Probe:   nil,
		Backoff: testBackoff(),
	})
}

func TestWatch_DefaultsZeroBackoffFields(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pass a completely zero BackoffConfig — all fields should get defaults.
	w := Watch(ctx, WatchConfig{
		Name:  "test-defaults",
		Probe: func(ctx context.Context) error { return nil },
	})

	waitFor(t, 2*time.Second, w.IsReady, "ready with defaulted backoff")
}
