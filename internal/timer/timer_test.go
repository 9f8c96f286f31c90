package timer

import (
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"
)

func testManager() (*Manager, func() []func()) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	var mu sync.Mutex
	var queue []func()
	post := func(f func()) {
		mu.Lock()
		queue = append(queue, f)
		mu.Unlock()
	}
	drain := func() []func() {
		mu.Lock()
		defer mu.Unlock()
		q := queue
		queue = nil
		return q
	}
	return New(logger, post), drain
}

func TestSingleFiresOnce(t *testing.T) {
	m, drain := testManager()
	var n int
	var mu sync.Mutex
	m.Create(Single, 10*time.Millisecond, func() { mu.Lock(); n++; mu.Unlock() })

	time.Sleep(60 * time.Millisecond)
	for _, f := range drain() {
		f()
	}

	mu.Lock()
	defer mu.Unlock()
	if n != 1 {
		t.Fatalf("expected exactly 1 fire, got %d", n)
	}
	if m.Count() != 0 {
		t.Fatalf("expected single timer to be gone after firing, count=%d", m.Count())
	}
}

func TestStopPreventsFire(t *testing.T) {
	m, drain := testManager()
	var n int
	id := m.Create(Single, 20*time.Millisecond, func() { n++ })
	m.Stop(id)

	time.Sleep(50 * time.Millisecond)
	for _, f := range drain() {
		f()
	}
	if n != 0 {
		t.Fatalf("expected stopped timer not to fire, got n=%d", n)
	}
}

func TestPeriodicFiresMultipleTimes(t *testing.T) {
	m, drain := testManager()
	var mu sync.Mutex
	var n int
	id := m.Create(Periodic, 15*time.Millisecond, func() { mu.Lock(); n++; mu.Unlock() })
	defer m.Stop(id)

	time.Sleep(70 * time.Millisecond)
	for _, f := range drain() {
		f()
	}

	mu.Lock()
	defer mu.Unlock()
	if n < 2 {
		t.Fatalf("expected periodic timer to fire at least twice, got %d", n)
	}
}
