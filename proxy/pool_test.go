package proxy

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/models"
)

// fakeSource returns a fixed candidate list and counts fetches.
type fakeSource struct {
	mu         sync.Mutex
	candidates []models.ProxyCandidate
	fetches    int
}

func (f *fakeSource) Fetch(context.Context) []models.ProxyCandidate {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	out := make([]models.ProxyCandidate, len(f.candidates))
	copy(out, f.candidates)
	return out
}

// fakeProber returns scripted latencies and records which keys were probed.
type fakeProber struct {
	mu        sync.Mutex
	latencies map[string]time.Duration // missing key = unreachable
	probed    map[string]int
}

func (f *fakeProber) Probe(_ context.Context, cand models.ProxyCandidate, _ time.Duration) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.probed == nil {
		f.probed = make(map[string]int)
	}
	f.probed[cand.Key()]++
	lat, ok := f.latencies[cand.Key()]
	if !ok {
		return 0, fmt.Errorf("unreachable")
	}
	return lat, nil
}

func (f *fakeProber) probeCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probed[key]
}

func candidates(n int) []models.ProxyCandidate {
	out := make([]models.ProxyCandidate, n)
	for i := range out {
		out[i] = models.ProxyCandidate{
			Host: fmt.Sprintf("10.0.0.%d", i+1), Port: 8080, Protocol: "http", Source: "test",
		}
	}
	return out
}

func allReachable(cands []models.ProxyCandidate, base time.Duration) map[string]time.Duration {
	m := make(map[string]time.Duration, len(cands))
	for i, c := range cands {
		m[c.Key()] = base + time.Duration(i)*time.Millisecond
	}
	return m
}

func TestEnsureMinimum_FillsFromEmpty(t *testing.T) {
	cands := candidates(3)
	src := &fakeSource{candidates: cands}
	prober := &fakeProber{latencies: allReachable(cands, 10*time.Millisecond)}
	pool := NewPool(src, prober, nil, PoolConfig{})

	pool.EnsureMinimum(context.Background(), 1)

	if got := pool.Count(); got != 3 {
		t.Errorf("Count() = %d, want 3 (all reachable candidates merged)", got)
	}
}

func TestEnsureMinimum_NoopAtThreshold(t *testing.T) {
	cands := candidates(3)
	src := &fakeSource{candidates: cands}
	prober := &fakeProber{latencies: allReachable(cands, time.Millisecond)}
	pool := NewPool(src, prober, nil, PoolConfig{})

	pool.EnsureMinimum(context.Background(), 2)
	pool.EnsureMinimum(context.Background(), 2) // already >= 2

	if src.fetches != 1 {
		t.Errorf("second call above threshold should not fetch, fetches = %d", src.fetches)
	}
}

func TestEnsureMinimum_Idempotent(t *testing.T) {
	cands := candidates(4)
	src := &fakeSource{candidates: cands}
	prober := &fakeProber{latencies: allReachable(cands, time.Millisecond)}
	pool := NewPool(src, prober, nil, PoolConfig{})

	pool.EnsureMinimum(context.Background(), 10)
	first := pool.Count()
	pool.EnsureMinimum(context.Background(), 10)

	if pool.Count() != first {
		t.Errorf("second run added duplicates: %d -> %d", first, pool.Count())
	}
	for _, c := range cands {
		if n := prober.probeCount(c.Key()); n != 1 {
			t.Errorf("candidate %s probed %d times, want 1", c.Key(), n)
		}
	}
}

func TestEnsureMinimum_FailedProbesExcluded(t *testing.T) {
	cands := candidates(5)
	lat := allReachable(cands[:2], time.Millisecond) // only the first two reachable
	src := &fakeSource{candidates: cands}
	pool := NewPool(src, &fakeProber{latencies: lat}, nil, PoolConfig{})

	pool.EnsureMinimum(context.Background(), 5)

	if got := pool.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}

func TestEnsureMinimum_ConcurrentNoDuplicates(t *testing.T) {
	cands := candidates(20)
	src := &fakeSource{candidates: cands}
	prober := &fakeProber{latencies: allReachable(cands, time.Millisecond)}
	pool := NewPool(src, prober, nil, PoolConfig{ProbeConcurrency: 4})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.EnsureMinimum(context.Background(), 20)
		}()
	}
	wg.Wait()

	if got := pool.Count(); got != 20 {
		t.Errorf("Count() = %d, want 20 (union, deduplicated)", got)
	}

	// Checkout everything and verify no duplicate keys slipped in.
	seen := make(map[string]bool)
	for {
		rec, ok := pool.Checkout()
		if !ok {
			break
		}
		if seen[rec.Key()] {
			t.Errorf("duplicate record checked out: %s", rec.Key())
		}
		seen[rec.Key()] = true
	}
}

func TestCheckout_LatencyOrderDeterministic(t *testing.T) {
	cands := candidates(3)
	lat := map[string]time.Duration{
		cands[0].Key(): 30 * time.Millisecond,
		cands[1].Key(): 10 * time.Millisecond,
		cands[2].Key(): 20 * time.Millisecond,
	}
	src := &fakeSource{candidates: cands}
	pool := NewPool(src, &fakeProber{latencies: lat}, nil, PoolConfig{ProbeConcurrency: 1})

	pool.EnsureMinimum(context.Background(), 3)

	want := []string{cands[1].Key(), cands[2].Key(), cands[0].Key()}
	for i, w := range want {
		rec, ok := pool.Checkout()
		if !ok {
			t.Fatalf("pool empty at checkout %d", i)
		}
		if rec.Key() != w {
			t.Errorf("checkout %d = %s, want %s", i, rec.Key(), w)
		}
	}
}

func TestCheckout_Empty(t *testing.T) {
	pool := NewPool(&fakeSource{}, &fakeProber{}, nil, PoolConfig{})
	if _, ok := pool.Checkout(); ok {
		t.Error("Checkout on empty pool should report emptiness")
	}
}

func TestCheckout_DoesNotBlockDuringReplenish(t *testing.T) {
	cands := candidates(2)
	src := &fakeSource{candidates: cands}
	slow := &blockingProber{started: make(chan struct{}), release: make(chan struct{})}
	pool := NewPool(src, slow, nil, PoolConfig{})

	done := make(chan struct{})
	go func() {
		pool.EnsureMinimum(context.Background(), 2)
		close(done)
	}()
	<-slow.started

	// Replenishment is stuck inside a probe; Checkout must still return
	// promptly because the pool lock is not held across the slow phase.
	checkoutDone := make(chan struct{})
	go func() {
		pool.Checkout()
		pool.Count()
		close(checkoutDone)
	}()

	select {
	case <-checkoutDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Checkout blocked while replenishment was probing")
	}

	close(slow.release)
	<-done
}

// blockingProber blocks every probe until released.
type blockingProber struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (b *blockingProber) Probe(context.Context, models.ProxyCandidate, time.Duration) (time.Duration, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return time.Millisecond, nil
}

func TestReturnAndDiscard(t *testing.T) {
	cands := candidates(2)
	src := &fakeSource{candidates: cands}
	prober := &fakeProber{latencies: allReachable(cands, time.Millisecond)}
	pool := NewPool(src, prober, nil, PoolConfig{})
	pool.EnsureMinimum(context.Background(), 2)

	rec, ok := pool.Checkout()
	if !ok {
		t.Fatal("expected a record")
	}
	if pool.Count() != 1 {
		t.Errorf("after checkout Count() = %d, want 1", pool.Count())
	}

	pool.Return(rec)
	if pool.Count() != 2 {
		t.Errorf("after return Count() = %d, want 2", pool.Count())
	}

	rec2, _ := pool.Checkout()
	pool.Discard(rec2)
	if pool.Count() != 1 {
		t.Errorf("after discard Count() = %d, want 1", pool.Count())
	}

	// A discarded key may be re-validated by a later replenishment.
	pool.EnsureMinimum(context.Background(), 5)
	if pool.Count() != 2 {
		t.Errorf("discarded candidate should be re-addable, Count() = %d, want 2", pool.Count())
	}
}
