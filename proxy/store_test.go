package proxy

import (
	"context"
	"testing"
	"time"

	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("OpenStore(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func record(host string, port int, latency time.Duration) *models.ProxyRecord {
	return &models.ProxyRecord{
		Host: host, Port: port, Protocol: "http",
		Latency: latency, ValidatedAt: time.Now(), Source: "test",
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	in := []*models.ProxyRecord{
		record("10.0.0.2", 8080, 50*time.Millisecond),
		record("10.0.0.1", 3128, 20*time.Millisecond),
	}
	if err := s.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Load returned %d records, want 2", len(out))
	}
	// Ordered by latency ascending.
	if out[0].Key() != "10.0.0.1:3128" || out[1].Key() != "10.0.0.2:8080" {
		t.Errorf("unexpected order: %s, %s", out[0].Key(), out[1].Key())
	}
	if out[0].Latency != 20*time.Millisecond {
		t.Errorf("latency = %v, want 20ms", out[0].Latency)
	}
}

func TestStore_SaveIsUpsert(t *testing.T) {
	s := openTestStore(t)

	if err := s.Save([]*models.ProxyRecord{record("10.0.0.1", 8080, 30*time.Millisecond)}); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	// Same key, new latency: must replace, not duplicate.
	if err := s.Save([]*models.ProxyRecord{record("10.0.0.1", 8080, 10*time.Millisecond)}); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	out, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("upsert produced %d rows, want 1", len(out))
	}
	if out[0].Latency != 10*time.Millisecond {
		t.Errorf("latency = %v, want updated 10ms", out[0].Latency)
	}
}

func TestStore_Delete(t *testing.T) {
	s := openTestStore(t)

	if err := s.Save([]*models.ProxyRecord{record("10.0.0.1", 8080, time.Millisecond)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete("10.0.0.1", 8080); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	out, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("record survived delete: %d rows", len(out))
	}
}

func TestPool_RestoreFromStore(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save([]*models.ProxyRecord{
		record("10.0.0.1", 8080, 40*time.Millisecond),
		record("10.0.0.2", 8080, 10*time.Millisecond),
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	pool := NewPool(&fakeSource{}, &fakeProber{}, s, PoolConfig{})
	if err := pool.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if pool.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", pool.Count())
	}

	// Restore twice must not duplicate.
	if err := pool.Restore(context.Background()); err != nil {
		t.Fatalf("second Restore: %v", err)
	}
	if pool.Count() != 2 {
		t.Errorf("second Restore duplicated records: Count() = %d", pool.Count())
	}

	rec, _ := pool.Checkout()
	if rec.Key() != "10.0.0.2:8080" {
		t.Errorf("best-ranked after restore = %s, want 10.0.0.2:8080", rec.Key())
	}
}
