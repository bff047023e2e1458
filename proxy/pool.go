package proxy

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/models"
)

// PoolConfig controls pool replenishment behavior.
type PoolConfig struct {
	// ProbeTimeout bounds a single candidate probe.
	ProbeTimeout time.Duration // default: 8s

	// ProbeConcurrency bounds how many candidates are probed at once.
	ProbeConcurrency int // default: 20
}

// Pool owns the working set of validated proxies: deduplicated by
// (host, port), ranked by latency, persisted on change, and replenished
// without blocking consumers.
//
// Locking discipline: the mutex is held only for in-memory bookkeeping.
// Fetching candidates and probing them — the operations that touch the
// network — always run with the lock released.
type Pool struct {
	source Source
	prober Prober
	store  *Store // nil disables persistence
	cfg    PoolConfig

	mu       sync.Mutex
	working  []*models.ProxyRecord // latency ascending, insertion-stable
	known    map[string]struct{}   // keys of working + leased records
	leased   int
	inflight map[string]struct{} // candidates currently being probed
}

// NewPool creates a Pool. store may be nil to disable persistence.
func NewPool(source Source, prober Prober, store *Store, cfg PoolConfig) *Pool {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 8 * time.Second
	}
	if cfg.ProbeConcurrency <= 0 {
		cfg.ProbeConcurrency = 20
	}
	return &Pool{
		source:   source,
		prober:   prober,
		store:    store,
		cfg:      cfg,
		known:    make(map[string]struct{}),
		inflight: make(map[string]struct{}),
	}
}

// Restore merges the persisted working set back into the pool. Records are
// kept in their persisted latency order; duplicates against the current
// set are skipped, so Restore is idempotent.
func (p *Pool) Restore(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	records, err := p.store.Load()
	if err != nil {
		return err
	}

	p.mu.Lock()
	added := p.mergeLocked(records)
	p.mu.Unlock()

	slog.Info("proxy pool restored", "persisted", len(records), "added", added)
	return nil
}

// Checkout leases the best-ranked (lowest latency) proxy, removing it from
// the available set. It touches only in-memory state and returns
// immediately; ok is false when the pool is empty. The record's key stays
// reserved so concurrent replenishment cannot re-add a duplicate while the
// lease is out.
func (p *Pool) Checkout() (*models.ProxyRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.working) == 0 {
		return nil, false
	}
	rec := p.working[0]
	p.working = p.working[1:]
	p.leased++
	return rec, true
}

// Return gives a leased record back to the available set.
func (p *Pool) Return(rec *models.ProxyRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.known[rec.Key()]; !ok {
		// Already discarded; drop silently.
		return
	}
	p.leased--
	p.insertLocked(rec)
}

// Discard drops a leased record entirely (e.g. the session runner rejected
// it). The key is released so a later replenishment may re-validate it.
func (p *Pool) Discard(rec *models.ProxyRecord) {
	p.mu.Lock()
	delete(p.known, rec.Key())
	p.leased--
	p.mu.Unlock()

	if p.store != nil {
		if err := p.store.Delete(rec.Host, rec.Port); err != nil {
			slog.Warn("failed to delete discarded proxy", "proxy", rec.Key(), "error", err)
		}
	}
}

// Count returns the current size of the available working set.
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.working)
}

// Stats returns a snapshot of pool state.
func (p *Pool) Stats() models.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return models.PoolStats{Available: len(p.working), Leased: p.leased}
}

// EnsureMinimum replenishes the pool when the available set is below
// threshold. Per-candidate failures are swallowed; if nothing validates
// the pool simply stays small and Checkout reports emptiness.
//
// The protocol is deliberately two-phase:
//
//  1. short lock: bail out if already at threshold
//  2. no lock:    fetch candidates (network, unbounded time)
//  3. short lock: set-difference against known and in-flight keys
//  4. no lock:    probe only the novel candidates, bounded concurrency
//  5. short lock: merge validated records, re-sort, snapshot for persist
//
// Concurrent callers therefore never serialize on the slow phases and
// never probe the same novel candidate twice; merges are idempotent, so
// the final set equals what a sequential run would produce.
func (p *Pool) EnsureMinimum(ctx context.Context, threshold int) {
	// 1. Fast path.
	p.mu.Lock()
	if len(p.working) >= threshold {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	// 2. Fetch candidates. May take arbitrarily long; no lock held.
	candidates := p.source.Fetch(ctx)
	if len(candidates) == 0 {
		slog.Warn("proxy replenishment: no candidates from sources")
		return
	}

	// 3. Filter to novel candidates and claim them for probing.
	p.mu.Lock()
	novel := make([]models.ProxyCandidate, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		key := c.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := p.known[key]; ok {
			continue
		}
		if _, ok := p.inflight[key]; ok {
			continue
		}
		p.inflight[key] = struct{}{}
		novel = append(novel, c)
	}
	p.mu.Unlock()

	if len(novel) == 0 {
		return
	}

	// Release claims when done, on every path.
	defer func() {
		p.mu.Lock()
		for _, c := range novel {
			delete(p.inflight, c.Key())
		}
		p.mu.Unlock()
	}()

	// 4. Probe the novel candidates; no lock held.
	validated := p.probeAll(ctx, novel)
	if len(validated) == 0 {
		slog.Warn("proxy replenishment: no candidates validated",
			"probed", len(novel))
		return
	}

	// 5. Merge, re-sort, snapshot.
	p.mu.Lock()
	added := p.mergeLocked(validated)
	snapshot := make([]*models.ProxyRecord, len(p.working))
	copy(snapshot, p.working)
	p.mu.Unlock()

	slog.Info("proxy pool replenished",
		"candidates", len(candidates), "probed", len(novel),
		"validated", len(validated), "added", added, "available", len(snapshot))

	// Persisting a snapshot outside the lock is safe: Save is an upsert
	// keyed by (host, port), so overlapping saves from concurrent
	// replenishments converge on the union.
	if p.store != nil && added > 0 {
		if err := p.store.Save(snapshot); err != nil {
			slog.Warn("failed to persist proxy pool", "error", err)
		}
	}
}

// probeAll checks candidates concurrently with bounded parallelism and
// returns the records that passed. Individual probe failures only exclude
// that candidate.
func (p *Pool) probeAll(ctx context.Context, candidates []models.ProxyCandidate) []*models.ProxyRecord {
	var (
		mu        sync.Mutex
		validated []*models.ProxyRecord
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.ProbeConcurrency)

	for _, cand := range candidates {
		cand := cand
		g.Go(func() error {
			latency, err := p.prober.Probe(ctx, cand, p.cfg.ProbeTimeout)
			if err != nil {
				slog.Debug("proxy probe failed", "proxy", cand.Key(), "error", err)
				return nil
			}
			rec := &models.ProxyRecord{
				Host:        cand.Host,
				Port:        cand.Port,
				Protocol:    cand.Protocol,
				Latency:     latency,
				ValidatedAt: time.Now(),
				Source:      cand.Source,
			}
			mu.Lock()
			validated = append(validated, rec)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return validated
}

// mergeLocked adds records not already known and re-sorts the working set.
// Caller must hold p.mu. Returns how many records were added.
func (p *Pool) mergeLocked(records []*models.ProxyRecord) int {
	added := 0
	for _, rec := range records {
		key := rec.Key()
		if _, ok := p.known[key]; ok {
			continue
		}
		p.known[key] = struct{}{}
		p.working = append(p.working, rec)
		added++
	}
	if added > 0 {
		// Stable: equal latencies keep insertion order, so checkout
		// order is deterministic given identical pool state.
		sort.SliceStable(p.working, func(i, j int) bool {
			return p.working[i].Latency < p.working[j].Latency
		})
	}
	return added
}

// insertLocked re-inserts a returned record at the end of its latency
// class, preserving the latency-then-insertion ordering. Caller must hold
// p.mu.
func (p *Pool) insertLocked(rec *models.ProxyRecord) {
	idx := sort.Search(len(p.working), func(i int) bool {
		return p.working[i].Latency > rec.Latency
	})
	p.working = append(p.working, nil)
	copy(p.working[idx+1:], p.working[idx:])
	p.working[idx] = rec
}
