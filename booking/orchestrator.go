// Package booking drives the retry loop: lease a proxy, run one isolated
// attempt, judge the server-assigned center, and accept, retry, or abandon.
package booking

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/events"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/matcher"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/models"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/proxy"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/session"
)

// Pool is the slice of proxy.Pool the orchestrator needs. Narrowed to an
// interface so tests can drive the loop with a fake pool.
type Pool interface {
	EnsureMinimum(ctx context.Context, threshold int)
	Checkout() (*models.ProxyRecord, bool)
	Return(rec *models.ProxyRecord)
	Discard(rec *models.ProxyRecord)
	Count() int
}

var _ Pool = (*proxy.Pool)(nil)

// Config carries the caller-supplied knobs for one run.
type Config struct {
	// TargetCenter is the exact, case-sensitive center name to accept.
	TargetCenter string

	// MaxAttempts is the retry budget.
	MaxAttempts int

	// PoolThreshold is the minimum pool size ensured before each attempt.
	PoolThreshold int

	// AttemptTimeout bounds one attempt (open + submit + complete).
	AttemptTimeout time.Duration

	// RetryInterval seeds the exponential backoff between attempts.
	RetryInterval time.Duration
}

// Orchestrator runs the bounded retry loop for one task at a time.
// Multiple Orchestrators may share one Pool and one Sink; each in-flight
// task gets its own instance, so attempts for the same task are strictly
// sequential while different tasks run concurrently.
type Orchestrator struct {
	pool    Pool
	runner  session.Runner
	matcher *matcher.Matcher
	sink    *events.Sink
	cfg     Config
}

// New creates an Orchestrator.
func New(pool Pool, runner session.Runner, m *matcher.Matcher, sink *events.Sink, cfg Config) *Orchestrator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.PoolThreshold < 1 {
		cfg.PoolThreshold = 1
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 90 * time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 2 * time.Second
	}
	return &Orchestrator{pool: pool, runner: runner, matcher: m, sink: sink, cfg: cfg}
}

// Run drives attempts until the target center is assigned, the retry
// budget is exhausted, or ctx is cancelled. Only two outcomes cross this
// boundary: a matched artifact or an abandonment with the attempt count.
// Intermediate failures surface solely through the event sink.
func (o *Orchestrator) Run(ctx context.Context, task *models.Candidate) *models.BookingResult {
	boff := backoff.NewExponentialBackOff()
	boff.InitialInterval = o.cfg.RetryInterval
	boff.RandomizationFactor = 0.3
	boff.MaxInterval = 60 * time.Second

	attempts := 0
	for attempts < o.cfg.MaxAttempts {
		if ctx.Err() != nil {
			o.sink.Warn("run cancelled", fields("attempts", attempts))
			return &models.BookingResult{Matched: false, Attempts: attempts}
		}

		attempts++
		outcome := o.attempt(ctx, task, attempts)

		switch outcome.Kind {
		case models.OutcomeMatched:
			o.sink.Info("booking matched", fields(
				"attempt", attempts, "center", outcome.Assignment.Center))
			return &models.BookingResult{
				Matched:  true,
				Attempts: attempts,
				Center:   o.cfg.TargetCenter,
				Artifact: outcome.Artifact,
			}
		case models.OutcomeNoMatch:
			o.sink.Info("assigned center differs, retrying", fields(
				"attempt", attempts, "center", outcome.Assignment.Center))
		default:
			o.sink.Warn("attempt inconclusive, retrying", fields(
				"attempt", attempts, "reason", outcome.Reason))
		}

		if ctx.Err() != nil {
			o.sink.Warn("run cancelled", fields("attempts", attempts))
			return &models.BookingResult{Matched: false, Attempts: attempts}
		}
		if attempts < o.cfg.MaxAttempts {
			if err := waitBackoff(ctx, boff); err != nil {
				o.sink.Warn("run cancelled during backoff", fields("attempts", attempts))
				return &models.BookingResult{Matched: false, Attempts: attempts}
			}
		}
	}

	o.sink.Warn("retry budget exhausted", fields("attempts", attempts))
	return &models.BookingResult{Matched: false, Attempts: attempts}
}

// attempt runs one full cycle: replenish, lease, isolated session, submit,
// judge. Teardown of the attempt's session and lease is guaranteed on
// every exit path, including panics inside the session layer.
func (o *Orchestrator) attempt(ctx context.Context, task *models.Candidate, n int) models.AttemptOutcome {
	// Replenishment may be slow; it holds no orchestrator state.
	o.pool.EnsureMinimum(ctx, o.cfg.PoolThreshold)

	if ctx.Err() != nil {
		return inconclusive("cancelled before checkout")
	}

	rec, ok := o.pool.Checkout()
	if !ok {
		return inconclusive(models.ErrCodePoolEmpty)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.AttemptTimeout)
	defer cancel()

	handle, err := o.runner.Open(attemptCtx, rec)
	if err != nil {
		// The proxy was rejected by the session layer; drop it from the
		// pool like a failed probe.
		o.pool.Discard(rec)
		o.sink.Warn("session open failed", fields("attempt", n, "proxy", rec.Key(), "error", err.Error()))
		return inconclusive(models.ErrCodeSessionOpen)
	}

	discard := false
	defer func() {
		_ = o.runner.Close(handle)
		if discard {
			o.pool.Discard(rec)
		} else {
			o.pool.Return(rec)
		}
	}()

	o.sink.Info("attempt started", fields("attempt", n, "proxy", rec.Key()))

	records, err := o.runner.Submit(attemptCtx, handle, task)
	if err != nil {
		discard = true
		o.sink.Warn("submission failed", fields("attempt", n, "proxy", rec.Key(), "error", err.Error()))
		return inconclusive(models.ErrCodeSubmission)
	}

	assignment := o.matcher.Scan(records)
	if assignment == nil {
		return inconclusive("no assignment captured")
	}

	if !assignment.Matches(o.cfg.TargetCenter) {
		return models.AttemptOutcome{Kind: models.OutcomeNoMatch, Assignment: assignment}
	}

	artifact, err := o.runner.Complete(attemptCtx, handle, task)
	if err != nil {
		// The match was real but completion failed mid-exchange; the
		// assignment is gone, so this costs a retry like any transport
		// failure.
		o.sink.Error("completion failed after match", fields("attempt", n, "error", err.Error()))
		return inconclusive(models.ErrCodeCompletion)
	}

	return models.AttemptOutcome{
		Kind:       models.OutcomeMatched,
		Assignment: assignment,
		Artifact:   artifact,
	}
}

func inconclusive(reason string) models.AttemptOutcome {
	return models.AttemptOutcome{Kind: models.OutcomeInconclusive, Reason: reason}
}

// waitBackoff sleeps for the next backoff interval or until ctx is done.
func waitBackoff(ctx context.Context, boff *backoff.ExponentialBackOff) error {
	wait := boff.NextBackOff()
	if wait == backoff.Stop {
		wait = boff.MaxInterval
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

func fields(kv ...any) map[string]any {
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			out[k] = kv[i+1]
		}
	}
	return out
}
