package batch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/apperrors"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/backend"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/language"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/logger"
)

// State of one batch as reported to the progress callback.
type State int

const (
	StateStarted State = iota
	StateRetrying
	StateCompleted
	StateFailed
	StateCanceled
)

// Progress is emitted on every batch state change.
type Progress struct {
	BatchIndex   int
	TotalBatches int
	Attempt      int
	State        State
	Error        error
}

// Dispatcher runs batches against one backend client with a bounded worker
// pool. Workers start staggered and share a request rate limit.
type Dispatcher struct {
	Client      backend.Client
	Concurrency int
	MaxAttempts int
	// QPS caps request starts across all workers. Zero disables the limit.
	QPS float64
	// RampUp staggers worker starts across this window.
	RampUp time.Duration

	Source      language.Language
	Target      language.Language
	Note        string
	Temperature float64

	OnProgress func(Progress)
}

const defaultMaxAttempts = 3

// Defaults applied by the pipeline when the flags leave them unset.
const (
	DefaultQPS    = 3
	DefaultRampUp = 2 * time.Second
)

// Run dispatches every batch and merges the per-unit results. Completion
// order does not matter: results are keyed by unit id. Returns the merged
// results and the batches that failed all attempts.
func (d *Dispatcher) Run(ctx context.Context, batches []*Batch) (backend.Result, []*Batch) {
	concurrency := d.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	maxAttempts := d.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	var limiter *rate.Limiter
	if d.QPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(d.QPS), 1)
	}

	merged := make(backend.Result)
	var failed []*Batch
	var mu sync.Mutex

	jobs := make(chan *Batch, len(batches))
	for _, b := range batches {
		jobs <- b
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			if delay := rampDelay(worker, concurrency, d.RampUp); delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			for b := range jobs {
				if ctx.Err() != nil {
					return
				}
				result, err := d.runBatch(ctx, b, limiter, maxAttempts, len(batches))
				mu.Lock()
				if err != nil {
					b.LastErr = err
					failed = append(failed, b)
				} else {
					for id, text := range result {
						merged[id] = text
					}
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	// Batches never picked up (cancellation) count as failed too.
	mu.Lock()
	picked := make(map[int]bool, len(merged))
	for id := range merged {
		picked[id] = true
	}
	for _, b := range batches {
		if b.LastErr != nil {
			continue
		}
		done := true
		for _, u := range b.Units {
			if !picked[u.ID] {
				done = false
				break
			}
		}
		if !done {
			b.LastErr = apperrors.Exhausted(ctx.Err())
			failed = append(failed, b)
		}
	}
	mu.Unlock()

	if ctx.Err() != nil {
		d.report(Progress{BatchIndex: -1, TotalBatches: len(batches), State: StateCanceled, Error: ctx.Err()})
	}
	return merged, failed
}

// runBatch drives one batch through its attempts. Shape failures flip the
// request to strict mode so the re-prompt reiterates the exact id list.
func (d *Dispatcher) runBatch(ctx context.Context, b *Batch, limiter *rate.Limiter, maxAttempts, total int) (backend.Result, error) {
	req := backend.Request{
		Units:       b.Units,
		Source:      d.Source,
		Target:      d.Target,
		Note:        d.Note,
		Temperature: d.Temperature,
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		b.Attempt = attempt
		state := StateStarted
		if attempt > 1 {
			state = StateRetrying
		}
		d.report(Progress{BatchIndex: b.Index, TotalBatches: total, Attempt: attempt, State: state, Error: err})

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, apperrors.Exhausted(err)
			}
		}

		var result backend.Result
		result, err = d.Client.Translate(ctx, req)
		if err == nil {
			d.report(Progress{BatchIndex: b.Index, TotalBatches: total, Attempt: attempt, State: StateCompleted})
			return result, nil
		}
		b.LastErr = err
		if apperrors.IsShape(err) {
			req.Strict = true
		}

		retry, backoff := retryDecision(err, attempt, maxAttempts)
		if !retry {
			break
		}
		b.NextRetry = time.Now().Add(backoff)
		select {
		case <-ctx.Done():
			return nil, apperrors.Exhausted(ctx.Err())
		case <-time.After(backoff):
		}
	}

	logger.Error("batch failed", "batch", b.Index, "attempts", b.Attempt, "units", len(b.Units), "error", err)
	d.report(Progress{BatchIndex: b.Index, TotalBatches: total, Attempt: b.Attempt, State: StateFailed, Error: err})
	return nil, apperrors.Exhausted(fmt.Errorf("batch %d failed after %d attempts: %w", b.Index, b.Attempt, err))
}

func (d *Dispatcher) report(p Progress) {
	if d.OnProgress != nil {
		d.OnProgress(p)
	}
}

// retryDecision reports whether another attempt is worthwhile and how long to
// back off. Rate-limit errors back off twice as long.
func retryDecision(err error, attempt, maxAttempts int) (bool, time.Duration) {
	if err == nil || attempt >= maxAttempts {
		return false, 0
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, 0
	}
	if !apperrors.IsRetryable(err) {
		return false, 0
	}
	base := 1 * time.Second
	maxBackoff := 20 * time.Second
	jitterMax := 1 * time.Second

	backoff := base << (attempt - 1)
	if apperrors.IsRateLimit(err) {
		backoff = backoff * 2
	}
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(jitterMax)))
	return true, backoff + jitter
}

func rampDelay(worker, concurrency int, ramp time.Duration) time.Duration {
	if ramp <= 0 || concurrency <= 1 {
		return 0
	}
	return time.Duration(int64(ramp) * int64(worker) / int64(concurrency-1))
}
