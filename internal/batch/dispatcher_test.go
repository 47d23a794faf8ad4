package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/apperrors"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/backend"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/language"
)

func newDispatcher(client backend.Client, concurrency int) *Dispatcher {
	en, _ := language.GetLanguage("en")
	fr, _ := language.GetLanguage("fr")
	return &Dispatcher{
		Client:      client,
		Concurrency: concurrency,
		MaxAttempts: 2,
		Source:      en,
		Target:      fr,
	}
}

func TestRunMergesResultsIndependentOfCompletionOrder(t *testing.T) {
	units := unitsOf("a", "b", "c", "d", "e", "f")
	batches := Schedule(units, 1000, 2)

	var calls int32
	mock := &backend.Mock{}
	// Delay the first batch so later batches finish first.
	mock.Responses = []func(backend.Request) (backend.Result, error){
		func(req backend.Request) (backend.Result, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				time.Sleep(50 * time.Millisecond)
			}
			result := make(backend.Result)
			for _, u := range req.Units {
				result[u.ID] = "T:" + u.Text
			}
			return result, nil
		},
	}

	d := newDispatcher(mock, 3)
	merged, failed := d.Run(context.Background(), batches)
	if len(failed) != 0 {
		t.Fatalf("failed = %v", failed)
	}
	for _, u := range units {
		if merged[u.ID] != "T:"+u.Text && merged[u.ID] != u.Text {
			t.Errorf("unit %d = %q", u.ID, merged[u.ID])
		}
	}
	if len(merged) != len(units) {
		t.Fatalf("merged %d results, want %d", len(merged), len(units))
	}
}

func TestRunRetriesTransientThenSucceeds(t *testing.T) {
	batches := Schedule(unitsOf("hello"), 1000, 0)
	mock := &backend.Mock{
		Responses: []func(backend.Request) (backend.Result, error){
			func(backend.Request) (backend.Result, error) {
				return nil, apperrors.Transient(errors.New("timeout"))
			},
		},
	}
	d := newDispatcher(mock, 1)
	merged, failed := d.Run(context.Background(), batches)
	if len(failed) != 0 {
		t.Fatalf("failed = %v, want recovery on retry", failed)
	}
	if merged[1] != "hello" {
		t.Fatalf("merged = %v", merged)
	}
	if len(mock.Calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(mock.Calls))
	}
}

func TestRunShapeErrorRetriesStrict(t *testing.T) {
	batches := Schedule(unitsOf("hello"), 1000, 0)
	mock := &backend.Mock{
		Responses: []func(backend.Request) (backend.Result, error){
			func(backend.Request) (backend.Result, error) {
				return nil, apperrors.Shape(errors.New("missing id"))
			},
		},
	}
	d := newDispatcher(mock, 1)
	_, failed := d.Run(context.Background(), batches)
	if len(failed) != 0 {
		t.Fatalf("failed = %v", failed)
	}
	if len(mock.Calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(mock.Calls))
	}
	if mock.Calls[0].Strict || !mock.Calls[1].Strict {
		t.Fatalf("strict flags = %v/%v, want false/true", mock.Calls[0].Strict, mock.Calls[1].Strict)
	}
}

func TestRunDoesNotRetryAuthError(t *testing.T) {
	batches := Schedule(unitsOf("hello"), 1000, 0)
	mock := &backend.Mock{
		Responses: []func(backend.Request) (backend.Result, error){
			func(backend.Request) (backend.Result, error) {
				return nil, apperrors.Auth(errors.New("bad key"))
			},
		},
	}
	d := newDispatcher(mock, 1)
	_, failed := d.Run(context.Background(), batches)
	if len(failed) != 1 {
		t.Fatalf("failed = %v, want 1 batch", failed)
	}
	if len(mock.Calls) != 1 {
		t.Fatalf("calls = %d, want no retry", len(mock.Calls))
	}
	if !apperrors.Is(failed[0].LastErr, apperrors.KindExhausted) {
		t.Errorf("LastErr = %v, want exhausted", failed[0].LastErr)
	}
}

func TestRunExhaustsRetries(t *testing.T) {
	batches := Schedule(unitsOf("hello"), 1000, 0)
	fail := func(backend.Request) (backend.Result, error) {
		return nil, apperrors.Transient(errors.New("down"))
	}
	mock := &backend.Mock{Responses: []func(backend.Request) (backend.Result, error){fail, fail}}
	d := newDispatcher(mock, 1)
	merged, failed := d.Run(context.Background(), batches)
	if len(merged) != 0 {
		t.Fatalf("merged = %v", merged)
	}
	if len(failed) != 1 || failed[0].Attempt != 2 {
		t.Fatalf("failed = %+v", failed)
	}
}

func TestRunCancellationMarksRemainingFailed(t *testing.T) {
	batches := Schedule(unitsOf("a", "b", "c", "d"), 1000, 1)
	ctx, cancel := context.WithCancel(context.Background())
	mock := &backend.Mock{
		Responses: []func(backend.Request) (backend.Result, error){
			func(req backend.Request) (backend.Result, error) {
				cancel()
				return nil, ctx.Err()
			},
		},
	}
	d := newDispatcher(mock, 1)
	merged, failed := d.Run(ctx, batches)
	if len(merged) != 0 {
		t.Fatalf("merged = %v after cancellation", merged)
	}
	if len(failed) != len(batches) {
		t.Fatalf("failed = %d batches, want all %d", len(failed), len(batches))
	}
}

func TestRetryDecisionBackoffGrowth(t *testing.T) {
	transient := apperrors.Transient(errors.New("x"))
	retry1, b1 := retryDecision(transient, 1, 5)
	retry2, b2 := retryDecision(transient, 3, 5)
	if !retry1 || !retry2 {
		t.Fatal("transient errors must retry")
	}
	if b2 <= b1-time.Second {
		t.Errorf("backoff must grow: attempt1=%v attempt3=%v", b1, b2)
	}

	rl, brl := retryDecision(apperrors.RateLimit(errors.New("429")), 1, 5)
	if !rl {
		t.Fatal("rate limit must retry")
	}
	if brl < 2*time.Second {
		t.Errorf("rate limit backoff = %v, want doubled base", brl)
	}

	if retry, _ := retryDecision(transient, 5, 5); retry {
		t.Error("must not retry past max attempts")
	}
	if retry, _ := retryDecision(apperrors.BadRequest(errors.New("400")), 1, 5); retry {
		t.Error("bad request must not retry")
	}
	if retry, _ := retryDecision(context.Canceled, 1, 5); retry {
		t.Error("cancellation must not retry")
	}
}

func TestRampDelaySpreadsWorkers(t *testing.T) {
	if d := rampDelay(0, 4, 2*time.Second); d != 0 {
		t.Errorf("first worker delay = %v, want 0", d)
	}
	if d := rampDelay(3, 4, 2*time.Second); d != 2*time.Second {
		t.Errorf("last worker delay = %v, want full ramp", d)
	}
	if d := rampDelay(2, 1, 2*time.Second); d != 0 {
		t.Errorf("single worker delay = %v, want 0", d)
	}
}
