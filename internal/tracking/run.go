// Package tracking runs batches of carrier lookups: one identifier at a time,
// in input order, with a fixed pause between requests and cooperative
// cancellation.
package tracking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/track-cli/internal/model"
	"github.com/sells-group/track-cli/pkg/carrier"
)

// DefaultDelay is the pause between consecutive lookups.
const DefaultDelay = 200 * time.Millisecond

// ErrEmptyInput is returned when a run is requested with no identifiers.
var ErrEmptyInput = eris.New("tracking: no identifiers to track")

// FetchFunc looks up one identifier. A nil payload with a nil error means
// the carrier had no package data.
type FetchFunc func(ctx context.Context, identifier string) (json.RawMessage, error)

// Observer receives per-item and per-run measurements.
type Observer interface {
	RunStarted()
	ItemDone(kind carrier.Kind, d time.Duration)
	RunDone(status model.RunStatus, elapsed time.Duration)
}

// Options configures a run. The zero value runs without pauses or callbacks.
type Options struct {
	// Delay is the pause after each lookup except the last.
	Delay time.Duration
	// AbortInFlight passes the run context to fetch so cancellation aborts
	// the request in progress. By default an in-flight request finishes.
	AbortInFlight bool

	OnResult   func(model.TrackingResult)
	OnProgress func(model.Progress)
	Observer   Observer
	Now        func() time.Time
}

func (o Options) withDefaults() Options {
	if o.OnResult == nil {
		o.OnResult = func(model.TrackingResult) {}
	}
	if o.OnProgress == nil {
		o.OnProgress = func(model.Progress) {}
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Outcome summarizes a finished run.
type Outcome struct {
	Results   []model.TrackingResult
	Elapsed   time.Duration
	Cancelled bool
}

// Status returns the terminal run status.
func (o *Outcome) Status() model.RunStatus {
	if o.Cancelled {
		return model.RunStatusCancelled
	}
	return model.RunStatusCompleted
}

// Run fetches every identifier in order. Per-item failures are recorded as
// results with a nil payload and never abort the run. Cancellation is checked
// before each identifier and cuts the pause short; identifiers not yet
// dispatched produce no result.
func Run(ctx context.Context, ids []string, fetch FetchFunc, opts Options) (*Outcome, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyInput
	}
	opts = opts.withDefaults()

	start := opts.Now()
	total := len(ids)
	opts.Observer.RunStarted()

	zap.L().Info("tracking: run started",
		zap.Int("identifiers", total),
		zap.Duration("delay", opts.Delay),
	)

	fetchCtx := context.WithoutCancel(ctx)
	if opts.AbortInFlight {
		fetchCtx = ctx
	}

	results := make([]model.TrackingResult, 0, total)
	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}

		r := fetchOne(fetchCtx, id, fetch, opts)
		results = append(results, r)
		opts.OnResult(r)

		completed := i + 1
		opts.OnProgress(model.Progress{
			Completed: completed,
			Total:     total,
			Fraction:  float64(completed) / float64(total),
		})

		if completed < total {
			pause(ctx, opts.Delay)
		}
	}

	out := &Outcome{
		Results:   results,
		Elapsed:   opts.Now().Sub(start),
		Cancelled: len(results) < total,
	}
	opts.Observer.RunDone(out.Status(), out.Elapsed)

	zap.L().Info("tracking: run finished",
		zap.String("status", string(out.Status())),
		zap.Int("results", len(results)),
		zap.Int("identifiers", total),
		zap.Duration("elapsed", out.Elapsed),
	)
	return out, nil
}

func fetchOne(ctx context.Context, id string, fetch FetchFunc, opts Options) model.TrackingResult {
	began := opts.Now()
	payload, err := fetch(ctx, id)
	d := opts.Now().Sub(began)

	r := model.TrackingResult{Identifier: id, Payload: payload}
	switch {
	case err != nil:
		r.Payload = nil
		r.Kind = carrier.Classify(err)
		r.Err = err.Error()
		zap.L().Warn("tracking: fetch failed",
			zap.String("identifier", id),
			zap.String("kind", string(r.Kind)),
			zap.Bool("transient", carrier.Transient(err)),
			zap.Error(err),
		)
	case payload == nil:
		r.Kind = carrier.KindNoData
	default:
		r.Kind = carrier.KindNone
	}

	opts.Observer.ItemDone(r.Kind, d)
	return r
}

// pause waits for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

type nopObserver struct{}

func (nopObserver) RunStarted()                            {}
func (nopObserver) ItemDone(carrier.Kind, time.Duration)   {}
func (nopObserver) RunDone(model.RunStatus, time.Duration) {}
