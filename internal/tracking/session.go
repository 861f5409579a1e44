package tracking

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/track-cli/internal/model"
)

// EventType identifies a session event.
type EventType string

const (
	EventResult   EventType = "result"
	EventProgress EventType = "progress"
	EventDone     EventType = "done"
)

// Event is one incremental update from a session's active run.
type Event struct {
	Type     EventType             `json:"type"`
	RunID    string                `json:"run_id"`
	Result   *model.TrackingResult `json:"result,omitempty"`
	Progress *model.Progress       `json:"progress,omitempty"`
	State    *model.RunState       `json:"state,omitempty"`
}

const eventBuffer = 64

// Session owns at most one active run and the state of the latest run.
// Run state is written only by the run goroutine; readers get copies.
type Session struct {
	startMu sync.Mutex

	mu     sync.Mutex
	state  model.RunState
	cancel context.CancelFunc
	done   chan struct{}
	subs   map[chan Event]struct{}
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{
		state: model.RunState{Status: model.RunStatusIdle},
		subs:  make(map[chan Event]struct{}),
	}
}

// Start cancels any active run, waits for it to finish, then starts a new
// run over ids in the background. The run lives until ctx is done, it is
// cancelled, or every identifier has been dispatched.
func (s *Session) Start(ctx context.Context, ids []string, fetch FetchFunc, opts Options) (string, error) {
	if len(ids) == 0 {
		return "", ErrEmptyInput
	}

	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.Cancel()
	s.Wait()

	runCtx, cancel := context.WithCancel(ctx)
	id := uuid.NewString()
	done := make(chan struct{})

	onResult, onProgress := opts.OnResult, opts.OnProgress
	opts.OnResult = func(r model.TrackingResult) {
		s.mu.Lock()
		s.state.Results = append(s.state.Results, r)
		s.state.Cursor = len(s.state.Results)
		s.publish(Event{Type: EventResult, RunID: id, Result: &r})
		s.mu.Unlock()
		if onResult != nil {
			onResult(r)
		}
	}
	opts.OnProgress = func(p model.Progress) {
		s.mu.Lock()
		s.state.Progress = p.Fraction
		s.publish(Event{Type: EventProgress, RunID: id, Progress: &p})
		s.mu.Unlock()
		if onProgress != nil {
			onProgress(p)
		}
	}

	s.mu.Lock()
	s.state = model.RunState{
		ID:          id,
		Status:      model.RunStatusRunning,
		Identifiers: append([]string(nil), ids...),
		Results:     make([]model.TrackingResult, 0, len(ids)),
		StartedAt:   time.Now(),
	}
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		out, err := Run(runCtx, ids, fetch, opts)
		if err != nil {
			zap.L().Error("tracking: session run failed", zap.String("run_id", id), zap.Error(err))
			out = &Outcome{Cancelled: true}
		}

		s.mu.Lock()
		s.state.Status = out.Status()
		s.state.Cancelled = out.Cancelled
		s.state.Elapsed = out.Elapsed
		s.state.ElapsedSecs = seconds(out.Elapsed)
		final := s.state.Clone()
		s.publish(Event{Type: EventDone, RunID: id, State: &final})
		s.mu.Unlock()
	}()

	return id, nil
}

// Cancel stops the active run at its next iteration boundary. It is a no-op
// when no run is active.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil && s.state.Status == model.RunStatusRunning {
		s.cancel()
	}
}

// Wait blocks until the active run, if any, has finished.
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Snapshot returns a deep copy of the current run state.
func (s *Session) Snapshot() model.RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state.Clone()
	if st.Status == model.RunStatusRunning {
		st.Elapsed = time.Since(st.StartedAt)
		st.ElapsedSecs = seconds(st.Elapsed)
	}
	return st
}

func (s *Session) unused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Status == model.RunStatusIdle && len(s.subs) == 0
}

// Subscribe returns a channel of events for every subsequent run and a
// function that ends the subscription. A subscriber that falls a full buffer
// behind is dropped and its channel closed.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, eventBuffer)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

// publish must be called with s.mu held.
func (s *Session) publish(e Event) {
	for ch := range s.subs {
		select {
		case ch <- e:
		default:
			delete(s.subs, ch)
			close(ch)
			zap.L().Warn("tracking: dropped slow subscriber", zap.String("run_id", e.RunID))
		}
	}
}

func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}

// Sessions is a registry of sessions keyed by client session ID.
type Sessions struct {
	mu sync.Mutex
	m  map[string]*Session
}

// NewSessions returns an empty registry.
func NewSessions() *Sessions {
	return &Sessions{m: make(map[string]*Session)}
}

// Get returns the session for id, creating it on first use.
func (r *Sessions) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok {
		s = NewSession()
		r.m[id] = s
	}
	return s
}

// Lookup returns the session for id without creating one.
func (r *Sessions) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	return s, ok
}

// Release drops the session for id when it has never run and nobody is
// subscribed to it. It reports whether the session was dropped.
func (r *Sessions) Release(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok || !s.unused() {
		return false
	}
	delete(r.m, id)
	return true
}

// Len returns the number of known sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}

// Shutdown cancels every active run and waits for all of them to finish.
func (r *Sessions) Shutdown() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.m))
	for _, s := range r.m {
		all = append(all, s)
	}
	r.mu.Unlock()

	for _, s := range all {
		s.Cancel()
	}
	for _, s := range all {
		s.Wait()
	}
}
