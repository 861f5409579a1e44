package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/track-cli/internal/model"
)

// gatedFetch blocks every call until the test closes release.
type gatedFetch struct {
	started chan string
	release chan struct{}
}

func newGatedFetch() *gatedFetch {
	return &gatedFetch{started: make(chan string, 16), release: make(chan struct{})}
}

func (g *gatedFetch) fetch(_ context.Context, id string) (json.RawMessage, error) {
	g.started <- id
	<-g.release
	return payloadFor(id), nil
}

func collect(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, e)
			if e.Type == EventDone {
				return events
			}
		case <-timeout:
			t.Fatal("timed out waiting for events")
			return nil
		}
	}
}

func TestSession_IdleSnapshot(t *testing.T) {
	s := NewSession()
	st := s.Snapshot()
	assert.Equal(t, model.RunStatusIdle, st.Status)
	assert.Empty(t, st.Results)

	// No-ops while idle.
	s.Cancel()
	s.Wait()
}

func TestSession_EmptyInput(t *testing.T) {
	s := NewSession()
	_, err := s.Start(context.Background(), nil, (&fakeFetch{}).fetch, Options{})
	assert.True(t, errors.Is(err, ErrEmptyInput))
	assert.Equal(t, model.RunStatusIdle, s.Snapshot().Status)
}

func TestSession_RunToCompletion(t *testing.T) {
	s := NewSession()
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	f := &fakeFetch{fail: map[string]error{"B": errUpstream}}
	var seen []string
	id, err := s.Start(context.Background(), []string{"A", "B", "C"}, f.fetch, Options{
		OnResult: func(r model.TrackingResult) { seen = append(seen, r.Identifier) },
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got := collect(t, events)
	s.Wait()

	var types []EventType
	for _, e := range got {
		assert.Equal(t, id, e.RunID)
		types = append(types, e.Type)
	}
	assert.Equal(t, []EventType{
		EventResult, EventProgress,
		EventResult, EventProgress,
		EventResult, EventProgress,
		EventDone,
	}, types)

	done := got[len(got)-1].State
	require.NotNil(t, done)
	assert.Equal(t, model.RunStatusCompleted, done.Status)
	assert.Len(t, done.Results, 3)

	st := s.Snapshot()
	assert.Equal(t, id, st.ID)
	assert.Equal(t, model.RunStatusCompleted, st.Status)
	assert.Equal(t, 3, st.Cursor)
	assert.InDelta(t, 1.0, st.Progress, 1e-9)
	assert.False(t, st.Cancelled)
	require.Len(t, st.Results, 3)
	assert.Nil(t, st.Results[1].Payload)
	assert.Equal(t, []string{"A", "B", "C"}, seen)
}

func TestSession_Cancel(t *testing.T) {
	s := NewSession()
	g := newGatedFetch()

	_, err := s.Start(context.Background(), []string{"1", "2", "3", "4", "5"}, g.fetch, Options{})
	require.NoError(t, err)

	assert.Equal(t, "1", <-g.started)
	s.Cancel()
	close(g.release)
	s.Wait()

	st := s.Snapshot()
	assert.Equal(t, model.RunStatusCancelled, st.Status)
	assert.True(t, st.Cancelled)
	assert.Len(t, st.Results, 1)
	assert.InDelta(t, 0.2, st.Progress, 1e-9)
}

func TestSession_StartReplacesActiveRun(t *testing.T) {
	s := NewSession()
	g := newGatedFetch()

	first, err := s.Start(context.Background(), []string{"1", "2", "3"}, g.fetch, Options{})
	require.NoError(t, err)
	assert.Equal(t, "1", <-g.started)

	secondID := make(chan string, 1)
	go func() {
		id, _ := s.Start(context.Background(), []string{"X"}, (&fakeFetch{}).fetch, Options{})
		secondID <- id
	}()

	// The first run's in-flight fetch must finish before the new run starts.
	close(g.release)
	second := <-secondID
	s.Wait()

	assert.NotEqual(t, first, second)
	st := s.Snapshot()
	assert.Equal(t, second, st.ID)
	assert.Equal(t, model.RunStatusCompleted, st.Status)
	assert.Equal(t, []string{"X"}, st.Identifiers)
	require.Len(t, st.Results, 1)
	assert.Equal(t, "X", st.Results[0].Identifier)
}

func TestSession_SnapshotIsCopy(t *testing.T) {
	s := NewSession()
	_, err := s.Start(context.Background(), []string{"A"}, (&fakeFetch{}).fetch, Options{})
	require.NoError(t, err)
	s.Wait()

	st := s.Snapshot()
	require.Len(t, st.Results, 1)
	st.Results[0].Identifier = "mutated"
	st.Identifiers[0] = "mutated"

	again := s.Snapshot()
	assert.Equal(t, "A", again.Results[0].Identifier)
	assert.Equal(t, "A", again.Identifiers[0])
}

func TestSession_ParentContextCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSession()
	g := newGatedFetch()

	_, err := s.Start(ctx, []string{"1", "2"}, g.fetch, Options{})
	require.NoError(t, err)
	<-g.started
	cancel()
	close(g.release)
	s.Wait()

	assert.Equal(t, model.RunStatusCancelled, s.Snapshot().Status)
}

func TestSession_SlowSubscriberDropped(t *testing.T) {
	s := NewSession()
	slow, unsubscribe := s.Subscribe()
	defer unsubscribe()

	ids := make([]string, eventBuffer)
	for i := range ids {
		ids[i] = string(rune('a' + i%26))
	}
	_, err := s.Start(context.Background(), ids, (&fakeFetch{}).fetch, Options{})
	require.NoError(t, err)
	s.Wait()

	// Two events per identifier overflow the buffer; the channel is closed
	// after the buffered events are drained.
	var n int
	for range slow {
		n++
	}
	assert.Equal(t, eventBuffer, n)
	assert.Equal(t, model.RunStatusCompleted, s.Snapshot().Status)
}

func TestSession_Unsubscribe(t *testing.T) {
	s := NewSession()
	ch, unsubscribe := s.Subscribe()
	unsubscribe()
	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok)
}

func TestSessions_Registry(t *testing.T) {
	r := NewSessions()
	a := r.Get("a")
	assert.Same(t, a, r.Get("a"))
	assert.NotSame(t, a, r.Get("b"))
	assert.Equal(t, 2, r.Len())

	_, ok := r.Lookup("c")
	assert.False(t, ok)
	got, ok := r.Lookup("a")
	assert.True(t, ok)
	assert.Same(t, a, got)
}

func TestSessions_Release(t *testing.T) {
	r := NewSessions()

	assert.False(t, r.Release("missing"))

	r.Get("idle")
	assert.True(t, r.Release("idle"))
	assert.Equal(t, 0, r.Len())

	_, unsubscribe := r.Get("watched").Subscribe()
	assert.False(t, r.Release("watched"))
	unsubscribe()
	assert.True(t, r.Release("watched"))

	used := r.Get("used")
	_, err := used.Start(context.Background(), []string{"1"}, func(context.Context, string) (json.RawMessage, error) {
		return nil, nil
	}, Options{})
	require.NoError(t, err)
	used.Wait()
	assert.False(t, r.Release("used"))
	assert.Equal(t, 1, r.Len())
}

func TestSessions_Shutdown(t *testing.T) {
	r := NewSessions()
	started := make(chan struct{}, 1)
	fetch := func(fctx context.Context, _ string) (json.RawMessage, error) {
		started <- struct{}{}
		<-fctx.Done()
		return nil, fctx.Err()
	}

	_, err := r.Get("a").Start(context.Background(), []string{"1", "2"}, fetch, Options{AbortInFlight: true})
	require.NoError(t, err)
	<-started

	r.Shutdown()

	st := r.Get("a").Snapshot()
	assert.Equal(t, model.RunStatusCancelled, st.Status)
	require.Len(t, st.Results, 1)
	assert.Nil(t, st.Results[0].Payload)
}
