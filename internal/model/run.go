package model

import (
	"encoding/json"
	"time"

	"github.com/sells-group/track-cli/pkg/carrier"
)

// RunStatus represents the current state of a batch tracking run.
type RunStatus string

const (
	RunStatusIdle      RunStatus = "idle"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCancelled RunStatus = "cancelled"
)

// TrackingResult is the outcome of one dispatched identifier.
// Payload is nil when the fetch failed or the carrier had no package data.
type TrackingResult struct {
	Identifier string          `json:"identifier"`
	Payload    json.RawMessage `json:"payload"`
	Kind       carrier.Kind    `json:"kind"`
	Err        string          `json:"error,omitempty"`
}

// Failed reports whether the fetch for this identifier errored.
func (r TrackingResult) Failed() bool {
	return r.Err != ""
}

// Progress is the completion fraction of a run after each identifier.
type Progress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Fraction  float64 `json:"fraction"`
}

// RunState is a point-in-time view of a batch run.
type RunState struct {
	ID          string           `json:"id"`
	Status      RunStatus        `json:"status"`
	Identifiers []string         `json:"identifiers"`
	Cursor      int              `json:"cursor"`
	Cancelled   bool             `json:"cancelled"`
	Progress    float64          `json:"progress"`
	Elapsed     time.Duration    `json:"-"`
	ElapsedSecs float64          `json:"elapsed_seconds"`
	Results     []TrackingResult `json:"results"`
	StartedAt   time.Time        `json:"started_at"`
}

// Clone returns a deep copy safe to hand to readers outside the run.
func (s RunState) Clone() RunState {
	out := s
	out.Identifiers = append([]string(nil), s.Identifiers...)
	out.Results = make([]TrackingResult, len(s.Results))
	for i, r := range s.Results {
		out.Results[i] = r
		if r.Payload != nil {
			out.Results[i].Payload = append(json.RawMessage(nil), r.Payload...)
		}
	}
	return out
}
