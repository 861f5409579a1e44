package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/track-cli/pkg/carrier"
)

func TestRunStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status RunStatus
		want   string
	}{
		{RunStatusIdle, "idle"},
		{RunStatusRunning, "running"},
		{RunStatusCompleted, "completed"},
		{RunStatusCancelled, "cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
		})
	}
}

func TestTrackingResult_NullPayloadJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(TrackingResult{Identifier: "1Z0000000000000001", Kind: carrier.KindStatus, Err: "boom"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"identifier":"1Z0000000000000001","payload":null,"kind":"status","error":"boom"}`, string(b))
}

func TestTrackingResult_Failed(t *testing.T) {
	t.Parallel()

	assert.False(t, TrackingResult{Identifier: "a", Kind: carrier.KindNoData}.Failed())
	assert.True(t, TrackingResult{Identifier: "a", Err: "x"}.Failed())
}

func TestRunState_CloneIsDeep(t *testing.T) {
	t.Parallel()

	orig := RunState{
		ID:          "run-1",
		Identifiers: []string{"a", "b"},
		Results: []TrackingResult{
			{Identifier: "a", Payload: json.RawMessage(`{"x":1}`)},
		},
	}

	c := orig.Clone()
	c.Identifiers[0] = "changed"
	c.Results[0].Payload[2] = 'y'
	c.Results = append(c.Results, TrackingResult{Identifier: "b"})

	assert.Equal(t, "a", orig.Identifiers[0])
	assert.Equal(t, `{"x":1}`, string(orig.Results[0].Payload))
	assert.Len(t, orig.Results, 1)
}
