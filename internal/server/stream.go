package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sells-group/track-cli/internal/model"
	"github.com/sells-group/track-cli/internal/normalize"
	"github.com/sells-group/track-cli/internal/tracking"
)

const (
	streamSnapshot = "snapshot"
	writeTimeout   = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamMessage is one frame on the run stream. Result frames carry the
// display row so clients never normalize payloads themselves.
type streamMessage struct {
	Type     string                `json:"type"`
	RunID    string                `json:"run_id,omitempty"`
	Result   *model.TrackingResult `json:"result,omitempty"`
	Row      []string              `json:"row,omitempty"`
	Progress *model.Progress       `json:"progress,omitempty"`
	State    *model.RunState       `json:"state,omitempty"`
	Columns  []string              `json:"columns,omitempty"`
}

func fromEvent(e tracking.Event) streamMessage {
	msg := streamMessage{
		Type:     string(e.Type),
		RunID:    e.RunID,
		Result:   e.Result,
		Progress: e.Progress,
		State:    e.State,
	}
	if e.Result != nil {
		msg.Row = normalize.DisplayRow(normalize.Record(*e.Result))
	}
	return msg
}

// handleStream sends the current snapshot, then every run event of the
// caller's session until the client disconnects or falls too far behind.
// A session opened only to be watched is released again on disconnect.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Debug("server: stream upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	sess := s.deps.Sessions.Get(id)
	defer s.deps.Sessions.Release(id)
	events, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	st := sess.Snapshot()
	if err := write(ws, streamMessage{Type: streamSnapshot, RunID: st.ID, State: &st, Columns: normalize.Columns}); err != nil {
		return
	}

	for {
		select {
		case <-gone:
			return
		case <-s.ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				zap.L().Warn("server: stream subscriber dropped", zap.String("run_id", st.ID))
				return
			}
			if err := write(ws, fromEvent(e)); err != nil {
				return
			}
		}
	}
}

func write(ws *websocket.Conn, msg streamMessage) error {
	if err := ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return ws.WriteJSON(msg)
}
