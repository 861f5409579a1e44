package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/track-cli/internal/export"
	"github.com/sells-group/track-cli/internal/extract"
	"github.com/sells-group/track-cli/internal/model"
	"github.com/sells-group/track-cli/internal/normalize"
	"github.com/sells-group/track-cli/internal/tracking"
	"github.com/sells-group/track-cli/pkg/carrier"
)

// maxUploadBytes leaves room for multipart framing around the file.
const maxUploadBytes = extract.MaxFileBytes + 1<<20

// retryAfterSecs is advertised on lookups that failed transiently.
const retryAfterSecs = "5"

type extractRequest struct {
	Text string `json:"text"`
}

type runResponse struct {
	RunID       string   `json:"run_id"`
	Identifiers []string `json:"identifiers"`
}

type currentRunResponse struct {
	State   model.RunState `json:"state"`
	Columns []string       `json:"columns"`
	Rows    [][]string     `json:"rows"`
}

type shipmentResponse struct {
	Found      bool                   `json:"found"`
	Record     model.NormalizedRecord `json:"record"`
	Columns    []string               `json:"columns"`
	Row        []string               `json:"row"`
	Activities []model.Activity       `json:"activities"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	ids, ok := s.readIdentifiers(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"identifiers": ids})
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	ids, ok := s.readIdentifiers(w, r)
	if !ok {
		return
	}

	runID, err := s.session(r).Start(s.ctx, ids, s.deps.Carrier.Track, s.runOptions())
	if err != nil {
		if errors.Is(err, tracking.ErrEmptyInput) {
			writeError(w, http.StatusBadRequest, "no_identifiers", err.Error())
			return
		}
		zap.L().Error("server: start run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "could not start run")
		return
	}

	writeJSON(w, http.StatusAccepted, runResponse{RunID: runID, Identifiers: ids})
}

func (s *Server) handleCurrentRun(w http.ResponseWriter, r *http.Request) {
	st := s.existing(r).Snapshot()
	rows := make([][]string, 0, len(st.Results))
	for _, rec := range normalize.Records(st.Results) {
		rows = append(rows, normalize.DisplayRow(rec))
	}
	writeJSON(w, http.StatusOK, currentRunResponse{
		State:   st,
		Columns: normalize.Columns,
		Rows:    rows,
	})
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	sess := s.existing(r)
	sess.Cancel()
	writeJSON(w, http.StatusOK, map[string]model.RunStatus{"status": sess.Snapshot().Status})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	st := s.existing(r).Snapshot()
	data, err := export.Bytes(normalize.Records(st.Results), export.WithSheetName(s.cfg.SheetName))
	if err != nil {
		if errors.Is(err, export.ErrNoData) {
			writeError(w, http.StatusConflict, "no_data", "no results to export")
			return
		}
		zap.L().Error("server: export", zap.String("run_id", st.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "export failed")
		return
	}

	name := export.FileName(time.Now())
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleShipment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "identifier")
	if !extract.Valid(id) {
		writeError(w, http.StatusBadRequest, "invalid_identifier", "not a tracking number: "+id)
		return
	}

	payload, err := s.deps.Carrier.Track(r.Context(), id)
	if err != nil {
		kind := carrier.Classify(err)
		transient := carrier.Transient(err)
		zap.L().Warn("server: shipment lookup failed",
			zap.String("identifier", id),
			zap.String("kind", string(kind)),
			zap.Bool("transient", transient),
			zap.Error(err),
		)
		if transient {
			w.Header().Set("Retry-After", retryAfterSecs)
		}
		writeError(w, http.StatusBadGateway, string(kind), "carrier lookup failed")
		return
	}

	rec := normalize.Record(model.TrackingResult{Identifier: id, Payload: payload})
	writeJSON(w, http.StatusOK, shipmentResponse{
		Found:      payload != nil,
		Record:     rec,
		Columns:    normalize.Columns,
		Row:        normalize.DisplayRow(rec),
		Activities: normalize.Activities(payload),
	})
}

// readIdentifiers extracts identifiers from a JSON {"text": ...} body or a
// multipart "file" upload. It writes the error response itself and reports
// whether the caller should continue.
func (s *Server) readIdentifiers(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var (
		ids []string
		err error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		ids, err = readUpload(r)
	} else {
		var req extractRequest
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
			err = decodeErr
		} else {
			ids, err = extract.Text(req.Text)
		}
	}
	if err == nil {
		return ids, true
	}

	var tooLarge *http.MaxBytesError
	var extractErr *extract.ExtractionError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", "request body too large")
	case errors.Is(err, extract.ErrNoIdentifiers):
		writeError(w, http.StatusBadRequest, "no_identifiers", err.Error())
	case errors.As(err, &extractErr):
		writeError(w, http.StatusBadRequest, "extraction_failed", extractErr.Error())
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
	}
	return nil, false
}

func readUpload(r *http.Request) ([]string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return extract.File(header.Filename, file)
}
