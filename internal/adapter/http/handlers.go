package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/couchcryptid/storm-data-dashboard/internal/dashboard"
	"github.com/couchcryptid/storm-data-dashboard/internal/filter"
	"github.com/couchcryptid/storm-data-dashboard/internal/query"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const heartbeatInterval = 30 * time.Second

// errorResponse carries the error and, when the request still changed
// state, the view that resulted.
type errorResponse struct {
	Error string              `json:"error"`
	View  *dashboard.Snapshot `json:"view,omitempty"`
	Query *query.State        `json:"query,omitempty"`
}

func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.views.Snapshot())
}

// handleEvents streams one server-sent event per recomputation cycle,
// starting with the current snapshot.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// The stream outlives the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	snaps, unsubscribe := s.views.Subscribe()
	defer unsubscribe()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				s.logger.Error("encode view event", "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: view\ndata: %s\n\n", snap.Seq, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			s.logger.Debug("event stream flush failed", "error", err)
			return
		}
	}
}

func (s *Server) handleUpdateFilters(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	snap, err := s.views.UpdateFilters(req.update())
	if err != nil {
		s.writeErrorWithView(w, err, snap)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, snap)
}

func (s *Server) handleResetFilter(w http.ResponseWriter, r *http.Request) {
	field, err := filter.ParseField(r.PathValue("field"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.views.ResetFilter(field))
}

func (s *Server) handleSetDate(w http.ResponseWriter, r *http.Request) {
	var req dateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	from, to, err := req.dates()
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	snap, err := s.views.SetDate(r.Context(), from, to, req.Range)
	if err != nil {
		s.writeErrorWithView(w, err, snap)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSetColorMode(w http.ResponseWriter, r *http.Request) {
	var req colorModeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.views.SetColorMode(req.colorMode()))
}

func (s *Server) handleMarker(w http.ResponseWriter, r *http.Request) {
	popup, err := s.views.MarkerDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, popup)
}

func (s *Server) handleQueryState(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.console.State())
}

// handleUpdateQuery applies the edit toggle before the text, so one request
// can unlock and edit.
func (s *Server) handleUpdateQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	state := s.console.State()
	if req.Editable != nil {
		state = s.console.SetEditable(*req.Editable)
	}
	if req.Text != nil {
		var err error
		if state, err = s.console.SetText(*req.Text); err != nil {
			s.writeErrorWithQuery(w, err, state)
			return
		}
	}
	sharedobs.WriteJSON(w, http.StatusOK, state)
}

func (s *Server) handleRunQuery(w http.ResponseWriter, r *http.Request) {
	exec, err := s.console.Run(r.Context())
	if err != nil {
		s.writeErrorWithQuery(w, err, s.console.State())
		return
	}
	sharedobs.WriteJSON(w, http.StatusAccepted, exec)
}

func (s *Server) handleTogglePanel(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.console.TogglePanel())
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.respondError(w, err, errorResponse{Error: err.Error()})
}

func (s *Server) writeErrorWithView(w http.ResponseWriter, err error, snap dashboard.Snapshot) {
	s.respondError(w, err, errorResponse{Error: err.Error(), View: &snap})
}

func (s *Server) writeErrorWithQuery(w http.ResponseWriter, err error, state query.State) {
	s.respondError(w, err, errorResponse{Error: err.Error(), Query: &state})
}

func (s *Server) respondError(w http.ResponseWriter, err error, body errorResponse) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	sharedobs.WriteJSON(w, status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrUnknownReport):
		return http.StatusNotFound
	case errors.Is(err, filter.ErrInvalidCascade),
		errors.Is(err, dashboard.ErrInvalidRange),
		errors.Is(err, dashboard.ErrSuperseded),
		errors.Is(err, query.ErrBusy),
		errors.Is(err, query.ErrReadOnly):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrNotLoaded):
		return http.StatusServiceUnavailable
	default:
		// Batch loads fail when the query service does.
		return http.StatusBadGateway
	}
}
