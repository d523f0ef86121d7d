package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JonMunkholm/sermonimport/internal/core"
	"github.com/JonMunkholm/sermonimport/internal/sermonimport"
)

// batchRequest is the body of check and import requests.
type batchRequest struct {
	Sermons json.RawMessage `json:"sermons"`
}

type resultsResponse struct {
	Results []sermonimport.ResultRow `json:"results"`
}

type eventsResponse struct {
	Events []sermonimport.EventRecord `json:"events"`
}

// decodeRows reads {"sermons": [...]} from the request body. A missing or
// non-array sermons value is reported as core.ErrNoRows.
func (s *Server) decodeRows(w http.ResponseWriter, r *http.Request) ([]sermonimport.ImportRow, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxBodySize)

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("request body too large: limit %d bytes", maxErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty body", core.ErrNoRows)
		}
		return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}

	raw := bytes.TrimSpace(req.Sermons)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: sermons must be an array", core.ErrNoRows)
	}

	var rows []sermonimport.ImportRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if rows == nil {
		rows = []sermonimport.ImportRow{}
	}
	return rows, nil
}

// handleCheck classifies a batch without writing anything.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	msgs := s.service.Messages()

	rows, err := s.decodeRows(w, r)
	if err != nil {
		s.respondError(w, r, err, msgs.CheckFailed)
		return
	}

	results, err := s.service.Check(r.Context(), rows)
	if err != nil {
		s.respondError(w, r, err, msgs.CheckFailed)
		return
	}

	writeJSON(w, r, http.StatusOK, resultsResponse{Results: results})
}

// handleImport checks a batch and applies the resulting writes.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	msgs := s.service.Messages()

	rows, err := s.decodeRows(w, r)
	if err != nil {
		s.respondError(w, r, err, msgs.ImportFailed)
		return
	}

	results, err := s.service.Import(r.Context(), rows)
	if err != nil {
		s.respondError(w, r, err, msgs.ImportFailed)
		return
	}

	writeJSON(w, r, http.StatusOK, resultsResponse{Results: results})
}

// handleEvents lists persisted events in ?from=&to= (ISO-8601, optional).
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := s.service.ResolveRange(q.Get("from"), q.Get("to"), time.Now())
	if err != nil {
		s.respondError(w, r, err, "")
		return
	}

	events, err := s.service.Events(r.Context(), from, to)
	if err != nil {
		s.respondError(w, r, err, "")
		return
	}

	writeJSON(w, r, http.StatusOK, eventsResponse{Events: events})
}

// handleCalendar serves persisted events as an iCalendar feed.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := s.service.ResolveRange(q.Get("from"), q.Get("to"), time.Now())
	if err != nil {
		s.respondError(w, r, err, "")
		return
	}

	feed, err := s.service.CalendarFeed(r.Context(), from, to)
	if err != nil {
		s.respondError(w, r, err, "")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, feed)
}

type healthResponse struct {
	Status  string                   `json:"status"`
	Error   string                   `json:"error,omitempty"`
	Imports core.ImportLimiterStatus `json:"imports"`
}

// handleHealth reports whether the store is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Imports: s.service.ImportLimiterStatus()}
	status := http.StatusOK

	if err := s.service.Ping(r.Context()); err != nil {
		resp.Status = "unavailable"
		resp.Error = core.MapError(err).Message
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, r, status, resp)
}
