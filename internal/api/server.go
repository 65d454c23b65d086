// Package api is the thin JSON surface over the pipeline and review
// services. Handlers translate wire shapes and status codes; all decisions
// stay in the service layer.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"intentgate/internal/domain"
	"intentgate/internal/repository"
	"intentgate/internal/service"
)

// Server holds the handler dependencies.
type Server struct {
	pipeline   service.PipelineService
	elevations service.ElevationService
	ledger     repository.LedgerRepo
	log        *slog.Logger
}

// NewServer creates the API server. A nil logger discards.
func NewServer(pipeline service.PipelineService, elevations service.ElevationService, ledger repository.LedgerRepo, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Server{pipeline: pipeline, elevations: elevations, ledger: ledger, log: log}
}

// Routes builds the mux. Method is part of each pattern, so a wrong method
// gets 405 from the mux itself.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/process", s.handleProcess)
	mux.HandleFunc("GET /api/v1/ledger/stats", s.handleLedgerStats)
	mux.HandleFunc("GET /api/v1/ledger/{id}", s.handleLedgerGet)
	mux.HandleFunc("GET /api/v1/ledger", s.handleLedgerList)
	mux.HandleFunc("GET /api/v1/elevations", s.handleElevationsList)
	mux.HandleFunc("POST /api/v1/elevations/{id}/decision", s.handleElevationDecision)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

type processRequest struct {
	UserID      string   `json:"user_id"`
	SessionID   string   `json:"session_id"`
	Query       string   `json:"query"`
	ContentRefs []string `json:"content_refs,omitempty"`
}

type processResponse struct {
	Status        domain.RequestStatus     `json:"status"`
	LedgerEntryID string                   `json:"ledger_entry_id"`
	VotingResult  *domain.VotingResult     `json:"voting_result,omitempty"`
	Comparison    *domain.ComparisonResult `json:"comparison,omitempty"`
	Elevation     *domain.ElevationEvent   `json:"elevation,omitempty"`
	TrustedIntent *domain.TrustedIntent    `json:"trusted_intent,omitempty"`
	Output        *domain.ProcessingOutput `json:"output,omitempty"`
	Error         string                   `json:"error,omitempty"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" || req.SessionID == "" || req.Query == "" {
		writeError(w, http.StatusBadRequest, "user_id, session_id and query are required")
		return
	}

	ip := clientIP(r)
	ua := r.UserAgent()
	result, err := s.pipeline.Process(r.Context(), service.ProcessRequest{
		UserID:      req.UserID,
		SessionID:   req.SessionID,
		Query:       req.Query,
		ContentRefs: req.ContentRefs,
		IPAddress:   &ip,
		UserAgent:   &ua,
	})
	if err != nil && result == nil {
		s.log.Error("pipeline aborted", "error", err, "user_id", req.UserID)
		writeError(w, http.StatusInternalServerError, "pipeline error")
		return
	}

	resp := processResponse{
		Status:        result.Status,
		LedgerEntryID: result.LedgerEntryID,
		VotingResult:  result.VotingResult,
		Comparison:    result.Comparison,
		Elevation:     result.Elevation,
		TrustedIntent: result.TrustedIntent,
		Output:        result.Output,
	}
	if err != nil {
		// Ledgered failure (e.g. generation): the outcome is reportable
		// even though the request did not complete.
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLedgerGet(w http.ResponseWriter, r *http.Request) {
	entry, err := s.ledger.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleLedgerList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	ctx := r.Context()
	var entries []*domain.LedgerEntry
	switch {
	case q.Get("blocked") == "true":
		entries, err = s.ledger.ListBlocked(ctx, limit, offset)
	case q.Get("session") != "":
		entries, err = s.ledger.ListBySession(ctx, q.Get("session"))
	case q.Get("from") != "" || q.Get("to") != "":
		filter := repository.LedgerFilter{UserID: q.Get("user"), Limit: limit, Offset: offset}
		if filter.From, err = timeParam(q.Get("from")); err != nil {
			writeError(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		if filter.To, err = timeParam(q.Get("to")); err != nil {
			writeError(w, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		entries, err = s.ledger.ListByTimeRange(ctx, filter)
	case q.Get("user") != "":
		entries, err = s.ledger.ListByUser(ctx, q.Get("user"), limit, offset)
	case q.Get("elevated") == "true":
		entries, err = s.ledger.ListWithElevation(ctx, limit, offset)
	default:
		// A full unfiltered scan is deliberately not offered.
		writeError(w, http.StatusBadRequest, "one of user, session, blocked, elevated, from/to is required")
		return
	}
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	if entries == nil {
		entries = []*domain.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleLedgerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledger.Stats(r.Context())
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleElevationsList(w http.ResponseWriter, r *http.Request) {
	pending, err := s.elevations.ListPending(r.Context())
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	if pending == nil {
		pending = []*domain.ElevationEvent{}
	}
	writeJSON(w, http.StatusOK, pending)
}

type decisionRequest struct {
	ApproverID string  `json:"approver_id"`
	Approve    bool    `json:"approve"`
	Notes      *string `json:"notes,omitempty"`
}

type decisionResponse struct {
	Event         *domain.ElevationEvent   `json:"event"`
	LedgerEntryID string                   `json:"ledger_entry_id,omitempty"`
	TrustedIntent *domain.TrustedIntent    `json:"trusted_intent,omitempty"`
	Output        *domain.ProcessingOutput `json:"output,omitempty"`
	Error         string                   `json:"error,omitempty"`
}

func (s *Server) handleElevationDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ApproverID == "" {
		writeError(w, http.StatusBadRequest, "approver_id is required")
		return
	}

	result, err := s.elevations.Resolve(r.Context(), r.PathValue("id"), req.ApproverID, req.Approve, req.Notes)
	if err != nil && result == nil {
		s.writeRepoError(w, err)
		return
	}

	resp := decisionResponse{
		Event:         result.Event,
		LedgerEntryID: result.LedgerEntryID,
		TrustedIntent: result.TrustedIntent,
		Output:        result.Output,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ledger.Stats(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeRepoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrAlreadyResolved):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	return n, nil
}

func timeParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
