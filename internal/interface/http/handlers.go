package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/strike-hub/strike-league-hub/internal/application/query"
	"github.com/strike-hub/strike-league-hub/internal/domain/player"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Resource not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "strike-league-hub",
		"status":  "ok",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"uptime": s.Uptime().String(),
	})
}

// handleLive is the liveness probe. Process is up, nothing else is checked.
func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleReady is the readiness probe. Fails when any backing component
// is unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	components := make(map[string]string, len(s.deps.ReadinessChecks))
	ready := true
	for name, check := range s.deps.ReadinessChecks {
		if err := check(ctx); err != nil {
			components[name] = "unavailable"
			ready = false
			continue
		}
		components[name] = "ok"
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{
		"status":     state,
		"components": components,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// API v1 HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetStandings(w http.ResponseWriter, r *http.Request) {
	q := query.StandingsQuery{
		Division: player.Division(getQueryParamInt(r, "division", 0)),
		Limit:    getQueryParamInt(r, "limit", 0),
	}

	result, err := s.deps.StandingsHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetDivisionStandings(w http.ResponseWriter, r *http.Request) {
	division, err := strconv.Atoi(r.PathValue("division"))
	if err != nil || division < 1 {
		writeJSONError(w, http.StatusBadRequest, "invalid_division", "Division must be a positive integer")
		return
	}

	q := query.StandingsQuery{
		Division: player.Division(division),
		Limit:    getQueryParamInt(r, "limit", 0),
	}

	result, err := s.deps.StandingsHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetSessionStatus(w http.ResponseWriter, r *http.Request) {
	group := r.PathValue("group")
	if group == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_group", "Group is required")
		return
	}

	result, err := s.deps.SessionStatusHandler.Handle(r.Context(), query.SessionStatusQuery{Group: group})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Jobs == nil {
		writeJSONError(w, http.StatusNotFound, "not_found", "Scheduler is not enabled")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs": s.deps.Jobs.ListJobs(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(s.deps.MetricsGatherer, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain error categories onto HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrValueOutOfRange):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, shared.ErrAlreadyExists),
		errors.Is(err, shared.ErrConflict),
		errors.Is(err, shared.ErrInvalidState),
		errors.Is(err, shared.ErrStateTransition):
		writeJSONError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, shared.ErrPrecondition):
		writeJSONError(w, http.StatusUnprocessableEntity, "precondition_failed", err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
