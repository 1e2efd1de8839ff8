package http

import (
	"encoding/json"
	"net/http"

	"github.com/strike-hub/strike-league-hub/internal/application/command"
	"github.com/strike-hub/strike-league-hub/internal/domain/player"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMMAND HANDLERS (CQRS write side)
// All mutating session operations go through the command layer, which
// serializes access per group. Handlers here only decode, delegate and map.
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody decodes a JSON request body, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body is not valid JSON: "+err.Error())
		return false
	}
	return true
}

// ─────────────────────────────────────────────────────────────────────────────
// Players & Seasons
// ─────────────────────────────────────────────────────────────────────────────

type registerPlayerRequest struct {
	ChatID      int64  `json:"chat_id"`
	DisplayName string `json:"display_name"`
	Division    int    `json:"division,omitempty"`
}

func (s *Server) handleRegisterPlayer(w http.ResponseWriter, r *http.Request) {
	var req registerPlayerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.RegisterPlayerHandler.Handle(r.Context(), command.RegisterPlayerCommand{
		ChatID:        player.ChatID(req.ChatID),
		DisplayName:   req.DisplayName,
		Division:      player.Division(req.Division),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type startSeasonRequest struct {
	Name    string `json:"name"`
	AdminID string `json:"admin_id"`
}

func (s *Server) handleStartSeason(w http.ResponseWriter, r *http.Request) {
	var req startSeasonRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.StartSeasonHandler.Handle(r.Context(), command.StartSeasonCommand{
		Name:          req.Name,
		AdminID:       req.AdminID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// ─────────────────────────────────────────────────────────────────────────────
// Session lifecycle
// ─────────────────────────────────────────────────────────────────────────────

type openCheckInRequest struct {
	EventMultiplier float64 `json:"event_multiplier,omitempty"`
}

func (s *Server) handleOpenCheckIn(w http.ResponseWriter, r *http.Request) {
	group := r.PathValue("group")
	var req openCheckInRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.OpenCheckInHandler.Handle(r.Context(), command.OpenCheckInCommand{
		Group:           group,
		EventMultiplier: req.EventMultiplier,
		CorrelationID:   getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type toggleCheckInRequest struct {
	ChatID    int64 `json:"chat_id"`
	Attending bool  `json:"attending"`
}

func (s *Server) handleToggleCheckIn(w http.ResponseWriter, r *http.Request) {
	group := r.PathValue("group")
	var req toggleCheckInRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.ToggleCheckInHandler.Handle(r.Context(), command.ToggleCheckInCommand{
		Group:         group,
		ChatID:        player.ChatID(req.ChatID),
		Attending:     req.Attending,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type submitScoreRequest struct {
	ChatID int64 `json:"chat_id"`
	Score  int   `json:"score"`
}

func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	group := r.PathValue("group")
	var req submitScoreRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.SubmitScoreHandler.Handle(r.Context(), command.SubmitScoreCommand{
		Group:         group,
		ChatID:        player.ChatID(req.ChatID),
		Score:         req.Score,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type editScoreRequest struct {
	ChatID    int64 `json:"chat_id"`
	GameIndex int   `json:"game_index"`
	NewScore  int   `json:"new_score"`
}

func (s *Server) handleEditScore(w http.ResponseWriter, r *http.Request) {
	group := r.PathValue("group")
	var req editScoreRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.EditScoreHandler.Handle(r.Context(), command.EditScoreCommand{
		Group:         group,
		ChatID:        player.ChatID(req.ChatID),
		GameIndex:     req.GameIndex,
		NewScore:      req.NewScore,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type correctScoreRequest struct {
	AdminID      string `json:"admin_id"`
	ChatID       int64  `json:"chat_id"`
	GameIndex    int    `json:"game_index"`
	NewScore     int    `json:"new_score"`
	ConfirmToken string `json:"confirm_token,omitempty"`
}

// handleCorrectScore stages a post-reveal correction; a second call with
// the returned confirm token applies it.
func (s *Server) handleCorrectScore(w http.ResponseWriter, r *http.Request) {
	group := r.PathValue("group")
	var req correctScoreRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.CorrectScoreHandler.Handle(r.Context(), command.CorrectScoreCommand{
		Group:         group,
		AdminID:       req.AdminID,
		ChatID:        player.ChatID(req.ChatID),
		GameIndex:     req.GameIndex,
		NewScore:      req.NewScore,
		ConfirmToken:  req.ConfirmToken,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if result.Staged {
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}

type revealSessionRequest struct {
	Force bool `json:"force,omitempty"`
}

func (s *Server) handleRevealSession(w http.ResponseWriter, r *http.Request) {
	group := r.PathValue("group")
	var req revealSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.RevealSessionHandler.Handle(r.Context(), command.RevealSessionCommand{
		Group:         group,
		Force:         req.Force,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type cancelSessionRequest struct {
	AdminID string `json:"admin_id"`
	Reason  string `json:"reason,omitempty"`
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	group := r.PathValue("group")
	var req cancelSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.CancelSessionHandler.Handle(r.Context(), command.CancelSessionCommand{
		Group:         group,
		AdminID:       req.AdminID,
		Reason:        req.Reason,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
