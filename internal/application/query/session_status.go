package query

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/strike-hub/strike-league-hub/internal/application/registry"
	"github.com/strike-hub/strike-league-hub/internal/domain/session"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION STATUS QUERY
// Live view of the group's current session, read under its exclusion scope
// so a concurrent submission cannot tear the counts.
// ══════════════════════════════════════════════════════════════════════════════

// SessionStatusQuery contains the parameters for a status request.
type SessionStatusQuery struct {
	Group string
}

// Validate validates the query.
func (q SessionStatusQuery) Validate() error {
	if q.Group == "" {
		return errors.New("group is required")
	}
	return nil
}

// ParticipantStatusDTO is one player's progress within the session.
type ParticipantStatusDTO struct {
	PlayerID  string `json:"player_id"`
	Attending bool   `json:"attending"`
	Game1     *int   `json:"game_1,omitempty"`
	Game2     *int   `json:"game_2,omitempty"`
	Complete  bool   `json:"complete"`
}

// SessionStatusResult is the session view.
type SessionStatusResult struct {
	SessionID    string                 `json:"session_id"`
	State        session.State          `json:"state"`
	Attendees    int                    `json:"attendees"`
	Complete     int                    `json:"complete"`
	Pending      []string               `json:"pending"`
	Participants []ParticipantStatusDTO `json:"participants"`
	ScheduledFor time.Time              `json:"scheduled_for"`
}

// SessionStatusHandler handles session status queries.
type SessionStatusHandler struct {
	registry *registry.Registry
}

// NewSessionStatusHandler creates a new SessionStatusHandler.
func NewSessionStatusHandler(reg *registry.Registry) *SessionStatusHandler {
	return &SessionStatusHandler{registry: reg}
}

// Handle executes the session status query.
func (h *SessionStatusHandler) Handle(_ context.Context, q SessionStatusQuery) (*SessionStatusResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "SessionStatus", shared.ErrValidation, err.Error(), err)
	}

	var snap session.Snapshot
	var pending []string
	err := h.registry.WithSession(q.Group, func(s *session.Session) error {
		snap = s.Snapshot()
		pending = s.PendingPlayers()
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &SessionStatusResult{
		SessionID:    snap.ID,
		State:        snap.State,
		Pending:      pending,
		ScheduledFor: snap.ScheduledFor,
	}

	ids := make([]string, 0, len(snap.CheckIns))
	for id := range snap.CheckIns {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		attending := snap.CheckIns[id]
		dto := ParticipantStatusDTO{PlayerID: id, Attending: attending}
		if sub, ok := snap.Submissions[id]; ok {
			if sub.Game1Set {
				g1 := sub.Game1
				dto.Game1 = &g1
			}
			if sub.Game2Set {
				g2 := sub.Game2
				dto.Game2 = &g2
			}
			dto.Complete = sub.Complete()
		}
		if attending {
			result.Attendees++
		}
		if dto.Complete {
			result.Complete++
		}
		result.Participants = append(result.Participants, dto)
	}

	return result, nil
}
