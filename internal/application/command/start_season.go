package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/strike-hub/strike-league-hub/internal/domain/player"
	"github.com/strike-hub/strike-league-hub/internal/domain/season"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// START SEASON COMMAND
// Closes the active season and opens a new one. Prior data is kept; every
// player's cumulative season statistics and decay eligibility start fresh.
// ══════════════════════════════════════════════════════════════════════════════

// StartSeasonCommand contains the data to start a season.
type StartSeasonCommand struct {
	Name          string
	AdminID       string
	CorrelationID string
}

// Validate validates the command.
func (c StartSeasonCommand) Validate() error {
	if c.Name == "" {
		return errors.New("start_season: name is required")
	}
	if c.AdminID == "" {
		return errors.New("start_season: admin id is required")
	}
	return nil
}

// StartSeasonResult contains the result of starting a season.
type StartSeasonResult struct {
	SeasonID     string
	Name         string
	PlayersReset int
}

// StartSeasonHandler handles the StartSeasonCommand.
type StartSeasonHandler struct {
	seasonRepo season.Repository
	playerRepo player.Repository
	publisher  shared.EventPublisher
}

// NewStartSeasonHandler creates a new StartSeasonHandler.
func NewStartSeasonHandler(
	seasonRepo season.Repository,
	playerRepo player.Repository,
	publisher shared.EventPublisher,
) *StartSeasonHandler {
	return &StartSeasonHandler{
		seasonRepo: seasonRepo,
		playerRepo: playerRepo,
		publisher:  publisher,
	}
}

// Handle executes the start season command.
func (h *StartSeasonHandler) Handle(ctx context.Context, cmd StartSeasonCommand) (*StartSeasonResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("start_season: validation failed: %w", err)
	}

	// Close the current season if one is active. A missing active season is
	// fine, this may be the first.
	current, err := h.seasonRepo.GetActive(ctx)
	if err == nil {
		current.Close()
		if err := h.seasonRepo.Update(ctx, current); err != nil {
			return nil, fmt.Errorf("start_season: failed to close season: %w", err)
		}
	} else if !errors.Is(err, shared.ErrNoActiveSeason) {
		return nil, fmt.Errorf("start_season: %w", err)
	}

	szn, err := season.NewSeason(uuid.NewString(), cmd.Name)
	if err != nil {
		return nil, err
	}
	if err := h.seasonRepo.Create(ctx, szn); err != nil {
		return nil, fmt.Errorf("start_season: failed to create season: %w", err)
	}

	players, err := h.playerRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("start_season: failed to load players: %w", err)
	}
	for _, p := range players {
		p.StartSeason()
		if err := h.playerRepo.Update(ctx, p); err != nil {
			return nil, fmt.Errorf("start_season: failed to reset player %s: %w", p.ID, err)
		}
	}

	event := shared.NewSeasonStartedEvent(szn.ID, szn.Name, szn.StartedAt)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &StartSeasonResult{
		SeasonID:     szn.ID,
		Name:         szn.Name,
		PlayersReset: len(players),
	}, nil
}
