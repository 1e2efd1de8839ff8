package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/strike-hub/strike-league-hub/internal/domain/player"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER PLAYER COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RegisterPlayerCommand contains the data to register a league member.
type RegisterPlayerCommand struct {
	ChatID        player.ChatID
	DisplayName   string
	Division      player.Division
	CorrelationID string
}

// Validate validates the command.
func (c RegisterPlayerCommand) Validate() error {
	if !c.ChatID.IsValid() {
		return errors.New("register_player: chat id is required")
	}
	if c.DisplayName == "" {
		return errors.New("register_player: display name is required")
	}
	return nil
}

// RegisterPlayerResult contains the result of a registration.
type RegisterPlayerResult struct {
	PlayerID string
	Division player.Division
	Rating   player.Rating
}

// RegisterPlayerHandler handles the RegisterPlayerCommand.
type RegisterPlayerHandler struct {
	playerRepo player.Repository
	publisher  shared.EventPublisher

	// defaultDivision is where new players start when the command does not
	// place them explicitly.
	defaultDivision player.Division
}

// NewRegisterPlayerHandler creates a new RegisterPlayerHandler.
func NewRegisterPlayerHandler(playerRepo player.Repository, publisher shared.EventPublisher, defaultDivision player.Division) *RegisterPlayerHandler {
	if !defaultDivision.IsValid() {
		defaultDivision = 2
	}
	return &RegisterPlayerHandler{
		playerRepo:      playerRepo,
		publisher:       publisher,
		defaultDivision: defaultDivision,
	}
}

// Handle executes the register player command.
func (h *RegisterPlayerHandler) Handle(ctx context.Context, cmd RegisterPlayerCommand) (*RegisterPlayerResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("register_player: validation failed: %w", err)
	}

	exists, err := h.playerRepo.ExistsByChatID(ctx, cmd.ChatID)
	if err != nil {
		return nil, fmt.Errorf("register_player: %w", err)
	}
	if exists {
		return nil, shared.ErrPlayerAlreadyExists
	}

	division := cmd.Division
	if !division.IsValid() {
		division = h.defaultDivision
	}

	p, err := player.NewPlayer(player.NewPlayerParams{
		ID:          uuid.NewString(),
		ChatID:      cmd.ChatID,
		DisplayName: cmd.DisplayName,
		Division:    division,
	})
	if err != nil {
		return nil, err
	}

	if err := h.playerRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("register_player: failed to create player: %w", err)
	}

	event := shared.NewPlayerRegisteredEvent(p.ID, fmt.Sprintf("%d", p.ChatID), p.DisplayName, int(p.Division), float64(p.Rating))
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &RegisterPlayerResult{
		PlayerID: p.ID,
		Division: p.Division,
		Rating:   p.Rating,
	}, nil
}
