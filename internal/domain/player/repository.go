package player

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines the persistence contract for players.
type Repository interface {
	// Create registers a new player. Returns shared.ErrPlayerAlreadyExists
	// when the chat id is already taken.
	Create(ctx context.Context, p *Player) error

	// GetByID returns a player by internal ID.
	// Returns shared.ErrUnknownParticipant when missing.
	GetByID(ctx context.Context, id string) (*Player, error)

	// GetByChatID returns a player by chat platform ID.
	// Returns shared.ErrUnknownParticipant when missing.
	GetByChatID(ctx context.Context, chatID ChatID) (*Player, error)

	// Update persists a modified player.
	Update(ctx context.Context, p *Player) error

	// ListActive returns all non-retired players.
	ListActive(ctx context.Context) ([]*Player, error)

	// ListByDivision returns non-retired players of one division, ordered
	// by rating descending.
	ListByDivision(ctx context.Context, d Division) ([]*Player, error)

	// ExistsByChatID reports whether a chat id is already registered.
	ExistsByChatID(ctx context.Context, chatID ChatID) (bool, error)
}
