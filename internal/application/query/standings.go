// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
package query

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/strike-hub/strike-league-hub/internal/domain/player"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STANDINGS QUERY
// Division standings ordered by rating. Served from cache when fresh; the
// cache is rebuilt after every reveal.
// ══════════════════════════════════════════════════════════════════════════════

// StandingsQuery contains the parameters for a standings request.
type StandingsQuery struct {
	// Division filters to one division; zero returns all divisions.
	Division player.Division

	// Limit caps the entries per division (default 25, max 100).
	Limit int
}

// Validate validates the query.
func (q *StandingsQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 25
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// StandingEntryDTO is one row of the standings table.
type StandingEntryDTO struct {
	Rank           int     `json:"rank"`
	PlayerID       string  `json:"player_id"`
	DisplayName    string  `json:"display_name"`
	Rating         float64 `json:"rating"`
	Tier           string  `json:"tier"`
	Division       int     `json:"division"`
	SessionsPlayed int     `json:"sessions_played"`
	AverageSeries  float64 `json:"average_series"`
	HighSeries     int     `json:"high_series"`
}

// StandingsResult contains per-division standings.
type StandingsResult struct {
	Divisions   map[int][]StandingEntryDTO `json:"divisions"`
	FromCache   bool                       `json:"from_cache"`
	GeneratedAt time.Time                  `json:"generated_at"`
}

// StandingsCache caches the rendered standings between reveals.
// Implementations live in infrastructure/persistence.
type StandingsCache interface {
	GetStandings(ctx context.Context, division int) ([]StandingEntryDTO, error)
	SetStandings(ctx context.Context, division int, entries []StandingEntryDTO, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// StandingsHandler handles standings queries.
type StandingsHandler struct {
	playerRepo player.Repository
	cache      StandingsCache
	cacheTTL   time.Duration
}

// NewStandingsHandler creates a new StandingsHandler. cache may be nil.
func NewStandingsHandler(playerRepo player.Repository, cache StandingsCache, cacheTTL time.Duration) *StandingsHandler {
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}
	return &StandingsHandler{playerRepo: playerRepo, cache: cache, cacheTTL: cacheTTL}
}

// Handle executes the standings query.
func (h *StandingsHandler) Handle(ctx context.Context, q StandingsQuery) (*StandingsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "Standings", shared.ErrValidation, err.Error(), err)
	}

	result := &StandingsResult{
		Divisions:   make(map[int][]StandingEntryDTO),
		GeneratedAt: time.Now().UTC(),
	}

	if q.Division != 0 {
		entries, fromCache, err := h.division(ctx, q.Division, q.Limit)
		if err != nil {
			return nil, err
		}
		result.Divisions[int(q.Division)] = entries
		result.FromCache = fromCache
		return result, nil
	}

	players, err := h.playerRepo.ListActive(ctx)
	if err != nil {
		return nil, shared.WrapError("query", "Standings", shared.ErrNotFound, "failed to load players", err)
	}
	byDivision := make(map[int][]*player.Player)
	for _, p := range players {
		byDivision[int(p.Division)] = append(byDivision[int(p.Division)], p)
	}
	for d, group := range byDivision {
		result.Divisions[d] = buildEntries(group, q.Limit)
	}
	return result, nil
}

func (h *StandingsHandler) division(ctx context.Context, d player.Division, limit int) ([]StandingEntryDTO, bool, error) {
	if h.cache != nil {
		if cached, err := h.cache.GetStandings(ctx, int(d)); err == nil && len(cached) > 0 {
			if len(cached) > limit {
				cached = cached[:limit]
			}
			return cached, true, nil
		}
	}

	players, err := h.playerRepo.ListByDivision(ctx, d)
	if err != nil {
		return nil, false, shared.WrapError("query", "Standings", shared.ErrNotFound, "failed to load division", err)
	}
	entries := buildEntries(players, limit)

	if h.cache != nil {
		_ = h.cache.SetStandings(ctx, int(d), entries, h.cacheTTL)
	}
	return entries, false, nil
}

// buildEntries ranks players by rating descending with a stable id tiebreak.
func buildEntries(players []*player.Player, limit int) []StandingEntryDTO {
	sorted := make([]*player.Player, len(players))
	copy(sorted, players)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Rating != sorted[j].Rating {
			return sorted[i].Rating > sorted[j].Rating
		}
		return sorted[i].ID < sorted[j].ID
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	entries := make([]StandingEntryDTO, len(sorted))
	for i, p := range sorted {
		entries[i] = StandingEntryDTO{
			Rank:           i + 1,
			PlayerID:       p.ID,
			DisplayName:    p.DisplayName,
			Rating:         math.Round(float64(p.Rating)*10) / 10,
			Tier:           p.TierName,
			Division:       int(p.Division),
			SessionsPlayed: p.SeasonStats.SessionsPlayed,
			AverageSeries:  math.Round(p.SeasonStats.AverageSeries()*10) / 10,
			HighSeries:     p.SeasonStats.HighSeries,
		}
	}
	return entries
}
