// Package rating implements the league rating engine: pairwise Elo deltas,
// score bonuses, absence decay, rank tier lookup, and promotion/relegation.
// Everything here is a pure function of its inputs - the settings snapshot is
// loaded from persistence once per evaluation and passed in explicitly, so the
// engine never touches shared mutable state.
package rating

import (
	"sort"
	"time"

	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// Score bounds for a single bowling game.
const (
	MinGameScore = 0
	MaxGameScore = 300
)

// eloScale is the logistic scale constant of the Elo expectation formula.
// Only the K-factor is configurable, never the scale.
const eloScale = 400.0

// BonusRule awards a flat rating bonus when a single game's score reaches
// MinScore. Only the highest qualifying rule applies per game, so a 300 game
// earns the perfect-game bonus and nothing else.
type BonusRule struct {
	Name     string  `json:"name"`
	MinScore int     `json:"min_score"`
	Bonus    float64 `json:"bonus"`
}

// RankTier is a named rating band. Tiers are matched by the highest
// MinRating that does not exceed the player's rating; the top tier has no
// upper bound.
type RankTier struct {
	Name      string  `json:"name"`
	MinRating float64 `json:"min_rating"`
}

// Settings is the immutable configuration snapshot consumed by the engine
// and by the session state machine. A snapshot is assembled from the league
// configuration store before each evaluation; changing stored values takes
// effect on the next session without a redeploy.
type Settings struct {
	// KFactor controls the magnitude of pairwise Elo swings.
	KFactor float64

	// EventMultiplier scales the Elo component for special-occasion sessions.
	// Normal sessions use 1.0.
	EventMultiplier float64

	// BonusRules is the score-threshold bonus table.
	BonusRules []BonusRule

	// Tiers is the rank tier table.
	Tiers []RankTier

	// ActivationThreshold is the number of distinct game-1 submissions that
	// flips a session from CheckInOpen to Active.
	ActivationThreshold int

	// ReminderInterval is how often pending-submission reminders are considered.
	ReminderInterval time.Duration

	// ReminderThrottle is the minimum gap between two reminder firings for
	// the same session.
	ReminderThrottle time.Duration

	// DecayThreshold is the number of unexcused misses (since the last decay
	// application) a player may accumulate before the penalty applies.
	DecayThreshold int

	// DecayPenalty is the flat rating penalty applied once the threshold is
	// exceeded. Stored positive, applied negative.
	DecayPenalty float64

	// PromotionCadence is how many revealed sessions pass between
	// promotion/relegation evaluations.
	PromotionCadence int

	// PromotionCount is how many players move up and down per division per
	// evaluation.
	PromotionCount int

	// DivisionCount is the number of divisions in the league; division 1 is
	// the highest.
	DivisionCount int
}

// DefaultSettings returns the league defaults. Persistence overrides any of
// these per configuration key.
func DefaultSettings() Settings {
	return Settings{
		KFactor:             50,
		EventMultiplier:     1.0,
		BonusRules:          DefaultBonusRules(),
		Tiers:               DefaultTiers(),
		ActivationThreshold: 3,
		ReminderInterval:    15 * time.Minute,
		ReminderThrottle:    30 * time.Minute,
		DecayThreshold:      4,
		DecayPenalty:        50,
		PromotionCadence:    4,
		PromotionCount:      2,
		DivisionCount:       2,
	}
}

// DefaultBonusRules is the standard bonus ladder.
func DefaultBonusRules() []BonusRule {
	return []BonusRule{
		{Name: "200+ Game", MinScore: 200, Bonus: 5},
		{Name: "225+ Game", MinScore: 225, Bonus: 8},
		{Name: "250+ Game", MinScore: 250, Bonus: 12},
		{Name: "275+ Game", MinScore: 275, Bonus: 20},
		{Name: "Perfect Game", MinScore: 300, Bonus: 50},
	}
}

// DefaultTiers is the standard rank ladder.
func DefaultTiers() []RankTier {
	return []RankTier{
		{Name: "Bronze", MinRating: 0},
		{Name: "Silver", MinRating: 7200},
		{Name: "Gold", MinRating: 7800},
		{Name: "Platinum", MinRating: 8400},
		{Name: "Diamond", MinRating: 9000},
	}
}

// Validate checks the snapshot for values the engine cannot work with.
func (s Settings) Validate() error {
	if s.KFactor <= 0 {
		return shared.NewDomainError("rating", "Validate", shared.ErrValueOutOfRange, "k-factor must be positive")
	}
	if s.EventMultiplier <= 0 {
		return shared.NewDomainError("rating", "Validate", shared.ErrValueOutOfRange, "event multiplier must be positive")
	}
	if s.ActivationThreshold < 1 {
		return shared.NewDomainError("rating", "Validate", shared.ErrValueOutOfRange, "activation threshold must be at least 1")
	}
	if len(s.Tiers) == 0 {
		return shared.NewDomainError("rating", "Validate", shared.ErrConfiguration, "rank tier table is empty")
	}
	if s.DecayThreshold < 1 || s.DecayPenalty < 0 {
		return shared.NewDomainError("rating", "Validate", shared.ErrValueOutOfRange, "invalid decay configuration")
	}
	if s.PromotionCadence < 1 || s.PromotionCount < 1 || s.DivisionCount < 1 {
		return shared.NewDomainError("rating", "Validate", shared.ErrValueOutOfRange, "invalid promotion configuration")
	}
	return nil
}

// WithEventMultiplier returns a copy of the settings with the session's
// multiplier applied. Settings are value types, so the original is untouched.
func (s Settings) WithEventMultiplier(m float64) Settings {
	if m > 0 {
		s.EventMultiplier = m
	}
	return s
}

// sortedBonusRules returns the bonus table ordered by MinScore descending.
func (s Settings) sortedBonusRules() []BonusRule {
	rules := make([]BonusRule, len(s.BonusRules))
	copy(rules, s.BonusRules)
	sort.Slice(rules, func(i, j int) bool { return rules[i].MinScore > rules[j].MinScore })
	return rules
}
