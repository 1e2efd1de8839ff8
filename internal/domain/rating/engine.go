package rating

import (
	"math"
	"sort"

	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// PlayerScore is one player's complete series for a session, paired with the
// rating they carried into it. Only players with both games submitted are
// compared; the session state machine guarantees that before calling in.
type PlayerScore struct {
	PlayerID string
	Division int
	Game1    int
	Game2    int
	Rating   float64
}

// SeriesTotal is the sum of the two game scores.
func (p PlayerScore) SeriesTotal() int {
	return p.Game1 + p.Game2
}

// Change is the full breakdown of one player's rating adjustment for one
// reveal. Changes are append-only: once persisted they are never rewritten.
type Change struct {
	PlayerID     string   `json:"player_id"`
	Division     int      `json:"division"`
	SeriesTotal  int      `json:"series_total"`
	OldRating    float64  `json:"old_rating"`
	NewRating    float64  `json:"new_rating"`
	EloDelta     float64  `json:"elo_delta"`
	BonusDelta   float64  `json:"bonus_delta"`
	BonusDetails []string `json:"bonus_details,omitempty"`
	DecayDelta   float64  `json:"decay_delta"`
	OldTier      string   `json:"old_tier"`
	NewTier      string   `json:"new_tier"`
	TierChanged  bool     `json:"tier_changed"`
}

// TotalDelta is the combined rating movement of this change.
func (c Change) TotalDelta() float64 {
	return c.EloDelta + c.BonusDelta + c.DecayDelta
}

// ExpectedScore is the logistic Elo expectation of a player against one
// opponent: 1 / (1 + 10^((opponent-rating)/400)).
func ExpectedScore(rating, opponent float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (opponent-rating)/eloScale))
}

// OutcomeScore compares two series totals: 1.0 for a win, 0.0 for a loss,
// 0.5 for a tie (the points are split).
func OutcomeScore(total, opponentTotal int) float64 {
	switch {
	case total > opponentTotal:
		return 1.0
	case total < opponentTotal:
		return 0.0
	default:
		return 0.5
	}
}

// TierFor scans the tier table in descending threshold order and returns the
// first tier whose minimum rating does not exceed the given rating. Ratings
// below every threshold land in the lowest tier.
func TierFor(rating float64, tiers []RankTier) RankTier {
	sorted := make([]RankTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinRating > sorted[j].MinRating })

	for _, tier := range sorted {
		if rating >= tier.MinRating {
			return tier
		}
	}
	if len(sorted) > 0 {
		return sorted[len(sorted)-1]
	}
	return RankTier{Name: "Unranked"}
}

// BonusFor returns the single highest-threshold bonus rule satisfied by a
// game score, or false when no rule applies. Rules never stack.
func BonusFor(score int, rules []BonusRule) (BonusRule, bool) {
	var best BonusRule
	found := false
	for _, rule := range rules {
		if score >= rule.MinScore && rule.Bonus > 0 {
			if !found || rule.MinScore > best.MinScore {
				best = rule
				found = true
			}
		}
	}
	return best, found
}

// AbsenceDecay evaluates the flat decay penalty for a player who has
// accumulated missesSinceDecay unexcused misses since the penalty last
// applied. The penalty fires exactly once when the threshold is exceeded;
// the caller resets its eligibility counter on a true return.
func AbsenceDecay(missesSinceDecay, threshold int, penalty float64) (float64, bool) {
	if missesSinceDecay <= threshold {
		return 0, false
	}
	return -penalty, true
}

// ComputeReveal computes the full set of rating changes for one revealed
// session. Players are partitioned by division and each division is scored
// independently: every unordered pair is compared by series total, and the
// per-pair delta is K * multiplier * (outcome - expected) / (N-1), where N
// is the division's player count for this session. The division-local
// normalization keeps a session's maximum swing independent of division
// size, and absent bonuses the Elo components of a division sum to zero.
//
// A division with a lone complete player has no pairs to compare: that
// player's Elo component is zero and only game bonuses apply. Other
// divisions are unaffected.
//
// Ratings stay unrounded floats throughout; rounding is a presentation
// concern.
func ComputeReveal(players []PlayerScore, settings Settings) ([]Change, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, shared.ErrNotEnoughPlayers
	}

	divisions := make(map[int][]PlayerScore)
	for _, p := range players {
		divisions[p.Division] = append(divisions[p.Division], p)
	}

	// Deterministic division order, for stable output and tests.
	order := make([]int, 0, len(divisions))
	for d := range divisions {
		order = append(order, d)
	}
	sort.Ints(order)

	rules := settings.sortedBonusRules()
	changes := make([]Change, 0, len(players))

	for _, d := range order {
		group := divisions[d]
		norm := float64(len(group) - 1)

		for _, p := range group {
			elo := 0.0
			if norm > 0 {
				for _, opp := range group {
					if opp.PlayerID == p.PlayerID {
						continue
					}
					outcome := OutcomeScore(p.SeriesTotal(), opp.SeriesTotal())
					expected := ExpectedScore(p.Rating, opp.Rating)
					elo += settings.KFactor * settings.EventMultiplier * (outcome - expected) / norm
				}
			}

			bonus := 0.0
			var details []string
			for _, game := range []int{p.Game1, p.Game2} {
				if rule, ok := BonusFor(game, rules); ok {
					bonus += rule.Bonus
					details = append(details, rule.Name)
				}
			}

			newRating := p.Rating + elo + bonus
			oldTier := TierFor(p.Rating, settings.Tiers)
			newTier := TierFor(newRating, settings.Tiers)

			changes = append(changes, Change{
				PlayerID:     p.PlayerID,
				Division:     d,
				SeriesTotal:  p.SeriesTotal(),
				OldRating:    p.Rating,
				NewRating:    newRating,
				EloDelta:     elo,
				BonusDelta:   bonus,
				BonusDetails: details,
				OldTier:      oldTier.Name,
				NewTier:      newTier.Name,
				TierChanged:  oldTier.Name != newTier.Name,
			})
		}
	}

	return changes, nil
}

// DecayChange builds the append-only change record for a player penalized by
// absence decay. The Elo and bonus components are zero; the decay component
// is attributed separately so the penalty is auditable.
func DecayChange(playerID string, division int, oldRating, penalty float64, tiers []RankTier) Change {
	newRating := oldRating + penalty
	oldTier := TierFor(oldRating, tiers)
	newTier := TierFor(newRating, tiers)
	return Change{
		PlayerID:    playerID,
		Division:    division,
		OldRating:   oldRating,
		NewRating:   newRating,
		DecayDelta:  penalty,
		OldTier:     oldTier.Name,
		NewTier:     newTier.Name,
		TierChanged: oldTier.Name != newTier.Name,
	}
}
