package rating

import (
	"sort"
)

// Standing is a player's rating position used for promotion/relegation.
type Standing struct {
	PlayerID string
	Division int
	Rating   float64
}

// Move is one player's division change from a promotion/relegation pass.
type Move struct {
	PlayerID string `json:"player_id"`
	From     int    `json:"from"`
	To       int    `json:"to"`
	Promoted bool   `json:"promoted"`
}

// ComputePromotions ranks every division by rating descending and moves the
// top PromotionCount players to the next-higher division and the bottom
// PromotionCount to the next-lower one. Division 1 is the highest; moves are
// clamped at both ends of the ladder, so division 1 never promotes and the
// lowest division never relegates.
//
// This runs on the promotion cadence (default every 4 revealed sessions),
// never on every reveal. A division too small to move players in both
// directions without overlap is left untouched.
func ComputePromotions(standings []Standing, settings Settings) []Move {
	divisions := make(map[int][]Standing)
	for _, s := range standings {
		divisions[s.Division] = append(divisions[s.Division], s)
	}

	order := make([]int, 0, len(divisions))
	for d := range divisions {
		order = append(order, d)
	}
	sort.Ints(order)

	k := settings.PromotionCount
	lowest := settings.DivisionCount

	var moves []Move
	for _, d := range order {
		group := divisions[d]
		sort.Slice(group, func(i, j int) bool {
			if group[i].Rating != group[j].Rating {
				return group[i].Rating > group[j].Rating
			}
			return group[i].PlayerID < group[j].PlayerID
		})

		canPromote := d > 1
		canRelegate := d < lowest

		needed := 0
		if canPromote {
			needed += k
		}
		if canRelegate {
			needed += k
		}
		if needed == 0 || len(group) <= needed {
			continue
		}

		if canPromote {
			for _, s := range group[:k] {
				moves = append(moves, Move{PlayerID: s.PlayerID, From: d, To: d - 1, Promoted: true})
			}
		}
		if canRelegate {
			for _, s := range group[len(group)-k:] {
				moves = append(moves, Move{PlayerID: s.PlayerID, From: d, To: d + 1, Promoted: false})
			}
		}
	}

	return moves
}
