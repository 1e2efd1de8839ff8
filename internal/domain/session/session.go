// Package session owns one league session's lifecycle: check-in tracking,
// activation, submission intake, readiness, and the reveal latch. This is
// core business logic with no external dependencies.
//
// A Session is a single mutable resource. It is NOT safe for concurrent use;
// callers serialize access through the registry's per-session handle.
package session

import (
	"fmt"
	"sort"
	"time"

	"github.com/strike-hub/strike-league-hub/internal/domain/rating"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATES
// ══════════════════════════════════════════════════════════════════════════════

// State is the session lifecycle state.
type State string

const (
	// StatePending - created but check-in has not opened yet.
	StatePending State = "pending"
	// StateCheckInOpen - accepting check-ins and early submissions.
	StateCheckInOpen State = "checkin_open"
	// StateActive - the activation latch has fired.
	StateActive State = "active"
	// StateAwaitingReveal - every attending player has both games in.
	StateAwaitingReveal State = "awaiting_reveal"
	// StateRevealed - ratings computed and published. Terminal.
	StateRevealed State = "revealed"
	// StateCancelled - administratively cancelled. Terminal.
	StateCancelled State = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StateRevealed || s == StateCancelled
}

// IsValid reports whether the state is one of the known values.
func (s State) IsValid() bool {
	switch s {
	case StatePending, StateCheckInOpen, StateActive, StateAwaitingReveal, StateRevealed, StateCancelled:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBMISSIONS
// ══════════════════════════════════════════════════════════════════════════════

// Submission holds one player's two game slots for a session. Slots fill in
// order: game 1, then game 2.
type Submission struct {
	Game1    int  `json:"game1"`
	Game2    int  `json:"game2"`
	Game1Set bool `json:"game1_set"`
	Game2Set bool `json:"game2_set"`
}

// Complete reports whether both slots are filled.
func (s Submission) Complete() bool {
	return s.Game1Set && s.Game2Set
}

// SeriesTotal is the sum of both games. Meaningful only when Complete.
func (s Submission) SeriesTotal() int {
	return s.Game1 + s.Game2
}

// ══════════════════════════════════════════════════════════════════════════════
// REVEAL PAYLOAD
// ══════════════════════════════════════════════════════════════════════════════

// RevealPayload is the immutable result of a reveal, stored on the session so
// repeated reveal requests return it unchanged.
type RevealPayload struct {
	SessionID    string                  `json:"session_id"`
	RevealedAt   time.Time               `json:"revealed_at"`
	Forced       bool                    `json:"forced"`
	Changes      map[int][]rating.Change `json:"changes_by_division"`
	DecayChanges []rating.Change         `json:"decay_changes,omitempty"`
	Promotions   []rating.Move           `json:"promotions,omitempty"`
}

// AllChanges flattens the per-division changes plus decay records, in a
// deterministic order.
func (p *RevealPayload) AllChanges() []rating.Change {
	divisions := make([]int, 0, len(p.Changes))
	for d := range p.Changes {
		divisions = append(divisions, d)
	}
	sort.Ints(divisions)

	var out []rating.Change
	for _, d := range divisions {
		out = append(out, p.Changes[d]...)
	}
	out = append(out, p.DecayChanges...)
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: SESSION
// ══════════════════════════════════════════════════════════════════════════════

// Session is one scheduled league night.
type Session struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// Group is the scheduling group (one league community). At most one
	// session per group may be non-terminal.
	Group string

	// SeasonID scopes the session to a season.
	SeasonID string

	// State is the lifecycle state.
	State State

	// EventMultiplier scales the Elo component for special occasions.
	EventMultiplier float64

	// CheckIns maps player id to the attending flag. Toggled freely while
	// check-ins are open; kept for audit after cancellation.
	CheckIns map[string]bool

	// Submissions maps player id to the two game slots.
	Submissions map[string]*Submission

	// Payload is set exactly once, at reveal.
	Payload *RevealPayload

	// LastReminderAt throttles the periodic reminder.
	LastReminderAt time.Time

	// activationOverride is a configured latch threshold; zero means the
	// package default.
	activationOverride int

	ScheduledFor time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// New creates a session in the pending state.
func New(id, group, seasonID string, scheduledFor time.Time, eventMultiplier float64) (*Session, error) {
	if id == "" || group == "" {
		return nil, shared.NewDomainError("session", "New", shared.ErrInvalidInput, "session id and group are required")
	}
	if eventMultiplier <= 0 {
		eventMultiplier = 1.0
	}
	now := time.Now().UTC()
	return &Session{
		ID:              id,
		Group:           group,
		SeasonID:        seasonID,
		State:           StatePending,
		EventMultiplier: eventMultiplier,
		CheckIns:        make(map[string]bool),
		Submissions:     make(map[string]*Submission),
		ScheduledFor:    scheduledFor,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Restore rebuilds a session from a persisted snapshot. Used by the
// persistence layer when the registry is rehydrated on startup.
func Restore(snap Snapshot) *Session {
	checkIns := make(map[string]bool, len(snap.CheckIns))
	for k, v := range snap.CheckIns {
		checkIns[k] = v
	}
	subs := make(map[string]*Submission, len(snap.Submissions))
	for k, v := range snap.Submissions {
		sub := v
		subs[k] = &sub
	}
	return &Session{
		ID:              snap.ID,
		Group:           snap.Group,
		SeasonID:        snap.SeasonID,
		State:           snap.State,
		EventMultiplier: snap.EventMultiplier,
		CheckIns:        checkIns,
		Submissions:     subs,
		Payload:         snap.Payload,
		LastReminderAt:  snap.LastReminderAt,
		ScheduledFor:    snap.ScheduledFor,
		CreatedAt:       snap.CreatedAt,
		UpdatedAt:       snap.UpdatedAt,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

// OpenCheckIn moves the session from pending to accepting check-ins.
func (s *Session) OpenCheckIn() error {
	if s.State != StatePending {
		return shared.NewDomainError("session", "OpenCheckIn", shared.ErrStateTransition,
			fmt.Sprintf("cannot open check-in from state %s", s.State))
	}
	s.State = StateCheckInOpen
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// ToggleCheckIn records a player's attending flag. Valid while the session is
// open or active; re-toggling to the same value is a no-op. Returns whether
// the flag changed and whether the toggle completed the readiness set.
func (s *Session) ToggleCheckIn(playerID string, attending bool) (changed, revealReady bool, err error) {
	switch s.State {
	case StateCheckInOpen, StateActive:
	default:
		return false, false, shared.ErrCheckInClosed
	}

	if current, ok := s.CheckIns[playerID]; ok && current == attending {
		return false, false, nil
	}
	s.CheckIns[playerID] = attending
	s.UpdatedAt = time.Now().UTC()

	// Un-attending a player who never submitted can complete the set.
	return true, s.evaluateRevealReady(), nil
}

// SubmitResult reports what a submission changed.
type SubmitResult struct {
	GameIndex   int
	Activated   bool
	RevealReady bool
}

// Submit fills the player's next empty game slot, in order. Re-evaluates the
// activation latch and the readiness condition.
func (s *Session) Submit(playerID string, score int) (SubmitResult, error) {
	switch s.State {
	case StateCheckInOpen, StateActive:
	default:
		if s.State == StateAwaitingReveal {
			return SubmitResult{}, shared.ErrAlreadySubmittedBothGames
		}
		return SubmitResult{}, shared.ErrNoActiveSession
	}

	if !s.CheckIns[playerID] {
		return SubmitResult{}, shared.ErrNotCheckedIn
	}
	if score < rating.MinGameScore || score > rating.MaxGameScore {
		return SubmitResult{}, shared.ErrInvalidScore
	}

	sub, ok := s.Submissions[playerID]
	if !ok {
		sub = &Submission{}
		s.Submissions[playerID] = sub
	}

	var result SubmitResult
	switch {
	case !sub.Game1Set:
		sub.Game1, sub.Game1Set = score, true
		result.GameIndex = 1
	case !sub.Game2Set:
		sub.Game2, sub.Game2Set = score, true
		result.GameIndex = 2
	default:
		return SubmitResult{}, shared.ErrAlreadySubmittedBothGames
	}
	s.UpdatedAt = time.Now().UTC()

	result.Activated = s.evaluateActivation()
	result.RevealReady = s.evaluateRevealReady()
	return result, nil
}

// Edit overwrites an existing submission slot. Permitted until reveal; an
// edit can complete the readiness set.
func (s *Session) Edit(playerID string, gameIndex, score int) (revealReady bool, err error) {
	if s.State == StateRevealed {
		return false, shared.ErrEditAfterReveal
	}
	if s.State.IsTerminal() || s.State == StatePending {
		return false, shared.ErrNoActiveSession
	}
	if gameIndex != 1 && gameIndex != 2 {
		return false, shared.NewDomainError("session", "Edit", shared.ErrInvalidInput, "game index must be 1 or 2")
	}
	if score < rating.MinGameScore || score > rating.MaxGameScore {
		return false, shared.ErrInvalidScore
	}

	sub, ok := s.Submissions[playerID]
	if !ok {
		return false, shared.ErrNotCheckedIn
	}
	switch gameIndex {
	case 1:
		if !sub.Game1Set {
			return false, shared.NewDomainError("session", "Edit", shared.ErrPrecondition, "game 1 has not been submitted")
		}
		sub.Game1 = score
	case 2:
		if !sub.Game2Set {
			return false, shared.NewDomainError("session", "Edit", shared.ErrPrecondition, "game 2 has not been submitted")
		}
		sub.Game2 = score
	}
	s.UpdatedAt = time.Now().UTC()
	return s.evaluateRevealReady(), nil
}

// Correct overwrites a submission slot on behalf of an administrator. Unlike
// Edit it is permitted after reveal; the stored reveal payload is not
// recomputed, the correction is an audited override.
func (s *Session) Correct(playerID string, gameIndex, score int) error {
	if gameIndex != 1 && gameIndex != 2 {
		return shared.NewDomainError("session", "Correct", shared.ErrInvalidInput, "game index must be 1 or 2")
	}
	if score < rating.MinGameScore || score > rating.MaxGameScore {
		return shared.ErrInvalidScore
	}
	sub, ok := s.Submissions[playerID]
	if !ok {
		return shared.ErrNotCheckedIn
	}
	switch gameIndex {
	case 1:
		if !sub.Game1Set {
			return shared.NewDomainError("session", "Correct", shared.ErrPrecondition, "game 1 has not been submitted")
		}
		sub.Game1 = score
	case 2:
		if !sub.Game2Set {
			return shared.NewDomainError("session", "Correct", shared.ErrPrecondition, "game 2 has not been submitted")
		}
		sub.Game2 = score
	}
	s.UpdatedAt = time.Now().UTC()
	if s.State == StateActive {
		s.evaluateRevealReady()
	}
	return nil
}

// CanReveal reports whether a reveal request would be accepted.
func (s *Session) CanReveal(force bool) error {
	switch s.State {
	case StateAwaitingReveal:
		return nil
	case StateCheckInOpen, StateActive:
		if force {
			return nil
		}
		return shared.ErrRevealNotReady
	case StateRevealed:
		return nil // idempotent, caller returns the stored payload
	case StateCancelled:
		return shared.ErrRevealConflict
	default:
		return shared.ErrNoActiveSession
	}
}

// MarkRevealed commits the reveal payload. The caller has already run the
// rating computation; this is the terminal state flip and must happen inside
// the session's exclusion scope after re-checking CanReveal.
func (s *Session) MarkRevealed(payload *RevealPayload) error {
	if s.State == StateRevealed {
		return nil
	}
	if s.State == StateCancelled {
		return shared.ErrRevealConflict
	}
	if s.State.IsTerminal() || s.State == StatePending {
		return shared.ErrNoActiveSession
	}
	s.Payload = payload
	s.State = StateRevealed
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel moves the session to the cancelled state. Check-ins and submissions
// are kept for audit. Cancelling a revealed session loses the race and
// returns a conflict; cancelling twice is a no-op.
func (s *Session) Cancel() error {
	if s.State == StateCancelled {
		return nil
	}
	if s.State == StateRevealed {
		return shared.ErrRevealConflict
	}
	s.State = StateCancelled
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// READINESS & REMINDERS
// ══════════════════════════════════════════════════════════════════════════════

// ActivationThreshold is the default count of distinct game-1 submissions
// that latches a session active. Configuration overrides it per league.
const ActivationThreshold = 3

// game1Count counts distinct players with a game-1 submission.
func (s *Session) game1Count() int {
	n := 0
	for _, sub := range s.Submissions {
		if sub.Game1Set {
			n++
		}
	}
	return n
}

// SetActivationThreshold overrides the default latch threshold. Takes effect
// only before the latch fires.
func (s *Session) SetActivationThreshold(n int) {
	if n >= 1 {
		s.activationOverride = n
	}
}

// evaluateActivation fires the one-way latch. Once active, the threshold is
// never re-evaluated downward.
func (s *Session) evaluateActivation() bool {
	if s.State != StateCheckInOpen {
		return false
	}
	if s.game1Count() >= s.effectiveThreshold() {
		s.State = StateActive
		return true
	}
	return false
}

func (s *Session) effectiveThreshold() int {
	if s.activationOverride >= 1 {
		return s.activationOverride
	}
	return ActivationThreshold
}

// evaluateRevealReady flips the session to awaiting-reveal the moment every
// attending player has both games in. Notification-only: no ratings are
// computed here. Fires only after the activation latch.
func (s *Session) evaluateRevealReady() bool {
	if s.State != StateActive {
		return false
	}
	attending := 0
	for playerID, in := range s.CheckIns {
		if !in {
			continue
		}
		attending++
		sub, ok := s.Submissions[playerID]
		if !ok || !sub.Complete() {
			return false
		}
	}
	if attending == 0 {
		return false
	}
	s.State = StateAwaitingReveal
	return true
}

// PendingPlayers returns attending players who have not completed both
// games, sorted for deterministic reminder output.
func (s *Session) PendingPlayers() []string {
	var out []string
	for playerID, in := range s.CheckIns {
		if !in {
			continue
		}
		sub, ok := s.Submissions[playerID]
		if !ok || !sub.Complete() {
			out = append(out, playerID)
		}
	}
	sort.Strings(out)
	return out
}

// ShouldRemind reports whether a reminder is due, honoring the throttle.
// Marks the reminder sent when it returns true.
func (s *Session) ShouldRemind(now time.Time, throttle time.Duration) bool {
	switch s.State {
	case StateCheckInOpen, StateActive:
	default:
		return false
	}
	if !s.LastReminderAt.IsZero() && now.Sub(s.LastReminderAt) < throttle {
		return false
	}
	if len(s.PendingPlayers()) == 0 {
		return false
	}
	s.LastReminderAt = now
	return true
}

// CompleteScores returns the (player, game1, game2) triples of every player
// with both games in, for the rating engine. Absent ratings and divisions
// are filled in by the caller from the player repository.
func (s *Session) CompleteScores() map[string]Submission {
	out := make(map[string]Submission)
	for playerID, sub := range s.Submissions {
		if sub.Complete() {
			out[playerID] = *sub
		}
	}
	return out
}

// AttendingPlayers returns the ids of players with an attending check-in.
func (s *Session) AttendingPlayers() map[string]bool {
	out := make(map[string]bool)
	for playerID, in := range s.CheckIns {
		if in {
			out[playerID] = true
		}
	}
	return out
}

// Snapshot is an immutable copy captured inside the exclusion scope so
// persistence and publication can run outside it.
type Snapshot struct {
	ID              string
	Group           string
	SeasonID        string
	State           State
	EventMultiplier float64
	CheckIns        map[string]bool
	Submissions     map[string]Submission
	Payload         *RevealPayload
	LastReminderAt  time.Time
	ScheduledFor    time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Snapshot deep-copies the mutable collections.
func (s *Session) Snapshot() Snapshot {
	checkIns := make(map[string]bool, len(s.CheckIns))
	for k, v := range s.CheckIns {
		checkIns[k] = v
	}
	subs := make(map[string]Submission, len(s.Submissions))
	for k, v := range s.Submissions {
		subs[k] = *v
	}
	return Snapshot{
		ID:              s.ID,
		Group:           s.Group,
		SeasonID:        s.SeasonID,
		State:           s.State,
		EventMultiplier: s.EventMultiplier,
		CheckIns:        checkIns,
		Submissions:     subs,
		Payload:         s.Payload,
		LastReminderAt:  s.LastReminderAt,
		ScheduledFor:    s.ScheduledFor,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}
