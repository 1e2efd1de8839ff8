package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

func openSession(t *testing.T) *Session {
	t.Helper()
	s, err := New("sess-1", "lane-7", "season-1", time.Now(), 1.0)
	require.NoError(t, err)
	require.NoError(t, s.OpenCheckIn())
	return s
}

// checkInAndSubmitBoth walks one player through a full series.
func checkInAndSubmitBoth(t *testing.T, s *Session, playerID string, g1, g2 int) {
	t.Helper()
	_, _, err := s.ToggleCheckIn(playerID, true)
	require.NoError(t, err)
	_, err = s.Submit(playerID, g1)
	require.NoError(t, err)
	_, err = s.Submit(playerID, g2)
	require.NoError(t, err)
}

func TestOpenCheckIn(t *testing.T) {
	s, err := New("sess-1", "lane-7", "season-1", time.Now(), 1.0)
	require.NoError(t, err)
	assert.Equal(t, StatePending, s.State)

	require.NoError(t, s.OpenCheckIn())
	assert.Equal(t, StateCheckInOpen, s.State)

	// Reopening is a transition error.
	assert.Error(t, s.OpenCheckIn())
}

func TestToggleCheckIn_Idempotent(t *testing.T) {
	s := openSession(t)

	changed, _, err := s.ToggleCheckIn("alice", true)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, _, err = s.ToggleCheckIn("alice", true)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, _, err = s.ToggleCheckIn("alice", false)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestToggleCheckIn_ClosedStates(t *testing.T) {
	s := openSession(t)
	require.NoError(t, s.Cancel())

	_, _, err := s.ToggleCheckIn("alice", true)
	assert.ErrorIs(t, err, shared.ErrCheckInClosed)
}

func TestSubmit_RequiresCheckIn(t *testing.T) {
	s := openSession(t)

	_, err := s.Submit("ghost", 180)
	assert.ErrorIs(t, err, shared.ErrNotCheckedIn)
}

func TestSubmit_ScoreBounds(t *testing.T) {
	s := openSession(t)
	_, _, err := s.ToggleCheckIn("alice", true)
	require.NoError(t, err)

	_, err = s.Submit("alice", -1)
	assert.ErrorIs(t, err, shared.ErrInvalidScore)
	_, err = s.Submit("alice", 301)
	assert.ErrorIs(t, err, shared.ErrInvalidScore)

	// Boundaries are accepted.
	res, err := s.Submit("alice", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.GameIndex)
	res, err = s.Submit("alice", 300)
	require.NoError(t, err)
	assert.Equal(t, 2, res.GameIndex)
}

func TestSubmit_FillsSlotsInOrder(t *testing.T) {
	s := openSession(t)
	_, _, err := s.ToggleCheckIn("alice", true)
	require.NoError(t, err)

	res, err := s.Submit("alice", 180)
	require.NoError(t, err)
	assert.Equal(t, 1, res.GameIndex)

	res, err = s.Submit("alice", 190)
	require.NoError(t, err)
	assert.Equal(t, 2, res.GameIndex)

	_, err = s.Submit("alice", 200)
	assert.ErrorIs(t, err, shared.ErrAlreadySubmittedBothGames)
}

func TestActivationLatch(t *testing.T) {
	s := openSession(t)

	for i, id := range []string{"a", "b"} {
		_, _, err := s.ToggleCheckIn(id, true)
		require.NoError(t, err)
		res, err := s.Submit(id, 150+i)
		require.NoError(t, err)
		assert.False(t, res.Activated)
	}
	assert.Equal(t, StateCheckInOpen, s.State)

	// Third distinct game-1 submission fires the latch.
	_, _, err := s.ToggleCheckIn("c", true)
	require.NoError(t, err)
	res, err := s.Submit("c", 170)
	require.NoError(t, err)
	assert.True(t, res.Activated)
	assert.Equal(t, StateActive, s.State)
}

func TestActivationLatch_NeverReverts(t *testing.T) {
	s := openSession(t)
	for _, id := range []string{"a", "b", "c"} {
		_, _, err := s.ToggleCheckIn(id, true)
		require.NoError(t, err)
		_, err = s.Submit(id, 160)
		require.NoError(t, err)
	}
	require.Equal(t, StateActive, s.State)

	// Dropping below the triggering count must not reopen check-in.
	_, _, err := s.ToggleCheckIn("c", false)
	require.NoError(t, err)
	assert.Equal(t, StateActive, s.State)
}

func TestActivationThresholdOverride(t *testing.T) {
	s := openSession(t)
	s.SetActivationThreshold(2)

	_, _, err := s.ToggleCheckIn("a", true)
	require.NoError(t, err)
	_, err = s.Submit("a", 150)
	require.NoError(t, err)
	assert.Equal(t, StateCheckInOpen, s.State)

	_, _, err = s.ToggleCheckIn("b", true)
	require.NoError(t, err)
	res, err := s.Submit("b", 160)
	require.NoError(t, err)
	assert.True(t, res.Activated)
}

func TestAutoRevealReady(t *testing.T) {
	s := openSession(t)
	s.SetActivationThreshold(2)

	checkInAndSubmitBoth(t, s, "a", 180, 190)
	require.Equal(t, StateCheckInOpen, s.State)

	// b's game 1 is the second distinct game-1 submission and latches the
	// session; readiness still waits on b's game 2.
	_, _, err := s.ToggleCheckIn("b", true)
	require.NoError(t, err)
	res, err := s.Submit("b", 150)
	require.NoError(t, err)
	assert.True(t, res.Activated)
	assert.Equal(t, StateActive, s.State)

	res, err = s.Submit("b", 155)
	require.NoError(t, err)
	assert.True(t, res.RevealReady)
	assert.Equal(t, StateAwaitingReveal, s.State)
}

func TestAutoRevealReady_StragglerBlocks(t *testing.T) {
	s := openSession(t)
	s.SetActivationThreshold(2)

	checkInAndSubmitBoth(t, s, "a", 180, 190)

	// b checks in but never bowls; un-attending b completes the set.
	_, _, err := s.ToggleCheckIn("b", true)
	require.NoError(t, err)
	checkInAndSubmitBoth(t, s, "c", 170, 160)
	assert.Equal(t, StateActive, s.State)

	_, ready, err := s.ToggleCheckIn("b", false)
	require.NoError(t, err)
	assert.True(t, ready)
	assert.Equal(t, StateAwaitingReveal, s.State)
}

func TestEdit(t *testing.T) {
	s := openSession(t)
	s.SetActivationThreshold(2)
	checkInAndSubmitBoth(t, s, "a", 180, 190)

	_, err := s.Edit("a", 1, 210)
	require.NoError(t, err)
	assert.Equal(t, 210, s.Submissions["a"].Game1)

	_, err = s.Edit("a", 2, 999)
	assert.ErrorIs(t, err, shared.ErrInvalidScore)

	_, err = s.Edit("a", 3, 150)
	assert.Error(t, err)

	// Editing an unfilled slot is a precondition failure.
	_, _, err = s.ToggleCheckIn("b", true)
	require.NoError(t, err)
	_, err = s.Submit("b", 140)
	require.NoError(t, err)
	_, err = s.Edit("b", 2, 150)
	assert.Error(t, err)
}

func TestEdit_AfterReveal(t *testing.T) {
	s := openSession(t)
	s.SetActivationThreshold(2)
	checkInAndSubmitBoth(t, s, "a", 180, 190)
	checkInAndSubmitBoth(t, s, "b", 170, 160)
	require.NoError(t, s.MarkRevealed(&RevealPayload{SessionID: s.ID}))

	_, err := s.Edit("a", 1, 200)
	assert.ErrorIs(t, err, shared.ErrEditAfterReveal)
}

func TestCanReveal(t *testing.T) {
	s := openSession(t)
	s.SetActivationThreshold(2)

	assert.ErrorIs(t, s.CanReveal(false), shared.ErrRevealNotReady)
	assert.NoError(t, s.CanReveal(true))

	checkInAndSubmitBoth(t, s, "a", 180, 190)
	checkInAndSubmitBoth(t, s, "b", 170, 160)
	require.Equal(t, StateAwaitingReveal, s.State)
	assert.NoError(t, s.CanReveal(false))
}

func TestMarkRevealed_Idempotent(t *testing.T) {
	s := openSession(t)
	s.SetActivationThreshold(2)
	checkInAndSubmitBoth(t, s, "a", 180, 190)
	checkInAndSubmitBoth(t, s, "b", 170, 160)

	first := &RevealPayload{SessionID: s.ID, RevealedAt: time.Now()}
	require.NoError(t, s.MarkRevealed(first))

	// A second reveal keeps the original payload.
	require.NoError(t, s.MarkRevealed(&RevealPayload{SessionID: "other"}))
	assert.Same(t, first, s.Payload)
	assert.Equal(t, StateRevealed, s.State)
}

func TestCancelRevealConflict(t *testing.T) {
	s := openSession(t)
	s.SetActivationThreshold(2)
	checkInAndSubmitBoth(t, s, "a", 180, 190)
	checkInAndSubmitBoth(t, s, "b", 170, 160)

	require.NoError(t, s.MarkRevealed(&RevealPayload{SessionID: s.ID}))
	assert.ErrorIs(t, s.Cancel(), shared.ErrRevealConflict)

	s2 := openSession(t)
	require.NoError(t, s2.Cancel())
	assert.ErrorIs(t, s2.MarkRevealed(&RevealPayload{}), shared.ErrRevealConflict)
	// Cancelling twice is a no-op.
	assert.NoError(t, s2.Cancel())
}

func TestCancel_KeepsAuditData(t *testing.T) {
	s := openSession(t)
	checkInAndSubmitBoth(t, s, "a", 180, 190)
	require.NoError(t, s.Cancel())

	assert.Equal(t, StateCancelled, s.State)
	assert.True(t, s.CheckIns["a"])
	assert.True(t, s.Submissions["a"].Complete())
}

func TestPendingPlayers(t *testing.T) {
	s := openSession(t)
	s.SetActivationThreshold(10)

	checkInAndSubmitBoth(t, s, "b", 180, 190)
	_, _, err := s.ToggleCheckIn("a", true)
	require.NoError(t, err)
	_, _, err = s.ToggleCheckIn("c", true)
	require.NoError(t, err)
	_, err = s.Submit("c", 100)
	require.NoError(t, err)
	_, _, err = s.ToggleCheckIn("d", false)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c"}, s.PendingPlayers())
}

func TestShouldRemind_Throttle(t *testing.T) {
	s := openSession(t)
	_, _, err := s.ToggleCheckIn("a", true)
	require.NoError(t, err)

	now := time.Now()
	assert.True(t, s.ShouldRemind(now, 30*time.Minute))
	assert.False(t, s.ShouldRemind(now.Add(15*time.Minute), 30*time.Minute))
	assert.True(t, s.ShouldRemind(now.Add(31*time.Minute), 30*time.Minute))
}

func TestShouldRemind_NoPending(t *testing.T) {
	s := openSession(t)
	s.SetActivationThreshold(1)
	checkInAndSubmitBoth(t, s, "a", 180, 190)

	assert.False(t, s.ShouldRemind(time.Now(), 30*time.Minute))
}

func TestSnapshotIsolation(t *testing.T) {
	s := openSession(t)
	checkInAndSubmitBoth(t, s, "a", 180, 190)

	snap := s.Snapshot()
	_, _, err := s.ToggleCheckIn("b", true)
	require.NoError(t, err)
	_, err = s.Edit("a", 1, 250)
	require.NoError(t, err)

	assert.Len(t, snap.CheckIns, 1)
	assert.Equal(t, 180, snap.Submissions["a"].Game1)
}

func TestCompleteScores(t *testing.T) {
	s := openSession(t)
	s.SetActivationThreshold(10)
	checkInAndSubmitBoth(t, s, "a", 180, 190)
	_, _, err := s.ToggleCheckIn("b", true)
	require.NoError(t, err)
	_, err = s.Submit("b", 100)
	require.NoError(t, err)

	scores := s.CompleteScores()
	require.Len(t, scores, 1)
	assert.Equal(t, 370, scores["a"].SeriesTotal())
}
