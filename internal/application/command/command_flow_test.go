package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strike-hub/strike-league-hub/internal/application/registry"
	"github.com/strike-hub/strike-league-hub/internal/domain/player"
	"github.com/strike-hub/strike-league-hub/internal/domain/rating"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// env wires the full command stack against in-memory fakes.
type env struct {
	registry    *registry.Registry
	playerRepo  *fakePlayerRepo
	sessionRepo *fakeSessionRepo
	seasonRepo  *fakeSeasonRepo
	settings    *fakeSettingsRepo
	changeRepo  *fakeChangeRepo
	publisher   *capturingPublisher

	open     *OpenCheckInHandler
	toggle   *ToggleCheckInHandler
	submit   *SubmitScoreHandler
	edit     *EditScoreHandler
	correct  *CorrectScoreHandler
	reveal   *RevealSessionHandler
	cancel   *CancelSessionHandler
	register *RegisterPlayerHandler
	seasons  *StartSeasonHandler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		registry:    registry.New(),
		playerRepo:  newFakePlayerRepo(),
		sessionRepo: &fakeSessionRepo{},
		seasonRepo:  &fakeSeasonRepo{},
		settings:    &fakeSettingsRepo{settings: rating.DefaultSettings()},
		changeRepo:  newFakeChangeRepo(),
		publisher:   &capturingPublisher{},
	}
	e.open = NewOpenCheckInHandler(e.registry, e.sessionRepo, e.seasonRepo, e.settings, e.publisher)
	e.toggle = NewToggleCheckInHandler(e.registry, e.playerRepo, e.sessionRepo, e.publisher)
	e.submit = NewSubmitScoreHandler(e.registry, e.playerRepo, e.sessionRepo, e.publisher)
	e.edit = NewEditScoreHandler(e.registry, e.playerRepo, e.sessionRepo, e.publisher)
	e.correct = NewCorrectScoreHandler(e.registry, e.playerRepo, e.sessionRepo, e.publisher)
	e.reveal = NewRevealSessionHandler(e.registry, e.sessionRepo, e.playerRepo, e.seasonRepo, e.settings, e.changeRepo, e.publisher)
	e.cancel = NewCancelSessionHandler(e.registry, e.sessionRepo, e.publisher)
	e.register = NewRegisterPlayerHandler(e.playerRepo, e.publisher, 1)
	e.seasons = NewStartSeasonHandler(e.seasonRepo, e.playerRepo, e.publisher)

	_, err := e.seasons.Handle(context.Background(), StartSeasonCommand{Name: "Autumn 2026", AdminID: "admin"})
	require.NoError(t, err)
	return e
}

func (e *env) registerPlayer(t *testing.T, chatID player.ChatID, name string) string {
	t.Helper()
	res, err := e.register.Handle(context.Background(), RegisterPlayerCommand{
		ChatID:      chatID,
		DisplayName: name,
		Division:    1,
	})
	require.NoError(t, err)
	return res.PlayerID
}

// playFullSeries checks a player in and submits both games.
func (e *env) playFullSeries(t *testing.T, chatID player.ChatID, g1, g2 int) {
	t.Helper()
	ctx := context.Background()
	_, err := e.toggle.Handle(ctx, ToggleCheckInCommand{Group: "league", ChatID: chatID, Attending: true})
	require.NoError(t, err)
	_, err = e.submit.Handle(ctx, SubmitScoreCommand{Group: "league", ChatID: chatID, Score: g1})
	require.NoError(t, err)
	_, err = e.submit.Handle(ctx, SubmitScoreCommand{Group: "league", ChatID: chatID, Score: g2})
	require.NoError(t, err)
}

func TestFullSessionFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.registerPlayer(t, 101, "Alice")
	e.registerPlayer(t, 102, "Bob")
	e.registerPlayer(t, 103, "Cara")

	_, err := e.open.Handle(ctx, OpenCheckInCommand{Group: "league"})
	require.NoError(t, err)

	// A second open for the same group must fail while the first is live.
	_, err = e.open.Handle(ctx, OpenCheckInCommand{Group: "league"})
	assert.ErrorIs(t, err, shared.ErrSessionAlreadyOpen)

	e.playFullSeries(t, 101, 225, 210)
	e.playFullSeries(t, 102, 200, 205)
	e.playFullSeries(t, 103, 180, 190)

	assert.Len(t, e.publisher.ofType(shared.EventActivationReached), 1)
	assert.Len(t, e.publisher.ofType(shared.EventRevealReady), 1)

	res, err := e.reveal.Handle(ctx, RevealSessionCommand{Group: "league"})
	require.NoError(t, err)
	assert.False(t, res.AlreadyRevealed)
	require.NotNil(t, res.Payload)
	assert.Len(t, res.Payload.Changes[1], 3)

	// Ratings moved and tier labels were stored.
	alice, err := e.playerRepo.GetByChatID(ctx, 101)
	require.NoError(t, err)
	cara, err := e.playerRepo.GetByChatID(ctx, 103)
	require.NoError(t, err)
	assert.InDelta(t, 8025+5+8, float64(alice.Rating), 1e-9) // +25 elo, 225 and 200+ bonuses
	assert.Less(t, float64(cara.Rating), 8000.0)
	assert.Equal(t, 1, alice.SeasonStats.SessionsPlayed)
	assert.Equal(t, 435, alice.SeasonStats.HighSeries)

	// Rating changes were persisted once.
	changes, err := e.changeRepo.ListBySession(ctx, res.Payload.SessionID)
	require.NoError(t, err)
	assert.Len(t, changes, 3)
}

func TestReveal_Idempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.registerPlayer(t, 101, "Alice")
	e.registerPlayer(t, 102, "Bob")
	e.registerPlayer(t, 103, "Cara")

	_, err := e.open.Handle(ctx, OpenCheckInCommand{Group: "league"})
	require.NoError(t, err)
	e.playFullSeries(t, 101, 225, 210)
	e.playFullSeries(t, 102, 200, 205)
	e.playFullSeries(t, 103, 180, 190)

	first, err := e.reveal.Handle(ctx, RevealSessionCommand{Group: "league"})
	require.NoError(t, err)
	second, err := e.reveal.Handle(ctx, RevealSessionCommand{Group: "league"})
	require.NoError(t, err)

	assert.True(t, second.AlreadyRevealed)
	assert.Same(t, first.Payload, second.Payload)

	// No additional change records were written.
	changes, err := e.changeRepo.ListBySession(ctx, first.Payload.SessionID)
	require.NoError(t, err)
	assert.Len(t, changes, 3)
}

func TestReveal_NotReadyWithoutForce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.registerPlayer(t, 101, "Alice")
	e.registerPlayer(t, 102, "Bob")
	e.registerPlayer(t, 103, "Cara")

	_, err := e.open.Handle(ctx, OpenCheckInCommand{Group: "league"})
	require.NoError(t, err)
	e.playFullSeries(t, 101, 225, 210)
	e.playFullSeries(t, 102, 200, 205)

	// Cara checked in but never finished.
	_, err = e.toggle.Handle(ctx, ToggleCheckInCommand{Group: "league", ChatID: 103, Attending: true})
	require.NoError(t, err)
	_, err = e.submit.Handle(ctx, SubmitScoreCommand{Group: "league", ChatID: 103, Score: 150})
	require.NoError(t, err)

	_, err = e.reveal.Handle(ctx, RevealSessionCommand{Group: "league"})
	assert.ErrorIs(t, err, shared.ErrRevealNotReady)

	// Force reveal scores only the complete series.
	res, err := e.reveal.Handle(ctx, RevealSessionCommand{Group: "league", Force: true})
	require.NoError(t, err)
	assert.True(t, res.Payload.Forced)
	assert.Len(t, res.Payload.Changes[1], 2)
}

func TestReveal_AbsenceDecay(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.registerPlayer(t, 101, "Alice")
	e.registerPlayer(t, 102, "Bob")
	ghostID := e.registerPlayer(t, 200, "Ghost")

	// Keep the reshuffle cadence out of this scenario's way.
	e.settings.settings.PromotionCadence = 100

	// Ghost never checks in across six sessions; with threshold 4 the flat
	// penalty fires exactly once, at the fifth miss.
	decayed := 0
	for i := 0; i < 6; i++ {
		_, err := e.open.Handle(ctx, OpenCheckInCommand{Group: "league"})
		require.NoError(t, err)
		e.playFullSeries(t, 101, 200, 200)
		e.playFullSeries(t, 102, 180, 180)
		res, err := e.reveal.Handle(ctx, RevealSessionCommand{Group: "league"})
		require.NoError(t, err)
		decayed += len(res.Payload.DecayChanges)
	}
	assert.Equal(t, 1, decayed)

	ghost, err := e.playerRepo.GetByID(ctx, ghostID)
	require.NoError(t, err)
	assert.InDelta(t, 7950, float64(ghost.Rating), 1e-9)
	assert.Equal(t, 6, ghost.UnexcusedMisses)
	assert.Equal(t, 1, ghost.MissesSinceDecay)
}

func TestReveal_PromotionCadence(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.registerPlayer(t, 101, "Alice")
	e.registerPlayer(t, 102, "Bob")
	e.registerPlayer(t, 103, "Cara")

	// Default cadence is 4; the fourth reveal reshuffles.
	for i := 0; i < 4; i++ {
		_, err := e.open.Handle(ctx, OpenCheckInCommand{Group: "league"})
		require.NoError(t, err)
		e.playFullSeries(t, 101, 220, 220)
		e.playFullSeries(t, 102, 200, 200)
		e.playFullSeries(t, 103, 180, 180)
		res, err := e.reveal.Handle(ctx, RevealSessionCommand{Group: "league"})
		require.NoError(t, err)
		assert.Equal(t, i == 3, res.Reshuffled, "reveal %d", i+1)
	}

	assert.Len(t, e.publisher.ofType(shared.EventDivisionsReshuffled), 1)

	// Division 1 relegates its bottom two into division 2.
	bob, err := e.playerRepo.GetByChatID(ctx, 102)
	require.NoError(t, err)
	cara, err := e.playerRepo.GetByChatID(ctx, 103)
	require.NoError(t, err)
	assert.Equal(t, player.Division(2), bob.Division)
	assert.Equal(t, player.Division(2), cara.Division)
}

func TestReveal_ConfigMissingIsFatal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.registerPlayer(t, 101, "Alice")
	e.registerPlayer(t, 102, "Bob")
	e.registerPlayer(t, 103, "Cara")

	_, err := e.open.Handle(ctx, OpenCheckInCommand{Group: "league"})
	require.NoError(t, err)
	e.playFullSeries(t, 101, 225, 210)
	e.playFullSeries(t, 102, 200, 205)
	e.playFullSeries(t, 103, 180, 190)

	e.settings.err = shared.ErrConfigMissing
	_, err = e.reveal.Handle(ctx, RevealSessionCommand{Group: "league"})
	assert.ErrorIs(t, err, shared.ErrConfigMissing)

	// The session is untouched and reveals fine once config returns.
	e.settings.err = nil
	_, err = e.reveal.Handle(ctx, RevealSessionCommand{Group: "league"})
	assert.NoError(t, err)
}

func TestCancelThenReveal_Conflict(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.registerPlayer(t, 101, "Alice")

	_, err := e.open.Handle(ctx, OpenCheckInCommand{Group: "league"})
	require.NoError(t, err)

	_, err = e.cancel.Handle(ctx, CancelSessionCommand{Group: "league", AdminID: "admin", Reason: "lanes closed"})
	require.NoError(t, err)

	_, err = e.reveal.Handle(ctx, RevealSessionCommand{Group: "league", Force: true})
	assert.ErrorIs(t, err, shared.ErrRevealConflict)

	// A cancelled session frees the group for the next open.
	_, err = e.open.Handle(ctx, OpenCheckInCommand{Group: "league"})
	assert.NoError(t, err)
}

func TestToggleCheckIn_UnknownParticipant(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.open.Handle(ctx, OpenCheckInCommand{Group: "league"})
	require.NoError(t, err)

	_, err = e.toggle.Handle(ctx, ToggleCheckInCommand{Group: "league", ChatID: 999, Attending: true})
	assert.ErrorIs(t, err, shared.ErrUnknownParticipant)
}

func TestEditScore_BeforeReveal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.registerPlayer(t, 101, "Alice")

	_, err := e.open.Handle(ctx, OpenCheckInCommand{Group: "league"})
	require.NoError(t, err)
	e.playFullSeries(t, 101, 180, 190)

	res, err := e.edit.Handle(ctx, EditScoreCommand{Group: "league", ChatID: 101, GameIndex: 1, NewScore: 240})
	require.NoError(t, err)
	assert.Equal(t, 240, res.NewScore)

	snap := e.sessionRepo.last()
	assert.Equal(t, 240, snap.Submissions[res.PlayerID].Game1)
}

func TestCorrectScore_TwoStep(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.registerPlayer(t, 101, "Alice")
	e.registerPlayer(t, 102, "Bob")
	e.registerPlayer(t, 103, "Cara")

	_, err := e.open.Handle(ctx, OpenCheckInCommand{Group: "league"})
	require.NoError(t, err)
	e.playFullSeries(t, 101, 225, 210)
	e.playFullSeries(t, 102, 200, 205)
	e.playFullSeries(t, 103, 180, 190)

	_, err = e.reveal.Handle(ctx, RevealSessionCommand{Group: "league"})
	require.NoError(t, err)

	// Regular edits are locked after reveal; the admin override is not.
	_, err = e.edit.Handle(ctx, EditScoreCommand{Group: "league", ChatID: 101, GameIndex: 1, NewScore: 230})
	assert.ErrorIs(t, err, shared.ErrEditAfterReveal)

	staged, err := e.correct.Handle(ctx, CorrectScoreCommand{
		Group: "league", AdminID: "admin", ChatID: 101, GameIndex: 1, NewScore: 230,
	})
	require.NoError(t, err)
	assert.True(t, staged.Staged)
	require.NotEmpty(t, staged.ConfirmToken)

	// A different admin cannot confirm.
	_, err = e.correct.Handle(ctx, CorrectScoreCommand{
		Group: "league", AdminID: "impostor", ConfirmToken: staged.ConfirmToken,
	})
	assert.Error(t, err)

	applied, err := e.correct.Handle(ctx, CorrectScoreCommand{
		Group: "league", AdminID: "admin", ConfirmToken: staged.ConfirmToken,
	})
	require.NoError(t, err)
	assert.True(t, applied.Applied)
	assert.Equal(t, 225, applied.OldScore)
	assert.Equal(t, 230, applied.NewScore)

	// The token is single use.
	_, err = e.correct.Handle(ctx, CorrectScoreCommand{
		Group: "league", AdminID: "admin", ConfirmToken: staged.ConfirmToken,
	})
	assert.Error(t, err)
}

func TestStartSeason_ResetsStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.registerPlayer(t, 101, "Alice")
	e.registerPlayer(t, 102, "Bob")
	e.registerPlayer(t, 103, "Cara")

	_, err := e.open.Handle(ctx, OpenCheckInCommand{Group: "league"})
	require.NoError(t, err)
	e.playFullSeries(t, 101, 225, 210)
	e.playFullSeries(t, 102, 200, 205)
	e.playFullSeries(t, 103, 180, 190)
	_, err = e.reveal.Handle(ctx, RevealSessionCommand{Group: "league"})
	require.NoError(t, err)

	// Bob skipped two nights in the old season.
	bob, err := e.playerRepo.GetByChatID(ctx, 102)
	require.NoError(t, err)
	bob.RecordAbsence()
	bob.RecordAbsence()
	require.NoError(t, e.playerRepo.Update(ctx, bob))

	res, err := e.seasons.Handle(ctx, StartSeasonCommand{Name: "Winter 2027", AdminID: "admin"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.PlayersReset)

	alice, err := e.playerRepo.GetByChatID(ctx, 101)
	require.NoError(t, err)
	assert.Zero(t, alice.SeasonStats.SessionsPlayed)
	// Ratings carry across seasons.
	assert.NotEqual(t, player.DefaultRating, alice.Rating)

	// Absence counts are season-scoped.
	bob, err = e.playerRepo.GetByChatID(ctx, 102)
	require.NoError(t, err)
	assert.Zero(t, bob.UnexcusedMisses)
	assert.Zero(t, bob.MissesSinceDecay)
}

func TestRegisterPlayer_DuplicateChatID(t *testing.T) {
	e := newEnv(t)
	e.registerPlayer(t, 101, "Alice")

	_, err := e.register.Handle(context.Background(), RegisterPlayerCommand{
		ChatID: 101, DisplayName: "Alice Again",
	})
	assert.ErrorIs(t, err, shared.ErrPlayerAlreadyExists)
}

func TestSubmit_RequiresActiveSession(t *testing.T) {
	e := newEnv(t)
	e.registerPlayer(t, 101, "Alice")

	_, err := e.submit.Handle(context.Background(), SubmitScoreCommand{Group: "league", ChatID: 101, Score: 150})
	assert.ErrorIs(t, err, shared.ErrNoActiveSession)
}
