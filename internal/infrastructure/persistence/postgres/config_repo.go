package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/strike-hub/strike-league-hub/internal/domain/rating"
	"github.com/strike-hub/strike-league-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SETTINGS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SettingsRepository implements rating.SettingsRepository against the
// single-row league_settings table. Admins edit the row directly; the engine
// picks the change up on the next evaluation without a redeploy.
type SettingsRepository struct {
	conn *Connection
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(conn *Connection) *SettingsRepository {
	return &SettingsRepository{conn: conn}
}

// Load reads the settings snapshot. A missing or invalid row is a fatal
// configuration error, never silently replaced by defaults.
func (r *SettingsRepository) Load(ctx context.Context) (rating.Settings, error) {
	query := `
		SELECT k_factor, event_multiplier, bonus_rules, tiers,
			   activation_threshold, reminder_interval_seconds, reminder_throttle_seconds,
			   decay_threshold, decay_penalty,
			   promotion_cadence, promotion_count, division_count
		FROM league_settings
		WHERE id = 1
	`

	var s rating.Settings
	var bonusRules, tiers []byte
	var reminderInterval, reminderThrottle int

	err := r.conn.QueryRow(ctx, query).Scan(
		&s.KFactor,
		&s.EventMultiplier,
		&bonusRules,
		&tiers,
		&s.ActivationThreshold,
		&reminderInterval,
		&reminderThrottle,
		&s.DecayThreshold,
		&s.DecayPenalty,
		&s.PromotionCadence,
		&s.PromotionCount,
		&s.DivisionCount,
	)
	if err != nil {
		if IsNoRows(err) {
			return rating.Settings{}, shared.ErrConfigMissing
		}
		return rating.Settings{}, fmt.Errorf("failed to load league settings: %w", err)
	}

	if err := json.Unmarshal(bonusRules, &s.BonusRules); err != nil {
		return rating.Settings{}, fmt.Errorf("failed to unmarshal bonus rules: %w", err)
	}
	if err := json.Unmarshal(tiers, &s.Tiers); err != nil {
		return rating.Settings{}, fmt.Errorf("failed to unmarshal tiers: %w", err)
	}

	s.ReminderInterval = time.Duration(reminderInterval) * time.Second
	s.ReminderThrottle = time.Duration(reminderThrottle) * time.Second

	if err := s.Validate(); err != nil {
		return rating.Settings{}, fmt.Errorf("%w: %v", shared.ErrConfigMissing, err)
	}

	return s, nil
}

// Seed writes the default settings row if none exists. Called once at
// startup so a fresh database is immediately playable.
func (r *SettingsRepository) Seed(ctx context.Context) error {
	defaults := rating.DefaultSettings()

	bonusRules, err := json.Marshal(defaults.BonusRules)
	if err != nil {
		return fmt.Errorf("failed to marshal bonus rules: %w", err)
	}
	tiers, err := json.Marshal(defaults.Tiers)
	if err != nil {
		return fmt.Errorf("failed to marshal tiers: %w", err)
	}

	query := `
		INSERT INTO league_settings (
			id, k_factor, event_multiplier, bonus_rules, tiers,
			activation_threshold, reminder_interval_seconds, reminder_throttle_seconds,
			decay_threshold, decay_penalty,
			promotion_cadence, promotion_count, division_count
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = r.conn.Exec(ctx, query,
		defaults.KFactor,
		defaults.EventMultiplier,
		bonusRules,
		tiers,
		defaults.ActivationThreshold,
		int(defaults.ReminderInterval.Seconds()),
		int(defaults.ReminderThrottle.Seconds()),
		defaults.DecayThreshold,
		defaults.DecayPenalty,
		defaults.PromotionCadence,
		defaults.PromotionCount,
		defaults.DivisionCount,
	)
	if err != nil {
		return fmt.Errorf("failed to seed league settings: %w", err)
	}

	return nil
}
