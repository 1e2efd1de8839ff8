// Package shared contains common domain types, errors, and events.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these form the presentation boundary of the core.
// The chat rendering layer subscribes to these; the core never renders anything.
const (
	// Session lifecycle events
	EventCheckInOpened      EventType = "session.checkin_opened"
	EventCheckInUpdated     EventType = "session.checkin_updated"
	EventActivationReached  EventType = "session.activation_reached"
	EventSubmissionRecorded EventType = "session.submission_recorded"
	EventReminderDue        EventType = "session.reminder_due"
	EventRevealReady        EventType = "session.reveal_ready"
	EventRevealed           EventType = "session.revealed"
	EventSessionCancelled   EventType = "session.cancelled"

	// League events
	EventSeasonStarted      EventType = "league.season_started"
	EventPlayerRegistered   EventType = "league.player_registered"
	EventDivisionsReshuffled EventType = "league.divisions_reshuffled"

	// System events
	EventErrorOccurred EventType = "system.error"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Session Events
// ═══════════════════════════════════════════════════════════════════════════

// CheckInOpenedEvent is emitted when a session enters the check-in phase.
type CheckInOpenedEvent struct {
	BaseEvent
	GroupID     string    `json:"group_id"`
	SeasonID    string    `json:"season_id"`
	SessionDate time.Time `json:"session_date"`
}

// Payload implements Event interface.
func (e CheckInOpenedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"group_id":     e.GroupID,
		"season_id":    e.SeasonID,
		"session_date": e.SessionDate,
	}
}

// NewCheckInOpenedEvent creates a new CheckInOpenedEvent.
func NewCheckInOpenedEvent(sessionID, groupID, seasonID string, sessionDate time.Time) CheckInOpenedEvent {
	return CheckInOpenedEvent{
		BaseEvent:   NewBaseEvent(EventCheckInOpened, sessionID),
		GroupID:     groupID,
		SeasonID:    seasonID,
		SessionDate: sessionDate,
	}
}

// CheckInUpdatedEvent is emitted when a player toggles their check-in.
type CheckInUpdatedEvent struct {
	BaseEvent
	GroupID   string `json:"group_id"`
	PlayerID  string `json:"player_id"`
	Attending bool   `json:"attending"`
	Attendees int    `json:"attendees"`
}

// Payload implements Event interface.
func (e CheckInUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"group_id":  e.GroupID,
		"player_id": e.PlayerID,
		"attending": e.Attending,
		"attendees": e.Attendees,
	}
}

// NewCheckInUpdatedEvent creates a new CheckInUpdatedEvent.
func NewCheckInUpdatedEvent(sessionID, groupID, playerID string, attending bool, attendees int) CheckInUpdatedEvent {
	return CheckInUpdatedEvent{
		BaseEvent: NewBaseEvent(EventCheckInUpdated, sessionID),
		GroupID:   groupID,
		PlayerID:  playerID,
		Attending: attending,
		Attendees: attendees,
	}
}

// ActivationReachedEvent is emitted once, the moment the game-1 submission
// count reaches the activation threshold.
type ActivationReachedEvent struct {
	BaseEvent
	GroupID        string `json:"group_id"`
	GameOneEntries int    `json:"game_one_entries"`
}

// Payload implements Event interface.
func (e ActivationReachedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"group_id":         e.GroupID,
		"game_one_entries": e.GameOneEntries,
	}
}

// NewActivationReachedEvent creates a new ActivationReachedEvent.
func NewActivationReachedEvent(sessionID, groupID string, gameOneEntries int) ActivationReachedEvent {
	return ActivationReachedEvent{
		BaseEvent:      NewBaseEvent(EventActivationReached, sessionID),
		GroupID:        groupID,
		GameOneEntries: gameOneEntries,
	}
}

// SubmissionRecordedEvent is emitted after every accepted score submission or edit.
type SubmissionRecordedEvent struct {
	BaseEvent
	GroupID    string `json:"group_id"`
	PlayerID   string `json:"player_id"`
	GameIndex  int    `json:"game_index"`
	Score      int    `json:"score"`
	ReadyState string `json:"ready_state"` // session state after the submission
}

// Payload implements Event interface.
func (e SubmissionRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"group_id":    e.GroupID,
		"player_id":   e.PlayerID,
		"game_index":  e.GameIndex,
		"score":       e.Score,
		"ready_state": e.ReadyState,
	}
}

// NewSubmissionRecordedEvent creates a new SubmissionRecordedEvent.
func NewSubmissionRecordedEvent(sessionID, groupID, playerID string, gameIndex, score int, readyState string) SubmissionRecordedEvent {
	return SubmissionRecordedEvent{
		BaseEvent:  NewBaseEvent(EventSubmissionRecorded, sessionID),
		GroupID:    groupID,
		PlayerID:   playerID,
		GameIndex:  gameIndex,
		Score:      score,
		ReadyState: readyState,
	}
}

// ReminderDueEvent names the attending players who still owe submissions.
type ReminderDueEvent struct {
	BaseEvent
	GroupID string   `json:"group_id"`
	Pending []string `json:"pending"`
}

// Payload implements Event interface.
func (e ReminderDueEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"group_id": e.GroupID,
		"pending":  e.Pending,
	}
}

// NewReminderDueEvent creates a new ReminderDueEvent.
func NewReminderDueEvent(sessionID, groupID string, pending []string) ReminderDueEvent {
	return ReminderDueEvent{
		BaseEvent: NewBaseEvent(EventReminderDue, sessionID),
		GroupID:   groupID,
		Pending:   pending,
	}
}

// RevealReadyEvent is emitted once when every attending player has both games in.
// It is notification-only: no ratings are computed until reveal is requested.
type RevealReadyEvent struct {
	BaseEvent
	GroupID string `json:"group_id"`
	Players int    `json:"players"`
}

// Payload implements Event interface.
func (e RevealReadyEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"group_id": e.GroupID,
		"players":  e.Players,
	}
}

// NewRevealReadyEvent creates a new RevealReadyEvent.
func NewRevealReadyEvent(sessionID, groupID string, players int) RevealReadyEvent {
	return RevealReadyEvent{
		BaseEvent: NewBaseEvent(EventRevealReady, sessionID),
		GroupID:   groupID,
		Players:   players,
	}
}

// RevealedEvent carries the full reveal payload to the presentation layer.
// The Results field is the session's reveal payload; it is produced exactly
// once per session and repeated reveal requests re-emit the same value.
type RevealedEvent struct {
	BaseEvent
	GroupID string      `json:"group_id"`
	Results interface{} `json:"results"`
}

// Payload implements Event interface.
func (e RevealedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"group_id": e.GroupID,
		"results":  e.Results,
	}
}

// NewRevealedEvent creates a new RevealedEvent.
func NewRevealedEvent(sessionID, groupID string, results interface{}) RevealedEvent {
	return RevealedEvent{
		BaseEvent: NewBaseEvent(EventRevealed, sessionID),
		GroupID:   groupID,
		Results:   results,
	}
}

// SessionCancelledEvent is emitted when a session is cancelled administratively.
type SessionCancelledEvent struct {
	BaseEvent
	GroupID string `json:"group_id"`
	Reason  string `json:"reason,omitempty"`
}

// Payload implements Event interface.
func (e SessionCancelledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"group_id": e.GroupID,
		"reason":   e.Reason,
	}
}

// NewSessionCancelledEvent creates a new SessionCancelledEvent.
func NewSessionCancelledEvent(sessionID, groupID, reason string) SessionCancelledEvent {
	return SessionCancelledEvent{
		BaseEvent: NewBaseEvent(EventSessionCancelled, sessionID),
		GroupID:   groupID,
		Reason:    reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// League Events
// ═══════════════════════════════════════════════════════════════════════════

// SeasonStartedEvent is emitted when a new season becomes active.
type SeasonStartedEvent struct {
	BaseEvent
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
}

// Payload implements Event interface.
func (e SeasonStartedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":       e.Name,
		"start_date": e.StartDate,
	}
}

// NewSeasonStartedEvent creates a new SeasonStartedEvent.
func NewSeasonStartedEvent(seasonID, name string, startDate time.Time) SeasonStartedEvent {
	return SeasonStartedEvent{
		BaseEvent: NewBaseEvent(EventSeasonStarted, seasonID),
		Name:      name,
		StartDate: startDate,
	}
}

// PlayerRegisteredEvent is emitted when a new player joins the league.
type PlayerRegisteredEvent struct {
	BaseEvent
	ChatID      string  `json:"chat_id"`
	DisplayName string  `json:"display_name"`
	Division    int     `json:"division"`
	Rating      float64 `json:"rating"`
}

// Payload implements Event interface.
func (e PlayerRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"chat_id":      e.ChatID,
		"display_name": e.DisplayName,
		"division":     e.Division,
		"rating":       e.Rating,
	}
}

// NewPlayerRegisteredEvent creates a new PlayerRegisteredEvent.
func NewPlayerRegisteredEvent(playerID, chatID, displayName string, division int, rating float64) PlayerRegisteredEvent {
	return PlayerRegisteredEvent{
		BaseEvent:   NewBaseEvent(EventPlayerRegistered, playerID),
		ChatID:      chatID,
		DisplayName: displayName,
		Division:    division,
		Rating:      rating,
	}
}

// DivisionsReshuffledEvent is emitted when a promotion/relegation pass runs.
type DivisionsReshuffledEvent struct {
	BaseEvent
	Promoted  []string `json:"promoted"`
	Relegated []string `json:"relegated"`
}

// Payload implements Event interface.
func (e DivisionsReshuffledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"promoted":  e.Promoted,
		"relegated": e.Relegated,
	}
}

// NewDivisionsReshuffledEvent creates a new DivisionsReshuffledEvent.
func NewDivisionsReshuffledEvent(seasonID string, promoted, relegated []string) DivisionsReshuffledEvent {
	return DivisionsReshuffledEvent{
		BaseEvent: NewBaseEvent(EventDivisionsReshuffled, seasonID),
		Promoted:  promoted,
		Relegated: relegated,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// System Events
// ═══════════════════════════════════════════════════════════════════════════

// ErrorOccurredEvent surfaces a command failure to the presentation layer.
type ErrorOccurredEvent struct {
	BaseEvent
	Kind    string `json:"kind"`
	Context string `json:"context"`
}

// Payload implements Event interface.
func (e ErrorOccurredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"kind":    e.Kind,
		"context": e.Context,
	}
}

// NewErrorOccurredEvent creates a new ErrorOccurredEvent.
func NewErrorOccurredEvent(aggregateID, kind, context string) ErrorOccurredEvent {
	return ErrorOccurredEvent{
		BaseEvent: NewBaseEvent(EventErrorOccurred, aggregateID),
		Kind:      kind,
		Context:   context,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler processes a single event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
