// Package events describes what happens in the arena, for spectators and
// anything subscribed to the Redis channel.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

//go:generate mockgen -source=events.go -destination=mock_publisher.go -package=events

// DefaultChannel is the Pub/Sub channel events are published on.
const DefaultChannel = "channel:rps:events"

const (
	TypeBotJoined       = "bot_joined"
	TypeBotEvicted      = "bot_evicted"
	TypeListenerMessage = "listener_message"
	TypeBattleStarted   = "battle_started"
	TypeBattleFinished  = "battle_finished"
	TypeBattleFailed    = "battle_failed"
)

// Event is one message published to spectators.
type Event struct {
	Type    string          `json:"event"`
	Time    time.Time       `json:"time"`
	Payload json.RawMessage `json:"payload"`
}

// BotPayload is the payload for "bot_joined" and "bot_evicted".
type BotPayload struct {
	Index  int    `json:"index"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Addr   string `json:"addr,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ListenerMessagePayload is the payload for "listener_message".
type ListenerMessagePayload struct {
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}

// BattleStartedPayload is the payload for "battle_started".
type BattleStartedPayload struct {
	BattleID string `json:"battle_id"`
	Bot1     string `json:"bot1"`
	Bot2     string `json:"bot2"`
	Rounds   int    `json:"rounds"`
}

// BattleFinishedPayload is the payload for "battle_finished".
type BattleFinishedPayload struct {
	BattleID string  `json:"battle_id"`
	Bot1     string  `json:"bot1"`
	Bot2     string  `json:"bot2"`
	Wins1    int     `json:"wins1"`
	Wins2    int     `json:"wins2"`
	Ties     int     `json:"ties"`
	Elapsed  float64 `json:"elapsed_seconds"`
	CDF1     float64 `json:"cdf1"`
	CDF2     float64 `json:"cdf2"`
}

// BattleFailedPayload is the payload for "battle_failed".
type BattleFailedPayload struct {
	BattleID string `json:"battle_id"`
	Bot1     string `json:"bot1"`
	Bot2     string `json:"bot2"`
	Error    string `json:"error"`
}

// New builds an event of the given type around payload.
func New(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Time: time.Now().UTC(), Payload: raw}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Publisher delivers events. Implementations must not block for long; the
// arena calls them from its loop.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Multi fans an event out to every publisher, continuing past failures.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
