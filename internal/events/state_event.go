package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/gainguard/internal/gain"
	"github.com/tphakala/gainguard/internal/params"
	"github.com/tphakala/gainguard/internal/presets"
)

// StateChanged is published by the controller after every operation that
// changed parameters, modes or the ledger.
type StateChanged struct {
	ID            string              `json:"id"`
	Operation     string              `json:"operation"`
	Timestamp     time.Time           `json:"timestamp"`
	Ledger        gain.State          `json:"ledger"`
	Params        params.ParameterSet `json:"params"`
	Mode          params.Mode         `json:"mode"`
	BattleMode    presets.BattleMode  `json:"battle_mode"`
	ActiveProfile string              `json:"active_profile,omitempty"`
}

// NewStateChanged stamps a state event with a fresh ID and the current time.
func NewStateChanged(operation string) *StateChanged {
	return &StateChanged{
		ID:        uuid.NewString(),
		Operation: operation,
		Timestamp: time.Now(),
	}
}

// EventType implements Event.
func (e *StateChanged) EventType() string { return TypeStateChanged }

// GetTimestamp implements Event.
func (e *StateChanged) GetTimestamp() time.Time { return e.Timestamp }
