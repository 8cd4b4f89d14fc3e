package controller

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/logger"
	"github.com/tphakala/gainguard/internal/params"
	"github.com/tphakala/gainguard/internal/presets"
)

// Slot identifies a profile slot.
type Slot int

const (
	SlotA Slot = iota
	SlotB
	SlotC

	// NumSlots is the number of profile slots.
	NumSlots = 3
)

// NoSlot marks that no profile is active.
const NoSlot Slot = -1

// Valid reports whether s names a real slot.
func (s Slot) Valid() bool {
	return s >= SlotA && s < NumSlots
}

func (s Slot) String() string {
	if !s.Valid() {
		return ""
	}
	return string(rune('A' + int(s)))
}

// MarshalText encodes the slot as its letter.
func (s Slot) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a slot letter; an empty value decodes to NoSlot.
func (s *Slot) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = NoSlot
		return nil
	}
	parsed, err := ParseSlot(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSlot parses "A", "b", "slot_c" and the like.
func ParseSlot(name string) (Slot, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "SLOT_")
	n = strings.TrimPrefix(n, "SLOT")
	if len(n) == 1 {
		if s := Slot(n[0] - 'A'); s.Valid() {
			return s, nil
		}
	}
	return NoSlot, errors.Newf("unknown profile slot %q", name).
		Component("controller").
		Category(errors.CategoryValidation).
		Build()
}

// Profile is a named snapshot of the parameter set.
type Profile struct {
	ID         uuid.UUID           `json:"id"`
	Name       string              `json:"name"`
	Slot       Slot                `json:"slot"`
	CreatedAt  time.Time           `json:"created_at"`
	Params     params.ParameterSet `json:"params"`
	BattleMode presets.BattleMode  `json:"battle_mode"`
}

func profileName(slot Slot, mode presets.BattleMode) string {
	return fmt.Sprintf("Profile %s · %s", slot, mode)
}

// SaveProfile stores the current parameters in slot, overwriting whatever
// was there.
func (c *Controller) SaveProfile(slot Slot) (Profile, error) {
	if !slot.Valid() {
		return Profile{}, invalidSlot(slot)
	}

	c.mu.Lock()
	p := Profile{
		ID:         uuid.New(),
		Name:       profileName(slot, c.battle),
		Slot:       slot,
		CreatedAt:  time.Now(),
		Params:     c.params,
		BattleMode: c.battle,
	}
	c.slots[slot] = &p
	c.mu.Unlock()

	c.logger.Info("profile saved",
		logger.String("slot", slot.String()),
		logger.String("name", p.Name))
	c.publish("save_profile")
	return p, nil
}

// LoadProfile replays a saved profile through the live setters, so the
// ledger and every provider see the restored values. All sub-steps run;
// the returned error only describes provider failures, except for an empty
// slot which is a not-found error and changes nothing.
func (c *Controller) LoadProfile(slot Slot) error {
	if !slot.Valid() {
		return invalidSlot(slot)
	}

	c.mu.RLock()
	saved := c.slots[slot]
	c.mu.RUnlock()
	if saved == nil {
		return errors.Newf("profile slot %s is empty", slot).
			Component("controller").
			Category(errors.CategoryNotFound).
			Build()
	}
	p := saved.Params

	// Saved EQ levels are replayed after bass boost and clarity, which
	// derive bands of their own.
	fns := []func() error{
		func() error { return c.setBassBoost(p.BassLevel) },
		func() error { return c.setBassFrequency(p.BassFrequencyHz) },
		func() error { return c.setLoudness(p.LoudnessMillibels) },
		func() error { return c.setClarity(p.Clarity) },
		func() error { return c.setVirtualizer(p.Virtualizer) },
	}
	for band, level := range p.EqLevels {
		fns = append(fns, func() error { return c.setEqBand(band, level) })
	}
	fns = append(fns,
		func() error { return c.setCompressor(func(dst *params.Compressor) { *dst = p.Compressor }) },
		func() error { return c.setLimiter(func(dst *params.Limiter) { *dst = p.Limiter }) },
		func() error { return c.setStereoWidener(p.StereoWidener) },
		func() error { return c.setExciter(p.Exciter) },
		func() error { return c.setReverb(p.Reverb) },
	)

	err := c.steps("load_profile", fns...)

	c.mu.Lock()
	c.battle = saved.BattleMode
	c.active = slot
	c.mu.Unlock()

	c.logger.Info("profile loaded",
		logger.String("slot", slot.String()),
		logger.String("name", saved.Name))
	c.publish("load_profile")
	return err
}

// ClearProfile empties slot. Clearing the active slot clears the marker.
func (c *Controller) ClearProfile(slot Slot) error {
	if !slot.Valid() {
		return invalidSlot(slot)
	}

	c.mu.Lock()
	c.slots[slot] = nil
	if c.active == slot {
		c.active = NoSlot
	}
	c.mu.Unlock()

	c.logger.Debug("profile cleared", logger.String("slot", slot.String()))
	c.publish("clear_profile")
	return nil
}

// Profiles returns a copy of every slot; empty slots are nil.
func (c *Controller) Profiles() [NumSlots]*Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out [NumSlots]*Profile
	for i, p := range c.slots {
		if p != nil {
			cp := *p
			out[i] = &cp
		}
	}
	return out
}

// ActiveProfile returns the slot of the last loaded profile, or NoSlot.
func (c *Controller) ActiveProfile() Slot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

func invalidSlot(slot Slot) error {
	return errors.Newf("invalid profile slot %d", int(slot)).
		Component("controller").
		Category(errors.CategoryValidation).
		Build()
}
