// Package presets contains the fixed battle-mode catalog: nine named
// bass/loudness/spatial targets, each paired with an equalizer curve.
package presets

import (
	"fmt"
	"strings"

	"github.com/tphakala/gainguard/internal/errors"
)

// BattleMode names one entry of the catalog.
type BattleMode int

const (
	Off BattleMode = iota
	BassWarfare
	ClarityStrike
	FullAssault
	SplMonster
	CrowdReach
	MaximumImpact
	BalancedBattle
	IndoorBattle

	numModes
)

var modeNames = [numModes]string{
	"off",
	"bass_warfare",
	"clarity_strike",
	"full_assault",
	"spl_monster",
	"crowd_reach",
	"maximum_impact",
	"balanced_battle",
	"indoor_battle",
}

// AllModes lists every battle mode in catalog order.
func AllModes() []BattleMode {
	modes := make([]BattleMode, 0, numModes)
	for m := Off; m < numModes; m++ {
		modes = append(modes, m)
	}
	return modes
}

func (m BattleMode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("battle_mode(%d)", int(m))
	}
	return modeNames[m]
}

// Valid reports whether m is a catalog entry.
func (m BattleMode) Valid() bool {
	return m >= Off && m < numModes
}

// ParseBattleMode resolves a mode name. Matching ignores case and accepts
// snake_case, kebab-case, spaces and CamelCase ("FullAssault").
func ParseBattleMode(name string) (BattleMode, error) {
	key := normalize(name)
	for m, n := range modeNames {
		if strings.ReplaceAll(n, "_", "") == key {
			return BattleMode(m), nil
		}
	}
	return Off, errors.Newf("unknown battle mode %q", name).
		Component("presets").
		Category(errors.CategoryValidation).
		Context("name", name).
		Build()
}

func normalize(name string) string {
	r := strings.NewReplacer("_", "", "-", "", " ", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(name)))
}

// MarshalText encodes the mode by name.
func (m BattleMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name using ParseBattleMode.
func (m *BattleMode) UnmarshalText(text []byte) error {
	parsed, err := ParseBattleMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
