package presets

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/params"
)

func TestParseBattleMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want BattleMode
	}{
		{"off", Off},
		{"bass_warfare", BassWarfare},
		{"Clarity-Strike", ClarityStrike},
		{"FullAssault", FullAssault},
		{" spl monster ", SplMonster},
		{"CROWD_REACH", CrowdReach},
		{"maximum-impact", MaximumImpact},
		{"balanced_battle", BalancedBattle},
		{"indoorbattle", IndoorBattle},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseBattleMode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseBattleMode("stealth")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestBattleModeText(t *testing.T) {
	t.Parallel()

	assert.Len(t, AllModes(), 9)
	for _, m := range AllModes() {
		text, err := m.MarshalText()
		require.NoError(t, err)

		var back BattleMode
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, m, back)
	}
	assert.Equal(t, "battle_mode(42)", BattleMode(42).String())
	assert.False(t, BattleMode(-1).Valid())
}

func TestCurvesForDefaultLayout(t *testing.T) {
	t.Parallel()

	layout := params.DefaultLayout(1500)

	tests := []struct {
		mode BattleMode
		want [params.NumBands]int
	}{
		{Off, [params.NumBands]int{0, 0, 0, 0, 0}},
		{BassWarfare, [params.NumBands]int{1500, 1200, -450, 0, 450}},
		{ClarityStrike, [params.NumBands]int{750, 600, -300, 1050, 900}},
		{FullAssault, [params.NumBands]int{1500, 1350, -200, 1200, 1050}},
		{SplMonster, [params.NumBands]int{1500, 1500, 900, 450, 0}},
		{CrowdReach, [params.NumBands]int{1200, 750, -400, 1350, 1200}},
		{MaximumImpact, [params.NumBands]int{1500, 1350, -200, 1200, 1050}},
		{BalancedBattle, [params.NumBands]int{1500, 1200, -450, 0, 450}},
		{IndoorBattle, [params.NumBands]int{750, 600, -300, 1050, 900}},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			t.Parallel()
			p, ok := Lookup(tt.mode)
			require.True(t, ok)
			assert.Equal(t, tt.mode, p.Mode)
			assert.Equal(t, tt.want, p.Levels(layout))
		})
	}
}

func TestFixedCutsClampToBandRange(t *testing.T) {
	t.Parallel()

	layout := params.DefaultLayout(250)
	p, _ := Lookup(CrowdReach)
	levels := p.Levels(layout)
	assert.Equal(t, -250, levels[params.BandLowMid])
	assert.Equal(t, 225, levels[params.BandPresence])
}

func TestCatalogScalars(t *testing.T) {
	t.Parallel()

	all := All()
	require.Len(t, all, 9)
	for i, p := range all {
		assert.Equal(t, BattleMode(i), p.Mode)
		assert.LessOrEqual(t, p.Bass, params.MaxBassLevel)
		assert.LessOrEqual(t, p.LoudnessMillibels, params.MaxLoudnessMillibels)
		assert.LessOrEqual(t, p.Virtualizer, params.MaxVirtualizer)
	}

	// Mutating the returned slice leaves the catalog untouched
	all[1].Bass = 0
	p, _ := Lookup(BassWarfare)
	assert.Equal(t, 1000, p.Bass)

	_, ok := Lookup(BattleMode(99))
	assert.False(t, ok)
}

func TestPresetJSON(t *testing.T) {
	t.Parallel()

	p, _ := Lookup(SplMonster)
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"mode":"spl_monster","bass":1000,"loudness_mb":1000,"virtualizer":300,"curve":[1500,1500,900,450,0]}`,
		string(data))
}
