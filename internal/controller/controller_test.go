package controller_test

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/gainguard/internal/controller"
	"github.com/tphakala/gainguard/internal/effects"
	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/events"
	"github.com/tphakala/gainguard/internal/gain"
	"github.com/tphakala/gainguard/internal/logger"
	"github.com/tphakala/gainguard/internal/params"
	"github.com/tphakala/gainguard/internal/presets"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type capturePublisher struct {
	mu     sync.Mutex
	events []*events.StateChanged
}

func (p *capturePublisher) TryPublish(event any) bool {
	if ev, ok := event.(*events.StateChanged); ok {
		p.mu.Lock()
		p.events = append(p.events, ev)
		p.mu.Unlock()
	}
	return true
}

func (p *capturePublisher) operations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ops := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		ops = append(ops, ev.Operation)
	}
	return ops
}

type fakeMetrics struct {
	mu       sync.Mutex
	failures map[string]int
	peaks    int
	clipped  int
}

func (m *fakeMetrics) RecordProviderFailure(provider, operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = make(map[string]int)
	}
	m.failures[provider+"."+operation]++
}

func (m *fakeMetrics) ObservePeak(_ float64, clipped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peaks++
	if clipped {
		m.clipped++
	}
}

func newController(t *testing.T, opts ...controller.Option) (*controller.Controller, *effects.Recorder) {
	t.Helper()
	rec := effects.NewRecorder()
	opts = append([]controller.Option{
		controller.WithLogger(logger.NewSlogLogger(&bytes.Buffer{}, logger.LogLevelError, time.UTC)),
	}, opts...)
	return controller.New(controller.DefaultConfig(), rec.Providers(), opts...), rec
}

func lastArg(t *testing.T, rec *effects.Recorder, provider, method string, index int) any {
	t.Helper()
	call, ok := rec.Last(provider, method)
	require.True(t, ok, "no call to %s.%s", provider, method)
	require.Greater(t, len(call.Args), index)
	return call.Args[index]
}

// lastBandLevel returns the level most recently forwarded for band.
func lastBandLevel(t *testing.T, rec *effects.Recorder, band int) int {
	t.Helper()
	calls := rec.CallsTo(effects.ProviderEqualizer, "set_band_level")
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Args[0] == band {
			return calls[i].Args[1].(int)
		}
	}
	require.Failf(t, "band never forwarded", "band %d", band)
	return 0
}

// overBudget drives the ledger to the 48.5 dB scenario.
func overBudget(c *controller.Controller) {
	c.SetBassBoost(1000)
	c.SetEqBand(params.BandSubBass, 1500)
	c.SetLoudness(1000)
	c.SetCompressorMakeupGain(10)
	c.SetExciter(true, 50, 50)
}

func TestOverBudgetScenario(t *testing.T) {
	t.Parallel()

	c, rec := newController(t)
	overBudget(c)

	st := c.Ledger()
	assert.InDelta(t, 12.0, st.Source(gain.BassBoost), 1e-9)
	assert.InDelta(t, 15.0, st.Source(gain.EqualizerPeak), 1e-9)
	assert.InDelta(t, 10.0, st.Source(gain.Loudness), 1e-9)
	assert.InDelta(t, 10.0, st.Source(gain.CompressorMakeup), 1e-9)
	assert.InDelta(t, 1.5, st.Source(gain.Exciter), 1e-9)
	assert.InDelta(t, 48.5, st.TotalDb, 1e-9)
	assert.InDelta(t, 24.0, st.ReductionDb, 1e-9)
	assert.True(t, st.AgrActive)

	// requested values stay in the parameter set
	p := c.Params()
	assert.Equal(t, 1000, p.LoudnessMillibels)
	assert.Equal(t, 1000, p.BassLevel)

	// providers receive the protected values
	assert.Equal(t, 0, lastArg(t, rec, effects.ProviderLoudness, "set_target_gain", 0))
	assert.Equal(t, 700, lastArg(t, rec, effects.ProviderBassBoost, "set_strength", 0))
}

func TestSetEqBandForwardsAdjustedLevel(t *testing.T) {
	t.Parallel()

	c, rec := newController(t)
	c.SetLoudness(500)
	// total 14, reduction 5: positive bands lose 250 mB
	c.SetEqBand(params.BandPresence, 900)

	assert.InDelta(t, 5.0, c.Ledger().ReductionDb, 1e-9)
	call, ok := rec.Last(effects.ProviderEqualizer, "set_band_level")
	require.True(t, ok)
	assert.Equal(t, []any{params.BandPresence, 650}, call.Args)
	assert.Equal(t, 900, c.Params().EqLevels[params.BandPresence])

	c.SetEqBand(params.BandLowMid, -600)
	call, _ = rec.Last(effects.ProviderEqualizer, "set_band_level")
	assert.Equal(t, []any{params.BandLowMid, -600}, call.Args, "cuts are never reduced")
}

func TestSetBassBoostDerivedSignals(t *testing.T) {
	t.Parallel()

	c, rec := newController(t)
	c.SetBassBoost(500)

	assert.InDelta(t, 0.3, lastArg(t, rec, effects.ProviderDSP, "set_sub_harmonic", 0), 1e-9)
	assert.InDelta(t, 0.2, lastArg(t, rec, effects.ProviderDSP, "set_exciter_amount", 0), 1e-9)
	assert.Equal(t, true, lastArg(t, rec, effects.ProviderDSP, "set_bass_boost_mode", 0))

	levels := c.Params().EqLevels
	assert.Equal(t, 750, levels[params.BandSubBass])
	assert.Equal(t, 500, levels[params.BandBass])

	// the derived EQ bands do not count as an equalizer peak
	st := c.Ledger()
	assert.InDelta(t, 6.0, st.TotalDb, 1e-9)
	assert.Zero(t, st.Source(gain.EqualizerPeak))
	assert.Equal(t, 500, lastArg(t, rec, effects.ProviderBassBoost, "set_strength", 0))
}

func TestSettersClampSilently(t *testing.T) {
	t.Parallel()

	c, _ := newController(t)
	c.SetBassBoost(5000)
	c.SetBassFrequency(5)
	c.SetLoudness(-20)
	c.SetClarity(400)
	c.SetVirtualizer(-1)
	c.SetEqBand(params.BandLowMid, 99999)
	c.SetEqBand(params.NumBands, 100)
	c.SetCompressorThreshold(-100)
	c.SetCompressorRatio(50)
	c.SetLimiterCeiling(-9)
	c.SetLimiterRelease(1)
	c.SetStereoWidener(true, 500)
	c.SetReverb(true, 42)

	p := c.Params()
	assert.Equal(t, params.MaxBassLevel, p.BassLevel)
	assert.Equal(t, params.MinBassFrequencyHz, p.BassFrequencyHz)
	assert.Equal(t, 0, p.LoudnessMillibels)
	assert.Equal(t, params.MaxClarity, p.Clarity)
	assert.Equal(t, 0, p.Virtualizer)
	assert.Equal(t, params.DefaultBandRangeMillibels, p.EqLevels[params.BandLowMid])
	assert.InDelta(t, params.MinCompressorThresholdDb, p.Compressor.ThresholdDb, 1e-9)
	assert.InDelta(t, params.MaxCompressorRatio, p.Compressor.Ratio, 1e-9)
	assert.InDelta(t, params.MinLimiterCeilingDb, p.Limiter.CeilingDb, 1e-9)
	assert.InDelta(t, params.MinLimiterReleaseMs, p.Limiter.ReleaseMs, 1e-9)
	assert.Equal(t, params.MaxStereoWidth, p.StereoWidener.Width)
	assert.Equal(t, params.MaxReverbPreset, p.Reverb.Preset)
}

func TestSetClarityShapesPresenceAndAir(t *testing.T) {
	t.Parallel()

	c, _ := newController(t)
	c.SetClarity(50)

	levels := c.Params().EqLevels
	assert.Equal(t, 750, levels[params.BandPresence])
	assert.Equal(t, 450, levels[params.BandAir])
	assert.Zero(t, c.Ledger().TotalDb)
}

func TestCompressorMakeupCountsOnlyWhenEnabled(t *testing.T) {
	t.Parallel()

	c, _ := newController(t)
	c.SetCompressorMakeupGain(8)
	assert.InDelta(t, 8.0, c.Ledger().Source(gain.CompressorMakeup), 1e-9)

	c.SetCompressorEnabled(false)
	assert.Zero(t, c.Ledger().Source(gain.CompressorMakeup))
	assert.InDelta(t, 8.0, c.Params().Compressor.MakeupGainDb, 1e-9)
}

func TestSafeModeOffDropsReduction(t *testing.T) {
	t.Parallel()

	c, rec := newController(t)
	overBudget(c)
	require.Positive(t, c.Ledger().ReductionDb)

	c.SetSafeMode(false)
	st := c.Ledger()
	assert.Zero(t, st.ReductionDb)
	assert.False(t, st.AgrActive)
	assert.InDelta(t, 48.5, st.TotalDb, 1e-9, "sources are kept")
	assert.False(t, c.Mode().SafeMode)

	// the unprotected values are re-forwarded
	assert.Equal(t, 1000, lastArg(t, rec, effects.ProviderLoudness, "set_target_gain", 0))
	assert.Equal(t, 1000, lastArg(t, rec, effects.ProviderBassBoost, "set_strength", 0))
}

func TestSafeModeOffRestoresReducedBands(t *testing.T) {
	t.Parallel()

	c, rec := newController(t)
	overBudget(c)
	require.Less(t, lastBandLevel(t, rec, params.BandSubBass), 1500)

	c.SetSafeMode(false)
	assert.Zero(t, c.Ledger().ReductionDb)
	assert.Equal(t, 1500, lastBandLevel(t, rec, params.BandSubBass))

	c.SetSafeMode(true)
	assert.Equal(t, c.Ledger().AdjustedEqLevel(1500), lastBandLevel(t, rec, params.BandSubBass))
}

func TestReductionChangeReforwardsBoostedBands(t *testing.T) {
	t.Parallel()

	c, rec := newController(t)
	c.SetEqBand(params.BandPresence, 1500)
	c.SetEqBand(params.BandLowMid, -600)
	first := c.Ledger()
	require.Positive(t, first.ReductionDb)
	assert.Equal(t, first.AdjustedEqLevel(1500), lastBandLevel(t, rec, params.BandPresence))

	c.SetLoudness(1000)
	second := c.Ledger()
	require.Greater(t, second.ReductionDb, first.ReductionDb)
	assert.Equal(t, second.AdjustedEqLevel(1500), lastBandLevel(t, rec, params.BandPresence))
	assert.Len(t, rec.CallsTo(effects.ProviderEqualizer, "set_band_level"), 3, "cuts are not re-sent")
}

func TestEqualizerPeakTracksExplicitBands(t *testing.T) {
	t.Parallel()

	t.Run("bass boost overwrites an explicit band", func(t *testing.T) {
		t.Parallel()

		c, _ := newController(t)
		c.SetEqBand(params.BandSubBass, 1500)
		require.InDelta(t, 15.0, c.Ledger().Source(gain.EqualizerPeak), 1e-9)

		c.SetBassBoost(0)
		assert.Equal(t, [params.NumBands]int{}, c.Params().EqLevels)
		assert.Zero(t, c.Ledger().Source(gain.EqualizerPeak))
		assert.False(t, c.Ledger().AgrActive)
	})

	t.Run("derived bands stay out after an explicit edit", func(t *testing.T) {
		t.Parallel()

		c, _ := newController(t)
		c.SetBassBoost(1000)
		assert.Zero(t, c.Ledger().Source(gain.EqualizerPeak))

		c.SetEqBand(params.BandAir, 100)
		assert.Equal(t, [params.NumBands]int{1500, 1000, 0, 0, 100}, c.Params().EqLevels)
		assert.InDelta(t, 1.0, c.Ledger().Source(gain.EqualizerPeak), 1e-9)
	})

	t.Run("clarity overwrites an explicit band", func(t *testing.T) {
		t.Parallel()

		c, _ := newController(t)
		c.SetEqBand(params.BandPresence, 900)
		c.SetClarity(0)
		assert.Zero(t, c.Ledger().Source(gain.EqualizerPeak))
	})

	t.Run("reset forgets explicit bands", func(t *testing.T) {
		t.Parallel()

		c, _ := newController(t)
		c.SetEqBand(params.BandLowMid, 900)
		require.NoError(t, c.ResetAll())
		c.SetEqBand(params.BandAir, 200)
		assert.InDelta(t, 2.0, c.Ledger().Source(gain.EqualizerPeak), 1e-9)
	})
}

func TestHardwareProtectionIsOrthogonal(t *testing.T) {
	t.Parallel()

	c, rec := newController(t)
	overBudget(c)
	before := c.Ledger()

	c.SetHardwareProtection(true)
	assert.Equal(t, before, c.Ledger())
	call, ok := rec.Last(effects.ProviderDynamics, "set_output_ceiling")
	require.True(t, ok)
	assert.Equal(t, []any{true, params.HardwareCeilingDb}, call.Args)
	assert.InDelta(t, params.HardwareCeilingDb, c.Snapshot().CeilingDb, 1e-9)

	c.SetSafeMode(false)
	c.SetDangerMode(true)
	m := c.Mode()
	assert.True(t, m.HardwareProtection, "other modes never clear hardware protection")
	assert.InDelta(t, params.HardwareCeilingDb, c.Snapshot().CeilingDb, 1e-9)

	c.SetHardwareProtection(false)
	assert.Zero(t, c.Ledger().ReductionDb)
	assert.Zero(t, c.Snapshot().CeilingDb, "no limiter and no hardware ceiling")
}

func TestDangerModeBypassesLimiter(t *testing.T) {
	t.Parallel()

	c, rec := newController(t)

	c.SetDangerMode(true)
	call, ok := rec.Last(effects.ProviderDynamics, "set_limiter")
	require.True(t, ok)
	assert.Equal(t, true, call.Args[1])

	rec.Reset()
	c.SetLimiterThreshold(-6)
	assert.Empty(t, rec.CallsTo(effects.ProviderDynamics, "set_limiter"), "edits are stored only while bypassed")
	assert.InDelta(t, -6.0, c.Params().Limiter.ThresholdDb, 1e-9)
	assert.True(t, c.Mode().SafeMode)

	c.SetDangerMode(false)
	call, ok = rec.Last(effects.ProviderDynamics, "set_limiter")
	require.True(t, ok)
	lim, ok := call.Args[0].(params.Limiter)
	require.True(t, ok)
	assert.InDelta(t, -6.0, lim.ThresholdDb, 1e-9)
	assert.True(t, lim.Enabled)
	assert.Equal(t, false, call.Args[1])
}

func TestAudiophileModeTransition(t *testing.T) {
	t.Parallel()

	c, rec := newController(t)
	c.SetBassBoost(500)
	c.SetExciter(true, 60, 60)
	c.SetCompressorMakeupGain(9)

	c.SetAudiophileMode(true)

	p, m := c.Params(), c.Mode()
	assert.False(t, p.Compressor.Enabled)
	assert.False(t, p.Exciter.Enabled)
	assert.True(t, m.AudiophileMode)
	assert.True(t, m.HardwareProtection)
	assert.False(t, m.SubHarmonicEnabled)
	assert.Equal(t, params.QualityAudiophile, m.QualityTier)

	st := c.Ledger()
	assert.Zero(t, st.Source(gain.CompressorMakeup))
	assert.Zero(t, st.Source(gain.Exciter))

	assert.InDelta(t, 0.0, lastArg(t, rec, effects.ProviderDSP, "set_sub_harmonic", 0), 1e-9)
	assert.Equal(t, params.QualityAudiophile, lastArg(t, rec, effects.ProviderDSP, "set_quality_tier", 0))
	assert.Equal(t, true, lastArg(t, rec, effects.ProviderDynamics, "set_output_ceiling", 0))

	// hardware protection is forced while audiophile
	c.SetHardwareProtection(false)
	assert.True(t, c.Mode().HardwareProtection)

	// bass boost no longer drives sub-harmonic synthesis
	c.SetBassBoost(1000)
	assert.InDelta(t, 0.0, lastArg(t, rec, effects.ProviderDSP, "set_sub_harmonic", 0), 1e-9)

	c.SetAudiophileMode(false)
	m = c.Mode()
	assert.False(t, m.AudiophileMode)
	assert.True(t, m.SubHarmonicEnabled)
	assert.Equal(t, params.QualityStandard, m.QualityTier)
	assert.True(t, m.HardwareProtection)
	assert.False(t, c.Params().Compressor.Enabled, "leaving audiophile mode does not restore the compressor")
	assert.InDelta(t, 0.6, lastArg(t, rec, effects.ProviderDSP, "set_sub_harmonic", 0), 1e-9)
}

func TestApplyBattlePreset(t *testing.T) {
	t.Parallel()

	c, rec := newController(t)
	require.NoError(t, c.ApplyBattlePreset(presets.BassWarfare))

	preset, ok := presets.Lookup(presets.BassWarfare)
	require.True(t, ok)

	p := c.Params()
	assert.Equal(t, preset.Bass, p.BassLevel)
	assert.Equal(t, preset.LoudnessMillibels, p.LoudnessMillibels)
	assert.Equal(t, preset.Virtualizer, p.Virtualizer)
	assert.Equal(t, [params.NumBands]int{1500, 1200, -450, 0, 450}, p.EqLevels)
	assert.Equal(t, presets.BassWarfare, c.BattleMode())
	assert.Equal(t, true, lastArg(t, rec, effects.ProviderDSP, "set_battle_mode", 0))

	// the EQ curve is applied after bass boost derived its bands
	assert.Len(t, rec.CallsTo(effects.ProviderVirtualizer, "set_strength"), 1)

	c.SetCompressor(params.Compressor{Enabled: true, ThresholdDb: -20, Ratio: 4, AttackMs: 10, ReleaseMs: 100, MakeupGainDb: 6})
	c.SetLimiterEnabled(true)
	c.SetStereoWidener(true, 150)
	c.SetExciter(true, 50, 50)
	c.SetReverb(true, 3)
	c.SetClarity(60)

	require.NoError(t, c.ApplyBattlePreset(presets.Off))
	p = c.Params()
	assert.False(t, p.Compressor.Enabled)
	assert.False(t, p.Limiter.Enabled)
	assert.False(t, p.StereoWidener.Enabled)
	assert.False(t, p.Exciter.Enabled)
	assert.False(t, p.Reverb.Enabled)
	assert.Zero(t, p.Clarity)
	assert.Equal(t, 150, p.StereoWidener.Width, "stage settings are kept")
	assert.Equal(t, false, lastArg(t, rec, effects.ProviderDynamics, "set_reverb", 0).(params.Reverb).Enabled)
	assert.Equal(t, false, lastArg(t, rec, effects.ProviderDynamics, "set_compressor", 0).(params.Compressor).Enabled)
	assert.Zero(t, p.BassLevel)
	assert.Zero(t, p.LoudnessMillibels)
	assert.Zero(t, p.Virtualizer)
	assert.Equal(t, [params.NumBands]int{}, p.EqLevels)
	assert.Equal(t, presets.Off, c.BattleMode())
	assert.Equal(t, false, lastArg(t, rec, effects.ProviderDSP, "set_battle_mode", 0))
	assert.Zero(t, c.Ledger().TotalDb)
}

func TestApplyBattlePresetReusedCurves(t *testing.T) {
	t.Parallel()

	pairs := map[presets.BattleMode]presets.BattleMode{
		presets.MaximumImpact:  presets.FullAssault,
		presets.BalancedBattle: presets.BassWarfare,
		presets.IndoorBattle:   presets.ClarityStrike,
	}
	for mode, source := range pairs {
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()

			a, _ := newController(t)
			b, _ := newController(t)
			require.NoError(t, a.ApplyBattlePreset(mode))
			require.NoError(t, b.ApplyBattlePreset(source))
			assert.Equal(t, b.Params().EqLevels, a.Params().EqLevels)
		})
	}
}

func TestApplyBattlePresetInvalid(t *testing.T) {
	t.Parallel()

	c, rec := newController(t)
	err := c.ApplyBattlePreset(presets.BattleMode(99))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.Empty(t, rec.Calls())
}

func TestBulkOperationsIsolateFailures(t *testing.T) {
	t.Parallel()

	c, rec := newController(t)
	rec.Fail(effects.ProviderEqualizer, "set_band_level", fmt.Errorf("equalizer detached"))
	rec.Panic(effects.ProviderLoudness, "set_target_gain", "driver crashed")

	err := c.ApplyBattlePreset(presets.FullAssault)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "equalizer.set_band_level")
	assert.Contains(t, err.Error(), "loudness.set_target_gain")

	// later sub-steps still ran and state is recorded
	assert.Len(t, rec.CallsTo(effects.ProviderVirtualizer, "set_strength"), 1)
	p := c.Params()
	assert.Equal(t, 900, p.LoudnessMillibels)
	assert.Equal(t, 800, p.Virtualizer)
	assert.Equal(t, presets.FullAssault, c.BattleMode())

	err = c.ResetAll()
	require.Error(t, err)
	assert.Len(t, rec.CallsTo(effects.ProviderDynamics, "set_reverb"), 1)
	assert.Equal(t, params.Defaults(), c.Params())
}

func TestUnsupportedProviderIsNoop(t *testing.T) {
	t.Parallel()

	metrics := &fakeMetrics{}
	c, rec := newController(t, controller.WithMetrics(metrics))
	rec.Fail(effects.ProviderVirtualizer, "set_strength", effects.ErrUnsupported)
	rec.Fail(effects.ProviderDynamics, "set_compressor", fmt.Errorf("dynamics unavailable: %w", effects.ErrUnsupported))

	require.NoError(t, c.ApplyBattlePreset(presets.CrowdReach))
	c.SetCompressorRatio(8)

	assert.Equal(t, 1000, c.Params().Virtualizer)
	assert.InDelta(t, 8.0, c.Params().Compressor.Ratio, 1e-9)
	metrics.mu.Lock()
	assert.Empty(t, metrics.failures)
	metrics.mu.Unlock()
}

func TestMissingProvidersFallBack(t *testing.T) {
	t.Parallel()

	c := controller.New(controller.DefaultConfig(), effects.Providers{})
	overBudget(c)
	require.NoError(t, c.ResetAll())
	assert.InDelta(t, gain.BudgetDb, c.Ledger().HeadroomDb(), 1e-9)
}

func TestFailureLoggedOncePerWindow(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	metrics := &fakeMetrics{}
	rec := effects.NewRecorder()
	c := controller.New(controller.DefaultConfig(), rec.Providers(),
		controller.WithLogger(logger.NewSlogLogger(&buf, logger.LogLevelDebug, time.UTC)),
		controller.WithMetrics(metrics))
	rec.Fail(effects.ProviderLoudness, "set_target_gain", fmt.Errorf("stream closed"))

	c.SetLoudness(100)
	c.SetLoudness(200)
	c.SetLoudness(300)

	assert.Equal(t, 1, strings.Count(buf.String(), "effect provider call failed, value recorded only"))
	assert.Equal(t, 2, strings.Count(buf.String(), "effect provider call failed again"))
	metrics.mu.Lock()
	assert.Equal(t, 3, metrics.failures["loudness.set_target_gain"])
	metrics.mu.Unlock()
	assert.Equal(t, 300, c.Params().LoudnessMillibels)
}

func TestResetAllRestoresDefaults(t *testing.T) {
	t.Parallel()

	pub := &capturePublisher{}
	c, rec := newController(t, controller.WithPublisher(pub))
	require.NoError(t, c.ApplyBattlePreset(presets.SplMonster))
	overBudget(c)
	_, err := c.SaveProfile(controller.SlotB)
	require.NoError(t, err)
	require.NoError(t, c.LoadProfile(controller.SlotB))
	c.SetSafeMode(false)
	rec.Reset()

	require.NoError(t, c.ResetAll())

	assert.Equal(t, params.Defaults(), c.Params())
	assert.InDelta(t, 12.0, c.Ledger().HeadroomDb(), 1e-9)
	assert.Zero(t, c.Ledger().TotalDb, "restored defaults are not counted")
	assert.Positive(t, c.Params().BassLevel)
	assert.False(t, c.Ledger().SafeMode, "safe mode is preserved")
	assert.False(t, c.Mode().SafeMode)
	assert.Equal(t, presets.Off, c.BattleMode())
	assert.Equal(t, controller.NoSlot, c.ActiveProfile())
	assert.NotNil(t, c.Profiles()[controller.SlotB], "slots survive a reset")

	defaults := params.Defaults()
	assert.Equal(t, defaults.BassLevel, lastArg(t, rec, effects.ProviderBassBoost, "set_strength", 0))
	assert.Equal(t, defaults.BassFrequencyHz, lastArg(t, rec, effects.ProviderBassBoost, "set_center_frequency", 0))
	assert.Len(t, rec.CallsTo(effects.ProviderEqualizer, "set_band_level"), params.NumBands)
	assert.Equal(t, defaults.Compressor, lastArg(t, rec, effects.ProviderDynamics, "set_compressor", 0))
	assert.Contains(t, pub.operations(), "reset_all")
}

func TestResetAllKeepsAudiophileForcing(t *testing.T) {
	t.Parallel()

	c, _ := newController(t)
	c.SetAudiophileMode(true)
	require.NoError(t, c.ResetAll())

	p := c.Params()
	assert.False(t, p.Compressor.Enabled)
	assert.False(t, p.Exciter.Enabled)
	assert.True(t, c.Mode().AudiophileMode)
	assert.InDelta(t, 12.0, c.Ledger().HeadroomDb(), 1e-9)
}

func TestProfileRoundTrip(t *testing.T) {
	t.Parallel()

	c, _ := newController(t)
	require.NoError(t, c.ApplyBattlePreset(presets.ClarityStrike))
	c.SetBassFrequency(120)
	c.SetEqBand(params.BandLowMid, -900)
	c.SetCompressor(params.Compressor{Enabled: true, ThresholdDb: -20, Ratio: 6, AttackMs: 5, ReleaseMs: 250, MakeupGainDb: 4})
	c.SetLimiter(params.Limiter{Enabled: true, ThresholdDb: -3, CeilingDb: -0.3, AttackMs: 2, ReleaseMs: 80})
	c.SetStereoWidener(true, 150)
	c.SetExciter(true, 40, 70)
	c.SetReverb(true, 3)

	saved := c.Params()
	ledger := c.Ledger()
	profile, err := c.SaveProfile(controller.SlotA)
	require.NoError(t, err)
	assert.Equal(t, "Profile A · clarity_strike", profile.Name)
	assert.Equal(t, saved, profile.Params)

	c.SetBassBoost(0)
	c.SetClarity(10)
	c.SetEqBand(params.BandAir, -1500)
	c.SetCompressorEnabled(false)
	c.SetReverb(false, 0)
	require.NoError(t, c.ApplyBattlePreset(presets.Off))

	require.NoError(t, c.LoadProfile(controller.SlotA))
	assert.Equal(t, saved, c.Params())
	assert.Equal(t, ledger, c.Ledger(), "AGR re-evaluates to the saved state")
	assert.Equal(t, presets.ClarityStrike, c.BattleMode())
	assert.Equal(t, controller.SlotA, c.ActiveProfile())
	assert.Equal(t, "A", c.Snapshot().ActiveProfile)
}

func TestProfileSlots(t *testing.T) {
	t.Parallel()

	c, _ := newController(t)

	err := c.LoadProfile(controller.SlotC)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, controller.NoSlot, c.ActiveProfile())

	_, err = c.SaveProfile(controller.Slot(7))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	c.SetLoudness(300)
	first, err := c.SaveProfile(controller.SlotC)
	require.NoError(t, err)
	c.SetLoudness(600)
	second, err := c.SaveProfile(controller.SlotC)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 600, c.Profiles()[controller.SlotC].Params.LoudnessMillibels, "save overwrites")

	require.NoError(t, c.LoadProfile(controller.SlotC))
	require.NoError(t, c.ClearProfile(controller.SlotA))
	assert.Equal(t, controller.SlotC, c.ActiveProfile(), "clearing another slot keeps the marker")

	require.NoError(t, c.ClearProfile(controller.SlotC))
	assert.Equal(t, controller.NoSlot, c.ActiveProfile())
	assert.Nil(t, c.Profiles()[controller.SlotC])
	assert.Empty(t, c.Snapshot().ActiveProfile)
}

func TestProfilesReturnsCopies(t *testing.T) {
	t.Parallel()

	c, _ := newController(t)
	_, err := c.SaveProfile(controller.SlotA)
	require.NoError(t, err)

	slots := c.Profiles()
	slots[controller.SlotA].Params.BassLevel = 999
	assert.Equal(t, params.Defaults().BassLevel, c.Profiles()[controller.SlotA].Params.BassLevel)
}

func TestParseSlot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want controller.Slot
		ok   bool
	}{
		{"A", controller.SlotA, true},
		{"b", controller.SlotB, true},
		{" slot_c ", controller.SlotC, true},
		{"slotA", controller.SlotA, true},
		{"D", controller.NoSlot, false},
		{"", controller.NoSlot, false},
		{"AB", controller.NoSlot, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := controller.ParseSlot(tt.in)
			if !tt.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, strings.ToUpper(got.String()), got.String())
		})
	}
}

func TestPeakLevelAndClips(t *testing.T) {
	t.Parallel()

	metrics := &fakeMetrics{}
	c, rec := newController(t, controller.WithMetrics(metrics))
	assert.InDelta(t, controller.SilenceDb, c.PeakLevel(), 1e-9)

	// default limiter ceiling is -0.1 dBFS
	c.UpdatePeakLevel(-3)
	c.UpdatePeakLevel(-0.05)
	assert.InDelta(t, -0.05, c.PeakLevel(), 1e-9)
	assert.Equal(t, uint64(1), c.ClipCount())

	c.SetHardwareProtection(true)
	c.UpdatePeakLevel(-0.3)
	assert.Equal(t, uint64(2), c.ClipCount())

	c.UpdatePeakLevel(math.NaN())
	assert.InDelta(t, controller.SilenceDb, c.PeakLevel(), 1e-9)
	assert.Equal(t, uint64(2), c.ClipCount())

	st := c.Snapshot()
	assert.InDelta(t, controller.SilenceDb, st.PeakDb, 1e-9)
	assert.Equal(t, uint64(2), st.ClipCount)

	c.ResetClipCount()
	assert.Zero(t, c.ClipCount())

	metrics.mu.Lock()
	assert.Equal(t, 4, metrics.peaks)
	assert.Equal(t, 2, metrics.clipped)
	metrics.mu.Unlock()

	// peak reports never reach a provider
	assert.Len(t, rec.Calls(), 1)
}

func TestSettersPublishStateChanges(t *testing.T) {
	t.Parallel()

	pub := &capturePublisher{}
	c, _ := newController(t, controller.WithPublisher(pub))

	c.SetLoudness(400)
	c.SetEqBand(params.BandAir, 300)
	c.SetDangerMode(true)
	c.SetEqBand(42, 300)

	assert.Equal(t, []string{"set_loudness", "set_eq_band", "set_danger_mode"}, pub.operations())

	pub.mu.Lock()
	last := pub.events[len(pub.events)-1]
	pub.mu.Unlock()
	assert.True(t, last.Mode.DangerMode)
	assert.Equal(t, 400, last.Params.LoudnessMillibels)
	assert.InDelta(t, 7.0, last.Ledger.TotalDb, 1e-9)
	assert.NotEmpty(t, last.ID)
}

func TestConcurrentSettersAndReaders(t *testing.T) {
	t.Parallel()

	c, _ := newController(t)

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				switch (i + w) % 5 {
				case 0:
					c.SetBassBoost(i * 5)
				case 1:
					c.SetLoudness(i * 5)
				case 2:
					c.SetEqBand(i%params.NumBands, i*7)
				case 3:
					c.SetExciter(true, float64(i%100), 50)
				case 4:
					c.UpdatePeakLevel(-float64(i % 12))
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 500 {
			st := c.Snapshot()
			ledger := st.Ledger
			want := gain.State{}.WithSafeMode(ledger.SafeMode)
			for _, kind := range gain.AllSources {
				want = want.WithSource(kind, ledger.Source(kind))
			}
			assert.InDelta(t, want.ReductionDb, ledger.ReductionDb, 1e-9, "torn ledger snapshot")
			assert.GreaterOrEqual(t, ledger.ReductionDb, 0.0)
			assert.LessOrEqual(t, ledger.ReductionDb, gain.MaxReductionDb)
		}
	}()
	wg.Wait()

	st := c.Ledger()
	assert.GreaterOrEqual(t, st.TotalDb, 0.0)
}
