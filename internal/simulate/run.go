package simulate

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/tphakala/gainguard/internal/controller"
	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/gain"
	"github.com/tphakala/gainguard/internal/presets"
)

// valueOps take a single numeric value.
var valueOps = map[string]func(c *controller.Controller, v float64){
	"bass_boost":           func(c *controller.Controller, v float64) { c.SetBassBoost(int(v)) },
	"bass_frequency":       func(c *controller.Controller, v float64) { c.SetBassFrequency(int(v)) },
	"loudness":             func(c *controller.Controller, v float64) { c.SetLoudness(int(v)) },
	"clarity":              func(c *controller.Controller, v float64) { c.SetClarity(int(v)) },
	"virtualizer":          func(c *controller.Controller, v float64) { c.SetVirtualizer(int(v)) },
	"compressor_makeup":    func(c *controller.Controller, v float64) { c.SetCompressorMakeupGain(v) },
	"compressor_ratio":     func(c *controller.Controller, v float64) { c.SetCompressorRatio(v) },
	"compressor_threshold": func(c *controller.Controller, v float64) { c.SetCompressorThreshold(v) },
	"limiter_ceiling":      func(c *controller.Controller, v float64) { c.SetLimiterCeiling(v) },
	"peak":                 func(c *controller.Controller, v float64) { c.UpdatePeakLevel(v) },
}

// modeOps take an enabled flag.
var modeOps = map[string]func(c *controller.Controller, on bool){
	"safe_mode":           (*controller.Controller).SetSafeMode,
	"danger_mode":         (*controller.Controller).SetDangerMode,
	"hardware_protection": (*controller.Controller).SetHardwareProtection,
	"audiophile_mode":     (*controller.Controller).SetAudiophileMode,
	"compressor":          (*controller.Controller).SetCompressorEnabled,
	"limiter":             (*controller.Controller).SetLimiterEnabled,
}

// Result is the outcome of one step.
type Result struct {
	Step   Step
	Ledger gain.State
	Err    error // provider failures of bulk operations, informational
}

// Run applies every step in order and returns the ledger after each. It
// stops at the first step that cannot be applied at all.
func Run(c *controller.Controller, script *Script) ([]Result, error) {
	results := make([]Result, 0, len(script.Steps))
	for i, step := range script.Steps {
		providerErr, err := apply(c, step)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		results = append(results, Result{Step: step, Ledger: c.Ledger(), Err: providerErr})
	}
	return results, nil
}

// apply runs one step. providerErr reports provider failures of bulk
// operations; err means the step itself was rejected.
func apply(c *controller.Controller, s Step) (providerErr, err error) {
	op := strings.ToLower(s.Op)
	if fn, found := valueOps[op]; found {
		fn(c, s.Value)
		return nil, nil
	}
	if fn, found := modeOps[op]; found {
		fn(c, *s.Enabled)
		return nil, nil
	}

	switch op {
	case "eq_band":
		c.SetEqBand(s.Band, int(s.Value))
		return nil, nil
	case "exciter":
		c.SetExciter(true, s.Drive, s.Mix)
		return nil, nil
	case "reset":
		return c.ResetAll(), nil
	case "preset":
		mode, err := presets.ParseBattleMode(s.Name)
		if err != nil {
			return nil, err
		}
		return c.ApplyBattlePreset(mode), nil
	}

	slot, err := controller.ParseSlot(s.Name)
	if err != nil {
		return nil, err
	}
	switch op {
	case "save_profile":
		_, err = c.SaveProfile(slot)
		return nil, err
	case "load_profile":
		err = c.LoadProfile(slot)
		if errors.IsNotFound(err) || errors.IsCategory(err, errors.CategoryValidation) {
			return nil, err
		}
		return err, nil
	case "clear_profile":
		return nil, c.ClearProfile(slot)
	}
	return nil, fmt.Errorf("unknown op %q", s.Op)
}

// Report writes one table row per result.
func Report(w io.Writer, results []Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTEP\tTOTAL dB\tREDUCTION dB\tHEADROOM dB\tAGR\tNOTE")
	for i, r := range results {
		note := ""
		if r.Err != nil {
			note = "provider failures: " + r.Err.Error()
		}
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%.1f\t%.1f\t%t\t%s\n",
			i+1, r.Step, r.Ledger.TotalDb, r.Ledger.ReductionDb, r.Ledger.HeadroomDb(), r.Ledger.AgrActive, note)
	}
	return tw.Flush()
}
