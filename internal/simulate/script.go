// Package simulate replays scripted control sessions against a controller
// and reports the gain ledger after every step.
package simulate

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tphakala/gainguard/internal/controller"
	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/presets"
)

// Script is a YAML session:
//
//	controller:
//	  safe_mode: true
//	steps:
//	  - op: bass_boost
//	    value: 1000
//	  - op: eq_band
//	    band: 0
//	    value: 1500
//	  - op: preset
//	    name: full_assault
//	  - op: safe_mode
//	    enabled: false
type Script struct {
	Controller *controller.Config `yaml:"controller"`
	Steps      []Step             `yaml:"steps"`
}

// Step is one controller operation.
type Step struct {
	Op      string  `yaml:"op"`
	Value   float64 `yaml:"value"`
	Band    int     `yaml:"band"`
	Enabled *bool   `yaml:"enabled"`
	Name    string  `yaml:"name"`  // preset name or profile slot
	Drive   float64 `yaml:"drive"` // exciter
	Mix     float64 `yaml:"mix"`   // exciter
}

func (s Step) String() string {
	switch {
	case s.Name != "":
		return fmt.Sprintf("%s %s", s.Op, s.Name)
	case s.Enabled != nil:
		return fmt.Sprintf("%s=%t", s.Op, *s.Enabled)
	case s.Op == "eq_band":
		return fmt.Sprintf("eq_band[%d]=%g", s.Band, s.Value)
	case s.Op == "exciter":
		return fmt.Sprintf("exciter drive=%g mix=%g", s.Drive, s.Mix)
	case s.Op == "reset":
		return s.Op
	default:
		return fmt.Sprintf("%s=%g", s.Op, s.Value)
	}
}

// Load decodes and validates a script.
func Load(r io.Reader) (*Script, error) {
	var script Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&script); err != nil {
		return nil, errors.New(fmt.Errorf("decode script: %w", err)).
			Component("simulate").
			Category(errors.CategoryValidation).
			Build()
	}
	for i, step := range script.Steps {
		if err := step.validate(); err != nil {
			return nil, errors.New(fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)).
				Component("simulate").
				Category(errors.CategoryValidation).
				Build()
		}
	}
	return &script, nil
}

func (s Step) validate() error {
	op := strings.ToLower(s.Op)
	if _, ok := valueOps[op]; ok {
		return nil
	}
	if _, ok := modeOps[op]; ok {
		if s.Enabled == nil {
			return fmt.Errorf("enabled is required")
		}
		return nil
	}
	switch op {
	case "eq_band", "exciter", "reset":
		return nil
	case "preset":
		_, err := presets.ParseBattleMode(s.Name)
		return err
	case "save_profile", "load_profile", "clear_profile":
		_, err := controller.ParseSlot(s.Name)
		return err
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
}
