package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/gainguard/internal/controller"
	"github.com/tphakala/gainguard/internal/params"
	"github.com/tphakala/gainguard/internal/presets"
)

// GetState handles GET /api/v1/state
func (s *Server) GetState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.controller.Snapshot())
}

// ResetAll handles POST /api/v1/reset
func (s *Server) ResetAll(c echo.Context) error {
	return s.respondState(c, s.controller.ResetAll())
}

// PresetInfo describes a battle preset and the EQ curve it produces on the
// active band layout.
type PresetInfo struct {
	Mode              presets.BattleMode   `json:"mode"`
	Bass              int                  `json:"bass"`
	LoudnessMillibels int                  `json:"loudness_mb"`
	Virtualizer       int                  `json:"virtualizer"`
	EqLevels          [params.NumBands]int `json:"eq_levels_mb"`
}

func (s *Server) initPresetRoutes(g *echo.Group) {
	g.GET("", s.ListPresets)
	g.POST("/:mode", s.ApplyPreset)
}

// ListPresets handles GET /api/v1/presets
func (s *Server) ListPresets(c echo.Context) error {
	layout := s.controller.Layout()
	all := presets.All()
	out := make([]PresetInfo, 0, len(all))
	for _, p := range all {
		out = append(out, PresetInfo{
			Mode:              p.Mode,
			Bass:              p.Bass,
			LoudnessMillibels: p.LoudnessMillibels,
			Virtualizer:       p.Virtualizer,
			EqLevels:          p.Levels(layout),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// ApplyPreset handles POST /api/v1/presets/:mode
func (s *Server) ApplyPreset(c echo.Context) error {
	mode, err := presets.ParseBattleMode(c.Param("mode"))
	if err != nil {
		return s.HandleError(c, err, "unknown battle mode", http.StatusBadRequest)
	}
	return s.respondState(c, s.controller.ApplyBattlePreset(mode))
}

type modeRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) initModeRoutes(g *echo.Group) {
	g.POST("/:mode", s.SetMode)
}

// SetMode handles POST /api/v1/modes/:mode for safe, danger, hardware and
// audiophile.
func (s *Server) SetMode(c echo.Context) error {
	var setter func(bool)
	switch c.Param("mode") {
	case "safe":
		setter = s.controller.SetSafeMode
	case "danger":
		setter = s.controller.SetDangerMode
	case "hardware":
		setter = s.controller.SetHardwareProtection
	case "audiophile":
		setter = s.controller.SetAudiophileMode
	default:
		return s.HandleError(c, nil, fmt.Sprintf("unknown mode %q", c.Param("mode")), http.StatusNotFound)
	}

	var req modeRequest
	if err := c.Bind(&req); err != nil {
		return s.HandleError(c, err, "invalid request body", http.StatusBadRequest)
	}
	if req.Enabled == nil {
		return s.HandleError(c, errMissingValue, "enabled is required", http.StatusBadRequest)
	}
	setter(*req.Enabled)
	return s.respondState(c, nil)
}

// ProfileInfo is one profile slot; Profile is nil when the slot is empty.
type ProfileInfo struct {
	Slot    string              `json:"slot"`
	Active  bool                `json:"active"`
	Profile *controller.Profile `json:"profile"`
}

func (s *Server) initProfileRoutes(g *echo.Group) {
	g.GET("", s.ListProfiles)
	g.POST("/:slot/save", s.SaveProfile)
	g.POST("/:slot/load", s.LoadProfile)
	g.POST("/:slot/clear", s.ClearProfile)
}

// ListProfiles handles GET /api/v1/profiles
func (s *Server) ListProfiles(c echo.Context) error {
	active := s.controller.ActiveProfile()
	slots := s.controller.Profiles()
	out := make([]ProfileInfo, 0, len(slots))
	for i, p := range slots {
		slot := controller.Slot(i)
		out = append(out, ProfileInfo{Slot: slot.String(), Active: slot == active, Profile: p})
	}
	return c.JSON(http.StatusOK, out)
}

// SaveProfile handles POST /api/v1/profiles/:slot/save
func (s *Server) SaveProfile(c echo.Context) error {
	slot, err := controller.ParseSlot(c.Param("slot"))
	if err != nil {
		return s.HandleError(c, err, "unknown profile slot", http.StatusBadRequest)
	}
	profile, err := s.controller.SaveProfile(slot)
	if err != nil {
		return s.HandleError(c, err, "failed to save profile", statusFor(err))
	}
	return c.JSON(http.StatusOK, profile)
}

// LoadProfile handles POST /api/v1/profiles/:slot/load
func (s *Server) LoadProfile(c echo.Context) error {
	slot, err := controller.ParseSlot(c.Param("slot"))
	if err != nil {
		return s.HandleError(c, err, "unknown profile slot", http.StatusBadRequest)
	}
	err = s.controller.LoadProfile(slot)
	if status := statusFor(err); err != nil && status != http.StatusInternalServerError {
		return s.HandleError(c, err, "failed to load profile", status)
	}
	return s.respondState(c, err)
}

// ClearProfile handles POST /api/v1/profiles/:slot/clear
func (s *Server) ClearProfile(c echo.Context) error {
	slot, err := controller.ParseSlot(c.Param("slot"))
	if err != nil {
		return s.HandleError(c, err, "unknown profile slot", http.StatusBadRequest)
	}
	if err := s.controller.ClearProfile(slot); err != nil {
		return s.HandleError(c, err, "failed to clear profile", statusFor(err))
	}
	return s.respondState(c, nil)
}

type peakRequest struct {
	Dbfs *float64 `json:"dbfs"`
}

// MeterStatus is the real-time peak view.
type MeterStatus struct {
	PeakDb    float64 `json:"peak_db"`
	CeilingDb float64 `json:"ceiling_db"`
	ClipCount uint64  `json:"clip_count"`
}

func (s *Server) initMeterRoutes(g *echo.Group) {
	g.GET("", s.GetMeter)
	g.POST("/peak", s.ReportPeak)
	g.POST("/clips/reset", s.ResetClips)
}

func (s *Server) meterStatus() MeterStatus {
	st := s.controller.Snapshot()
	return MeterStatus{PeakDb: st.PeakDb, CeilingDb: st.CeilingDb, ClipCount: st.ClipCount}
}

// GetMeter handles GET /api/v1/meter
func (s *Server) GetMeter(c echo.Context) error {
	return c.JSON(http.StatusOK, s.meterStatus())
}

// ReportPeak handles POST /api/v1/meter/peak for external meters.
func (s *Server) ReportPeak(c echo.Context) error {
	var req peakRequest
	if err := c.Bind(&req); err != nil {
		return s.HandleError(c, err, "invalid request body", http.StatusBadRequest)
	}
	if req.Dbfs == nil {
		return s.HandleError(c, errMissingValue, "dbfs is required", http.StatusBadRequest)
	}
	s.controller.UpdatePeakLevel(*req.Dbfs)
	return c.JSON(http.StatusOK, s.meterStatus())
}

// ResetClips handles POST /api/v1/meter/clips/reset
func (s *Server) ResetClips(c echo.Context) error {
	s.controller.ResetClipCount()
	return c.JSON(http.StatusOK, s.meterStatus())
}
