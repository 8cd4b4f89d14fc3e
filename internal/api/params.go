package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/params"
)

// Request bodies. Pointer fields are optional; a missing required field is
// answered with 400. Out-of-range values are clamped, never rejected.
type (
	bassRequest struct {
		Level       *int `json:"level"`
		FrequencyHz *int `json:"frequency_hz"`
	}
	levelRequest struct {
		Level *int `json:"level"`
	}
	millibelsRequest struct {
		Millibels *int `json:"millibels"`
	}
	compressorRequest struct {
		Enabled      *bool    `json:"enabled"`
		ThresholdDb  *float64 `json:"threshold_db"`
		Ratio        *float64 `json:"ratio"`
		AttackMs     *float64 `json:"attack_ms"`
		ReleaseMs    *float64 `json:"release_ms"`
		MakeupGainDb *float64 `json:"makeup_gain_db"`
	}
	limiterRequest struct {
		Enabled     *bool    `json:"enabled"`
		ThresholdDb *float64 `json:"threshold_db"`
		CeilingDb   *float64 `json:"ceiling_db"`
		AttackMs    *float64 `json:"attack_ms"`
		ReleaseMs   *float64 `json:"release_ms"`
	}
	stereoRequest struct {
		Enabled bool `json:"enabled"`
		Width   *int `json:"width"`
	}
	exciterRequest struct {
		Enabled bool     `json:"enabled"`
		Drive   *float64 `json:"drive"`
		Mix     *float64 `json:"mix"`
	}
	reverbRequest struct {
		Enabled bool `json:"enabled"`
		Preset  int  `json:"preset"`
	}
)

var errMissingValue = errors.NewStd("required value missing")

// initParamRoutes registers the per-parameter setter endpoints.
func (s *Server) initParamRoutes(g *echo.Group) {
	g.POST("/bass", s.SetBass)
	g.POST("/loudness", s.SetLoudness)
	g.POST("/clarity", s.SetClarity)
	g.POST("/virtualizer", s.SetVirtualizer)
	g.POST("/eq/:band", s.SetEqBand)
	g.POST("/compressor", s.SetCompressor)
	g.POST("/limiter", s.SetLimiter)
	g.POST("/stereo", s.SetStereoWidener)
	g.POST("/exciter", s.SetExciter)
	g.POST("/reverb", s.SetReverb)
}

// SetBass handles POST /api/v1/params/bass
func (s *Server) SetBass(c echo.Context) error {
	var req bassRequest
	if err := c.Bind(&req); err != nil {
		return s.HandleError(c, err, "invalid request body", http.StatusBadRequest)
	}
	if req.Level == nil && req.FrequencyHz == nil {
		return s.HandleError(c, errMissingValue, "level or frequency_hz is required", http.StatusBadRequest)
	}
	if req.Level != nil {
		s.controller.SetBassBoost(*req.Level)
	}
	if req.FrequencyHz != nil {
		s.controller.SetBassFrequency(*req.FrequencyHz)
	}
	return s.respondState(c, nil)
}

// SetLoudness handles POST /api/v1/params/loudness
func (s *Server) SetLoudness(c echo.Context) error {
	var req millibelsRequest
	if err := c.Bind(&req); err != nil {
		return s.HandleError(c, err, "invalid request body", http.StatusBadRequest)
	}
	if req.Millibels == nil {
		return s.HandleError(c, errMissingValue, "millibels is required", http.StatusBadRequest)
	}
	s.controller.SetLoudness(*req.Millibels)
	return s.respondState(c, nil)
}

// SetClarity handles POST /api/v1/params/clarity
func (s *Server) SetClarity(c echo.Context) error {
	var req levelRequest
	if err := c.Bind(&req); err != nil {
		return s.HandleError(c, err, "invalid request body", http.StatusBadRequest)
	}
	if req.Level == nil {
		return s.HandleError(c, errMissingValue, "level is required", http.StatusBadRequest)
	}
	s.controller.SetClarity(*req.Level)
	return s.respondState(c, nil)
}

// SetVirtualizer handles POST /api/v1/params/virtualizer
func (s *Server) SetVirtualizer(c echo.Context) error {
	var req levelRequest
	if err := c.Bind(&req); err != nil {
		return s.HandleError(c, err, "invalid request body", http.StatusBadRequest)
	}
	if req.Level == nil {
		return s.HandleError(c, errMissingValue, "level is required", http.StatusBadRequest)
	}
	s.controller.SetVirtualizer(*req.Level)
	return s.respondState(c, nil)
}

// SetEqBand handles POST /api/v1/params/eq/:band
func (s *Server) SetEqBand(c echo.Context) error {
	band, err := strconv.Atoi(c.Param("band"))
	if err != nil || !params.ValidBand(band) {
		return s.HandleError(c, err, fmt.Sprintf("band must be 0..%d", params.NumBands-1), http.StatusBadRequest)
	}
	var req millibelsRequest
	if err := c.Bind(&req); err != nil {
		return s.HandleError(c, err, "invalid request body", http.StatusBadRequest)
	}
	if req.Millibels == nil {
		return s.HandleError(c, errMissingValue, "millibels is required", http.StatusBadRequest)
	}
	s.controller.SetEqBand(band, *req.Millibels)
	return s.respondState(c, nil)
}

// SetCompressor handles POST /api/v1/params/compressor. Only the fields
// present in the body are changed.
func (s *Server) SetCompressor(c echo.Context) error {
	var req compressorRequest
	if err := c.Bind(&req); err != nil {
		return s.HandleError(c, err, "invalid request body", http.StatusBadRequest)
	}
	if req.Enabled != nil {
		s.controller.SetCompressorEnabled(*req.Enabled)
	}
	if req.ThresholdDb != nil {
		s.controller.SetCompressorThreshold(*req.ThresholdDb)
	}
	if req.Ratio != nil {
		s.controller.SetCompressorRatio(*req.Ratio)
	}
	if req.AttackMs != nil {
		s.controller.SetCompressorAttack(*req.AttackMs)
	}
	if req.ReleaseMs != nil {
		s.controller.SetCompressorRelease(*req.ReleaseMs)
	}
	if req.MakeupGainDb != nil {
		s.controller.SetCompressorMakeupGain(*req.MakeupGainDb)
	}
	return s.respondState(c, nil)
}

// SetLimiter handles POST /api/v1/params/limiter. Only the fields present
// in the body are changed.
func (s *Server) SetLimiter(c echo.Context) error {
	var req limiterRequest
	if err := c.Bind(&req); err != nil {
		return s.HandleError(c, err, "invalid request body", http.StatusBadRequest)
	}
	if req.Enabled != nil {
		s.controller.SetLimiterEnabled(*req.Enabled)
	}
	if req.ThresholdDb != nil {
		s.controller.SetLimiterThreshold(*req.ThresholdDb)
	}
	if req.CeilingDb != nil {
		s.controller.SetLimiterCeiling(*req.CeilingDb)
	}
	if req.AttackMs != nil {
		s.controller.SetLimiterAttack(*req.AttackMs)
	}
	if req.ReleaseMs != nil {
		s.controller.SetLimiterRelease(*req.ReleaseMs)
	}
	return s.respondState(c, nil)
}

// SetStereoWidener handles POST /api/v1/params/stereo
func (s *Server) SetStereoWidener(c echo.Context) error {
	var req stereoRequest
	if err := c.Bind(&req); err != nil {
		return s.HandleError(c, err, "invalid request body", http.StatusBadRequest)
	}
	width := s.controller.Params().StereoWidener.Width
	if req.Width != nil {
		width = *req.Width
	}
	s.controller.SetStereoWidener(req.Enabled, width)
	return s.respondState(c, nil)
}

// SetExciter handles POST /api/v1/params/exciter
func (s *Server) SetExciter(c echo.Context) error {
	var req exciterRequest
	if err := c.Bind(&req); err != nil {
		return s.HandleError(c, err, "invalid request body", http.StatusBadRequest)
	}
	current := s.controller.Params().Exciter
	drive, mix := current.Drive, current.Mix
	if req.Drive != nil {
		drive = *req.Drive
	}
	if req.Mix != nil {
		mix = *req.Mix
	}
	s.controller.SetExciter(req.Enabled, drive, mix)
	return s.respondState(c, nil)
}

// SetReverb handles POST /api/v1/params/reverb
func (s *Server) SetReverb(c echo.Context) error {
	var req reverbRequest
	if err := c.Bind(&req); err != nil {
		return s.HandleError(c, err, "invalid request body", http.StatusBadRequest)
	}
	s.controller.SetReverb(req.Enabled, req.Preset)
	return s.respondState(c, nil)
}
