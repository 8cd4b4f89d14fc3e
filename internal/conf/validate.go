// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tphakala/gainguard/internal/presets"
	"github.com/tphakala/gainguard/internal/privacy"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateLoggingSettings,
		validateControllerSettings,
		validateAPISettings,
		validateMQTTSettings,
		validateMonitorSettings,
		validateTelemetrySettings,
		validateNotifySettings,
		validateEventSettings,
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

var validLevels = []string{"trace", "debug", "info", "warn", "warning", "error"}

func validLevel(level string) bool {
	if level == "" {
		return true
	}
	for _, l := range validLevels {
		if strings.EqualFold(level, l) {
			return true
		}
	}
	return false
}

func validateLoggingSettings(s *Settings) error {
	if !validLevel(s.Logging.DefaultLevel) {
		return fmt.Errorf("logging: invalid default level %q", s.Logging.DefaultLevel)
	}
	for module, level := range s.Logging.ModuleLevels {
		if !validLevel(level) {
			return fmt.Errorf("logging: invalid level %q for module %s", level, module)
		}
	}
	if s.Logging.FileOutput != nil && s.Logging.FileOutput.Enabled && s.Logging.FileOutput.Path == "" {
		return fmt.Errorf("logging: file output enabled but path is empty")
	}
	return nil
}

func validateControllerSettings(s *Settings) error {
	c := s.Controller
	if c.BandRangeMillibels <= 0 {
		return fmt.Errorf("controller: band range must be positive, got %d", c.BandRangeMillibels)
	}
	if c.FailureLogTTL < 0 {
		return fmt.Errorf("controller: failure log ttl must not be negative")
	}
	if c.InitialPreset != "" {
		if _, err := presets.ParseBattleMode(c.InitialPreset); err != nil {
			return fmt.Errorf("controller: %w", err)
		}
	}
	return nil
}

func validateAPISettings(s *Settings) error {
	if !s.API.Enabled {
		return nil
	}
	port, err := strconv.Atoi(s.API.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("api: invalid port %q", s.API.Port)
	}
	if s.Metrics.Enabled && !strings.HasPrefix(s.Metrics.Path, "/") {
		return fmt.Errorf("metrics: path must start with '/', got %q", s.Metrics.Path)
	}
	return nil
}

func validateMQTTSettings(s *Settings) error {
	m := s.MQTT
	if !m.Enabled {
		return nil
	}
	if m.Broker == "" {
		return fmt.Errorf("mqtt: broker URL is required when MQTT is enabled")
	}
	u, err := url.Parse(m.Broker)
	if err != nil {
		return fmt.Errorf("mqtt: invalid broker URL: %w", privacy.WrapError(err))
	}
	switch u.Scheme {
	case "tcp", "ssl", "tls", "mqtt", "mqtts", "ws", "wss":
	default:
		return fmt.Errorf("mqtt: unsupported broker scheme %q", u.Scheme)
	}
	if m.Topic == "" {
		return fmt.Errorf("mqtt: topic is required when MQTT is enabled")
	}
	if strings.ContainsAny(m.Topic, "#+") {
		return fmt.Errorf("mqtt: topic %q must not contain wildcards", m.Topic)
	}
	if m.MinPublishInterval < 0 {
		return fmt.Errorf("mqtt: min publish interval must not be negative")
	}
	return nil
}

func validateMonitorSettings(s *Settings) error {
	m := s.Monitor
	if m.SampleRate <= 0 || m.SampleRate > 384000 {
		return fmt.Errorf("monitor: sample rate %d out of range", m.SampleRate)
	}
	if m.Channels < 1 || m.Channels > 2 {
		return fmt.Errorf("monitor: channels must be 1 or 2, got %d", m.Channels)
	}
	return nil
}

func validateTelemetrySettings(s *Settings) error {
	if s.Telemetry.Enabled && s.Telemetry.DSN == "" {
		return fmt.Errorf("telemetry: DSN is required when telemetry is enabled")
	}
	return nil
}

func validateNotifySettings(s *Settings) error {
	n := s.Notify
	if !n.Enabled {
		return nil
	}
	if len(n.URLs) == 0 {
		return fmt.Errorf("notify: at least one URL is required when notifications are enabled")
	}
	if !s.Events.Enabled {
		return fmt.Errorf("notify: notifications need the event bus")
	}
	if n.Interval < 0 || n.Cooldown < 0 || n.Timeout < 0 {
		return fmt.Errorf("notify: durations must not be negative")
	}
	return nil
}

func validateEventSettings(s *Settings) error {
	if !s.Events.Enabled {
		return nil
	}
	if s.Events.BufferSize <= 0 {
		return fmt.Errorf("events: buffer size must be positive")
	}
	if s.Events.Workers <= 0 {
		return fmt.Errorf("events: workers must be positive")
	}
	return nil
}
