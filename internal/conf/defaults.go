// conf/defaults.go default values for settings

package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/gainguard/internal/logger"
	"github.com/tphakala/gainguard/internal/params"
)

// setDefaultConfig sets default values for every configuration key on v.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.level", logger.DefaultLogLevel)

	// Controller start-up state, safe mode on
	v.SetDefault("controller.safe_mode", true)
	v.SetDefault("controller.danger_mode", false)
	v.SetDefault("controller.hardware_protection", false)
	v.SetDefault("controller.initial_preset", "")
	v.SetDefault("controller.band_range_mb", params.DefaultBandRangeMillibels)
	v.SetDefault("controller.failure_log_ttl", time.Minute)

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.host", "")
	v.SetDefault("api.port", "8080")
	v.SetDefault("api.allowed_origins", []string{"*"})
	v.SetDefault("api.body_limit", "64K")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "gainguard")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.password_file", "")
	v.SetDefault("mqtt.topic", "gainguard")
	v.SetDefault("mqtt.retain", true)
	v.SetDefault("mqtt.min_publish_interval", 250*time.Millisecond)

	v.SetDefault("monitor.device", "")
	v.SetDefault("monitor.sample_rate", 48000)
	v.SetDefault("monitor.channels", 2)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")
	v.SetDefault("telemetry.dsn_file", "")

	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.urls", []string{})
	v.SetDefault("notify.clip_threshold", 10)
	v.SetDefault("notify.interval", 10*time.Second)
	v.SetDefault("notify.cooldown", 5*time.Minute)
	v.SetDefault("notify.timeout", 10*time.Second)

	v.SetDefault("events.enabled", true)
	v.SetDefault("events.buffer_size", 1000)
	v.SetDefault("events.workers", 2)
}

// Defaults returns a Settings populated only from default values.
func Defaults() *Settings {
	v := viper.New()
	setDefaultConfig(v)
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		// defaults are static and always decode
		panic(err)
	}
	return settings
}
