// conf/config.go

package conf

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/gainguard/internal/controller"
	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/events"
	"github.com/tphakala/gainguard/internal/logger"
	"github.com/tphakala/gainguard/internal/secrets"
)

// EnvPrefix prefixes every environment override, e.g. GAINGUARD_API_PORT.
const EnvPrefix = "GAINGUARD"

// APISettings contains settings for the HTTP control surface.
type APISettings struct {
	Enabled        bool     `mapstructure:"enabled" yaml:"enabled"`
	Host           string   `mapstructure:"host" yaml:"host"`                       // empty binds all interfaces
	Port           string   `mapstructure:"port" yaml:"port"`                       // listen port
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"` // CORS origins
	BodyLimit      string   `mapstructure:"body_limit" yaml:"body_limit"`           // e.g. "64K"
}

// MetricsSettings controls the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// MQTTSettings contains settings for state broadcasting over MQTT.
type MQTTSettings struct {
	Enabled            bool          `mapstructure:"enabled" yaml:"enabled"`
	Broker             string        `mapstructure:"broker" yaml:"broker"`       // e.g. tcp://localhost:1883
	ClientID           string        `mapstructure:"client_id" yaml:"client_id"` // MQTT client id
	Username           string        `mapstructure:"username" yaml:"username"`
	Password           string        `mapstructure:"password" yaml:"password"`           // may reference ${ENV_VAR}
	PasswordFile       string        `mapstructure:"password_file" yaml:"password_file"` // overrides Password, e.g. /run/secrets/mqtt
	Topic              string        `mapstructure:"topic" yaml:"topic"`                 // base topic, state goes to <topic>/state
	Retain             bool          `mapstructure:"retain" yaml:"retain"`
	MinPublishInterval time.Duration `mapstructure:"min_publish_interval" yaml:"min_publish_interval"`
}

// MonitorSettings configures audio capture for the peak meter.
type MonitorSettings struct {
	Device     string `mapstructure:"device" yaml:"device"` // capture device name, empty for system default
	SampleRate int    `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels   int    `mapstructure:"channels" yaml:"channels"`
}

// TelemetrySettings controls error reporting to Sentry.
type TelemetrySettings struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN     string `mapstructure:"dsn" yaml:"dsn"`           // may reference ${ENV_VAR}
	DSNFile string `mapstructure:"dsn_file" yaml:"dsn_file"` // overrides DSN
}

// NotifySettings configures operator alerts over shoutrrr services.
type NotifySettings struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	URLs          []string      `mapstructure:"urls" yaml:"urls"`                     // shoutrrr service URLs, may reference ${ENV_VAR}
	ClipThreshold uint64        `mapstructure:"clip_threshold" yaml:"clip_threshold"` // clips per interval, 0 disables clip alerts
	Interval      time.Duration `mapstructure:"interval" yaml:"interval"`
	Cooldown      time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Settings contains all configuration options for gainguard.
type Settings struct {
	Debug bool `mapstructure:"debug" yaml:"debug"` // true to enable debug mode

	Logging    logger.LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Controller controller.Config    `mapstructure:"controller" yaml:"controller"`
	API        APISettings          `mapstructure:"api" yaml:"api"`
	Metrics    MetricsSettings      `mapstructure:"metrics" yaml:"metrics"`
	MQTT       MQTTSettings         `mapstructure:"mqtt" yaml:"mqtt"`
	Monitor    MonitorSettings      `mapstructure:"monitor" yaml:"monitor"`
	Telemetry  TelemetrySettings    `mapstructure:"telemetry" yaml:"telemetry"`
	Notify     NotifySettings       `mapstructure:"notify" yaml:"notify"`
	Events     events.Config        `mapstructure:"events" yaml:"events"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a new
// Settings. An empty configFile searches the default config paths; a missing
// file there is not an error and leaves the defaults in place.
func Load(configFile string) (*Settings, error) {
	settings, err := LoadFrom(viper.New(), configFile)
	if err != nil {
		return nil, err
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()
	return settings, nil
}

// LoadFrom is Load on a caller supplied viper instance.
func LoadFrom(v *viper.Viper, configFile string) (*Settings, error) {
	if err := initViper(v, configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, err
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error validating settings: %w", err)).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	return settings, nil
}

// resolveSecrets replaces credential fields with their resolved values.
// Disabled sections are left alone.
func resolveSecrets(s *Settings) error {
	if s.MQTT.Enabled {
		password, err := secrets.Resolve("mqtt.password", s.MQTT.PasswordFile, s.MQTT.Password)
		if err != nil {
			return err
		}
		s.MQTT.Password = password
	}
	if s.Telemetry.Enabled {
		dsn, err := secrets.Resolve("telemetry.dsn", s.Telemetry.DSNFile, s.Telemetry.DSN)
		if err != nil {
			return err
		}
		s.Telemetry.DSN = dsn
	}
	if s.Notify.Enabled {
		for i, raw := range s.Notify.URLs {
			expanded, err := secrets.Resolve(fmt.Sprintf("notify.urls[%d]", i), "", raw)
			if err != nil {
				return err
			}
			s.Notify.URLs[i] = expanded
		}
	}
	return nil
}

// initViper sets defaults and env bindings on v and reads the config file.
func initViper(v *viper.Viper, configFile string) error {
	setDefaultConfig(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return err
		}
		for _, path := range configPaths {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			GetLogger().Info("no config file found, using defaults")
			return nil
		}
		return errors.New(fmt.Errorf("fatal error reading config file: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("config_file", configFile).
			Build()
	}

	GetLogger().Debug("config file loaded", logger.String("path", v.ConfigFileUsed()))
	return nil
}

// GetSettings returns the settings from the last successful Load, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
