package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	echolog "github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/gainguard/internal/logger"
)

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelInfo, time.UTC).Module("controller")

	log.Debug("hidden")
	log.Info("bass boost applied", logger.Int("level", 800), logger.Float64("reduction_db", 1.23456))
	log.Log(logger.LogLevelTrace, "also hidden")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "bass boost applied")
	assert.Contains(t, out, "module=controller")
	assert.Contains(t, out, "level=800")
	assert.Contains(t, out, "reduction_db=1.235")
}

func TestModuleNestingAndFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	base := logger.NewSlogLogger(buf, logger.LogLevelDebug, time.UTC)
	child := base.Module("controller").Module("profiles").With(logger.String("slot", "A"))

	child.Debug("profile saved", logger.Error(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, "module=controller.profiles")
	assert.Contains(t, out, "slot=A")
	assert.Contains(t, out, "error=boom")
}

func TestWithContextRequestID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelInfo, time.UTC)

	ctx := logger.WithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", logger.RequestID(ctx))
	log.WithContext(ctx).Info("handled")
	log.WithContext(context.Background()).Info("untraced")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "request_id=req-42")
	assert.NotContains(t, lines[1], "request_id")
}

func TestCentralLoggerFileOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "nested", "gainguard.log")

	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: logPath, Level: "debug"},
	})
	require.NoError(t, err)

	cl.Module("gain").Info("ledger recalculated", logger.Float64("total_db", 48.5), logger.Bool("agr_active", true))
	require.NoError(t, cl.Flush())
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &record))
	assert.Equal(t, "ledger recalculated", record["msg"])
	assert.Equal(t, "gain", record["module"])
	assert.InDelta(t, 48.5, record["total_db"], 0.0001)
	assert.Equal(t, true, record["agr_active"])
}

func TestCentralLoggerInvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Not/AZone"})
	require.Error(t, err)

	_, err = logger.NewCentralLogger(nil)
	require.Error(t, err)
}

func TestModuleLevelOverride(t *testing.T) {
	t.Parallel()

	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "error",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: false},
		ModuleLevels: map[string]string{"mqtt": "debug"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cl.Close() })

	// Smoke test: neither call may panic, and nil-safe Flush works
	cl.Module("mqtt").Debug("publishing")
	cl.Module("api").Info("suppressed")
	assert.NoError(t, cl.Module("api").Flush())

	discard := logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
	discard.Error("nothing to see")
}

func TestEchoAdapter(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	a := logger.NewEchoAdapter(logger.NewSlogLogger(buf, logger.LogLevelDebug, time.UTC).Module("echo"))

	a.Debugf("binder %s", "hidden")
	a.Warnf("slow handler %dms", 250)
	a.SetLevel(echolog.DEBUG)
	a.Debug("now visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "slow handler 250ms")
	assert.Contains(t, out, "now visible")
	assert.Contains(t, out, "module=echo")
	assert.Equal(t, echolog.DEBUG, a.Level())

	assert.Panics(t, func() { a.Fatalf("bind %s", "failed") })
	assert.Contains(t, buf.String(), "bind failed")
}
