package simulate

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/gainguard/internal/conf"
)

func TestSimulateCommand(t *testing.T) {
	script := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(script, []byte(`
controller:
  safe_mode: true
  band_range_mb: 1500
steps:
  - op: loudness
    value: 1000
  - op: bass_boost
    value: 1000
`), 0o600))

	var out bytes.Buffer
	cmd := Command(conf.Defaults())
	cmd.SetOut(&out)
	cmd.SetArgs([]string{script, "--calls"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "loudness=1000")
	assert.Contains(t, out.String(), "bass_boost.set_strength")
}

func TestSimulateCommandMissingFile(t *testing.T) {
	cmd := Command(conf.Defaults())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, cmd.Execute())
}
