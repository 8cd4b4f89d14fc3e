package presets

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/gainguard/internal/conf"
	"github.com/tphakala/gainguard/internal/presets"
)

func TestPresetsTable(t *testing.T) {
	var out bytes.Buffer
	cmd := Command(conf.Defaults())
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(presets.All())+1)
	assert.Contains(t, lines[0], "SUB_BASS mB")
	assert.Contains(t, out.String(), presets.FullAssault.String())
}

func TestPresetsJSON(t *testing.T) {
	var out bytes.Buffer
	cmd := Command(conf.Defaults())
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--json"})
	require.NoError(t, cmd.Execute())

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Len(t, decoded, len(presets.All()))
}
