package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/gainguard/internal/errors"
)

func TestExpandString(t *testing.T) {
	t.Setenv("GAINGUARD_TEST_TOKEN", "abc")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty", input: "", want: ""},
		{name: "literal", input: "plain", want: "plain"},
		{name: "variable", input: "${GAINGUARD_TEST_TOKEN}", want: "abc"},
		{name: "embedded", input: "pre-${GAINGUARD_TEST_TOKEN}-post", want: "pre-abc-post"},
		{name: "fallback", input: "${GAINGUARD_TEST_UNSET:-dflt}", want: "dflt"},
		{name: "empty fallback", input: "${GAINGUARD_TEST_UNSET:-}", want: ""},
		{name: "missing", input: "${GAINGUARD_TEST_UNSET}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandString(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "GAINGUARD_TEST_UNSET")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	good := filepath.Join(dir, "password")
	require.NoError(t, os.WriteFile(good, []byte("s3cret\n"), 0o600))
	got, err := ReadFile(good)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o600))
	_, err = ReadFile(empty)
	assert.ErrorContains(t, err, "empty")

	big := filepath.Join(dir, "big")
	require.NoError(t, os.WriteFile(big, make([]byte, maxSecretFileSize+1), 0o600))
	_, err = ReadFile(big)
	assert.ErrorContains(t, err, "too large")

	_, err = ReadFile(dir)
	assert.ErrorContains(t, err, "not a regular file")

	_, err = ReadFile(filepath.Join(dir, "missing"))
	assert.ErrorContains(t, err, "not found")

	_, err = ReadFile("")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	t.Setenv("GAINGUARD_TEST_PASSWORD", "from-env")
	file := filepath.Join(t.TempDir(), "password")
	require.NoError(t, os.WriteFile(file, []byte("from-file"), 0o600))

	got, err := Resolve("mqtt.password", file, "${GAINGUARD_TEST_PASSWORD}")
	require.NoError(t, err)
	assert.Equal(t, "from-file", got, "file wins")

	got, err = Resolve("mqtt.password", "", "${GAINGUARD_TEST_PASSWORD}")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	got, err = Resolve("mqtt.password", "", "")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Resolve("telemetry.dsn", filepath.Join(t.TempDir(), "nope"), "")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
