package buildinfo

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextAccessors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ctx       *Context
		version   string
		buildDate string
	}{
		{"nil context", nil, UnknownValue, UnknownValue},
		{"empty values", NewContext("", ""), UnknownValue, UnknownValue},
		{"populated", NewContext("v1.2.0", "2026-10-01"), "v1.2.0", "2026-10-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.version, tt.ctx.GetVersion())
			assert.Equal(t, tt.buildDate, tt.ctx.GetBuildDate())
		})
	}
}

func TestCurrentCarriesGoVersion(t *testing.T) {
	t.Parallel()

	var info BuildInfo = Current()
	assert.NotEmpty(t, info.GetVersion())
	assert.Equal(t, runtime.Version(), Current().GoVersion)
}
