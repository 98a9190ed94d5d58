package vhconfig

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(strings.NewReader(`{"backends":[{"name":"pg","dsn":"postgres://x"}]}`))
	require.NoError(t, err)
	assert.Equal(t, uint16(8), cfg.Buffers.AllocFactor)
	assert.Equal(t, 10, cfg.Buffers.MaxBuffers)
	require.Len(t, cfg.BackEnds, 1)
	assert.Equal(t, "pg", cfg.BackEnds[0].Name)
}

func TestLoadRejectsTooManyBuffers(t *testing.T) {
	_, err := Load(strings.NewReader(`{"buffers":{"max_buffers":11}}`))
	require.Error(t, err)
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	_, err := Load(strings.NewReader(`not json`))
	require.Error(t, err)
}
