package config

import (
	"testing"
	"time"

	"github.com/kiliankoe/gridclash/internal/game"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsMatchGameRules(t *testing.T) {
	c, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, zerolog.InfoLevel, c.Level())

	got, want := c.Rules(), game.DefaultRules()
	assert.Equal(t, want.TurnDuration, got.TurnDuration)
	assert.Equal(t, want.CombatTurnDuration, got.CombatTurnDuration)
	assert.Equal(t, want.CombatTurnDurationNoEscape, got.CombatTurnDurationNoEscape)
	assert.Equal(t, want.SlipChance, got.SlipChance)
	assert.Equal(t, want.WinsToVictory, got.WinsToVictory)
	assert.Equal(t, want.RunCap, got.RunCap)
	assert.InDelta(t, 0.3, got.EscapeChance(nil, nil), 1e-9)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("TICK_INTERVAL", "250ms")
	t.Setenv("ESCAPE_CHANCE", "0.75")
	t.Setenv("WINS_TO_VICTORY", "5")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("EXPORT_ENABLED", "false")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "3000", c.Port)
	assert.Equal(t, zerolog.DebugLevel, c.Level())
	assert.False(t, c.ExportEnabled)

	r := c.Rules()
	assert.Equal(t, 250*time.Millisecond, r.TickInterval)
	assert.Equal(t, 5, r.WinsToVictory)
	assert.InDelta(t, 0.75, r.EscapeChance(nil, nil), 1e-9)
}

func TestInvalidValuesAreRejected(t *testing.T) {
	cases := map[string]string{
		"TURN_DURATION": "0",
		"SLIP_CHANCE":   "1.5",
		"LOG_LEVEL":     "chatty",
		"ACTION_BURST":  "0",
		"TICK_INTERVAL": "soon",
	}
	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
