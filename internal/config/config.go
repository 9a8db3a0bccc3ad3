package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/kiliankoe/gridclash/internal/game"
	"github.com/rs/zerolog"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	CatalogPath string `env:"CATALOG_PATH" envDefault:"./gridclash.db"`
	SeedCatalog bool   `env:"SEED_CATALOG" envDefault:"true"`

	TickInterval       time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
	TurnDuration       int           `env:"TURN_DURATION" envDefault:"30"`
	TransitionDuration int           `env:"TRANSITION_DURATION" envDefault:"3"`
	CombatTurn         int           `env:"COMBAT_TURN_DURATION" envDefault:"5"`
	CombatTurnNoEscape int           `env:"COMBAT_TURN_DURATION_NO_ESCAPE" envDefault:"3"`
	SlipChance         float64       `env:"SLIP_CHANCE" envDefault:"0.1"`
	EscapeChance       float64       `env:"ESCAPE_CHANCE" envDefault:"0.3"`
	DamagePerHit       int           `env:"DAMAGE_PER_HIT" envDefault:"1"`
	IcePenalty         int           `env:"ICE_PENALTY" envDefault:"0"`
	WinsToVictory      int           `env:"WINS_TO_VICTORY" envDefault:"3"`

	BotThinkTime time.Duration `env:"BOT_THINK_TIME" envDefault:"1200ms"`
	ActionRate   float64       `env:"ACTION_RATE" envDefault:"10"`
	ActionBurst  int           `env:"ACTION_BURST" envDefault:"20"`

	ExportEnabled bool   `env:"EXPORT_ENABLED" envDefault:"true"`
	ExportFile    string `env:"EXPORT_FILE" envDefault:"./gridclash-results.txt"`
}

// FromEnv loads the configuration from environment variables.
func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch {
	case c.TickInterval <= 0:
		return fmt.Errorf("TICK_INTERVAL must be positive")
	case c.TurnDuration <= 0 || c.CombatTurn <= 0 || c.CombatTurnNoEscape <= 0:
		return fmt.Errorf("turn durations must be positive")
	case c.TransitionDuration < 0:
		return fmt.Errorf("TRANSITION_DURATION must not be negative")
	case c.SlipChance < 0 || c.SlipChance > 1:
		return fmt.Errorf("SLIP_CHANCE must be within [0,1]")
	case c.WinsToVictory <= 0:
		return fmt.Errorf("WINS_TO_VICTORY must be positive")
	case c.ActionRate <= 0 || c.ActionBurst <= 0:
		return fmt.Errorf("ACTION_RATE and ACTION_BURST must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// Level is the zerolog level named by LOG_LEVEL.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// Rules turns the tunables into game rules. Escape odds outside [0,1] are
// clamped by the combat engine.
func (c Config) Rules() game.Rules {
	r := game.DefaultRules()
	r.TickInterval = c.TickInterval
	r.TurnDuration = c.TurnDuration
	r.TransitionDuration = c.TransitionDuration
	r.CombatTurnDuration = c.CombatTurn
	r.CombatTurnDurationNoEscape = c.CombatTurnNoEscape
	r.SlipChance = c.SlipChance
	r.DamagePerHit = c.DamagePerHit
	r.IcePenalty = c.IcePenalty
	r.WinsToVictory = c.WinsToVictory
	r.EscapeChance = game.ConstantEscape(c.EscapeChance)
	return r
}
