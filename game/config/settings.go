package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/wricardo/ludo-engine/game/engine"
	"github.com/wricardo/ludo-engine/game/session"
)

// Store kinds accepted by LUDO_STORE
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

var ErrInvalidSettings = errors.New("invalid settings")

// Settings holds the process configuration
type Settings struct {
	Host  string `env:"LUDO_HOST" envDefault:"localhost"`
	Port  int    `env:"LUDO_PORT" envDefault:"8080"`
	Debug bool   `env:"LUDO_DEBUG"`

	BoardSize int `env:"LUDO_BOARD_SIZE" envDefault:"30"`

	Store      string `env:"LUDO_STORE" envDefault:"file"`
	DataFile   string `env:"LUDO_DATA_FILE" envDefault:"ludo_games.json"`
	SQLitePath string `env:"LUDO_SQLITE_PATH" envDefault:"ludo.db"`

	SessionTTL      time.Duration `env:"LUDO_SESSION_TTL" envDefault:"24h"`
	CleanupInterval time.Duration `env:"LUDO_CLEANUP_INTERVAL" envDefault:"1h"`

	NgrokEnabled bool   `env:"NGROK_ENABLED"`
	NgrokAuth    string `env:"NGROK_AUTHTOKEN"`
	NgrokDomain  string `env:"NGROK_DOMAIN"`
}

// Load reads an optional .env file and parses the environment.
// Variables already set in the environment win over the file.
func Load(dotenvPaths ...string) (Settings, error) {
	if err := godotenv.Load(dotenvPaths...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Settings{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads Settings from the environment only
func Parse() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	if s.NgrokAuth == "" {
		// Older deployments used the underscored name
		s.NgrokAuth = os.Getenv("NGROK_AUTH_TOKEN")
	}
	return s, nil
}

// Validate checks the settings for consistency
func (s Settings) Validate() error {
	if err := s.Rules().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidSettings, s.Port)
	}
	switch strings.ToLower(s.Store) {
	case StoreFile:
		if strings.TrimSpace(s.DataFile) == "" {
			return fmt.Errorf("%w: LUDO_DATA_FILE is required for the file store", ErrInvalidSettings)
		}
	case StoreSQLite:
		if strings.TrimSpace(s.SQLitePath) == "" {
			return fmt.Errorf("%w: LUDO_SQLITE_PATH is required for the sqlite store", ErrInvalidSettings)
		}
	default:
		return fmt.Errorf("%w: unknown store %q (want %s or %s)", ErrInvalidSettings, s.Store, StoreFile, StoreSQLite)
	}
	if s.SessionTTL < 0 || s.CleanupInterval < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidSettings)
	}
	return nil
}

// Rules derives the board rules
func (s Settings) Rules() engine.Rules {
	return engine.Rules{BoardSize: s.BoardSize}
}

// Addr returns the HTTP listen address
func (s Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// OpenStore opens the configured persistence backend
func (s Settings) OpenStore() (session.Store, error) {
	switch strings.ToLower(s.Store) {
	case StoreSQLite:
		store, err := session.OpenSQLiteStore(s.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoreFile:
		store, err := session.NewFileStore(s.DataFile)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown store %q", ErrInvalidSettings, s.Store)
	}
}
