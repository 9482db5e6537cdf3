package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds server configuration loaded from environment variables.
type Config struct {
	Port       string
	DBPath     string
	MaxRooms   int
	MaxHistory int

	// CleanerLimit is how many bot messages a room keeps before the oldest
	// one is deleted.
	CleanerLimit int
	// BotName is the user the bot posts as. Clients cannot join under it.
	BotName string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Port:         envOrDefault("PORT", "8080"),
		DBPath:       envOrDefault("DB_PATH", "chatterbox.db"),
		MaxRooms:     envOrDefaultInt("MAX_ROOMS", 100),
		MaxHistory:   envOrDefaultInt("MAX_HISTORY", 50),
		CleanerLimit: envOrDefaultInt("CLEANER_LIMIT", 10),
		BotName:      envOrDefault("BOT_NAME", "cleanerbot"),
	}
}

// Validate reports the first setting the server cannot start with.
func (c Config) Validate() error {
	if c.CleanerLimit <= 0 {
		return fmt.Errorf("CLEANER_LIMIT must be greater than 0, got %d", c.CleanerLimit)
	}
	if c.MaxRooms <= 0 {
		return fmt.Errorf("MAX_ROOMS must be greater than 0, got %d", c.MaxRooms)
	}
	if c.MaxHistory < 0 {
		return fmt.Errorf("MAX_HISTORY must not be negative, got %d", c.MaxHistory)
	}
	if strings.TrimSpace(c.BotName) == "" {
		return fmt.Errorf("BOT_NAME must not be empty")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
