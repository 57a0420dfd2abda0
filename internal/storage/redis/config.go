package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	PoolSize     int
	MinIdleConns int

	// LobbyRecordTTL expires lobby records; users never expire
	LobbyRecordTTL time.Duration
	// MatchHistoryLimit caps the recent-results list
	MatchHistoryLimit int64
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:               "redis://localhost:6379",
		PoolSize:          10,
		MinIdleConns:      2,
		LobbyRecordTTL:    7 * 24 * time.Hour,
		MatchHistoryLimit: 1000,
	}
}
