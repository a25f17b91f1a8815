package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config carries the collaborator endpoints and the bearer credential. The
// credential normally comes from the auth subsystem; the env fallback serves
// the CLI and local development.
type Config struct {
	APIBaseURL string
	WSBaseURL  string
	Token      string
}

// Load reads .env if present, then the environment, falling back to local
// defaults.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		APIBaseURL: getenv("PARTY_API_URL", "http://localhost:8080"),
		WSBaseURL:  getenv("PARTY_WS_URL", "ws://localhost:8080"),
		Token:      os.Getenv("PARTY_TOKEN"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
