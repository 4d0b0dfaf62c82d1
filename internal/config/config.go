package config

import (
	"errors"
	"os"

	"github.com/SavagePirate/assetdeploy/internal/domain"
)

// ErrMissingToken signals that the API credential was not configured.
// Callers exit with a distinct code rather than retrying.
var ErrMissingToken = errors.New("need environment variable GITHUB_API_TOKEN (see https://github.com/settings/tokens/new, scope public_repo)")

type Config struct {
	Token       string
	ProfilesDir string
	CachePath   string
	LogLevel    string
}

func Load() *Config {
	return &Config{
		Token:       os.Getenv("GITHUB_API_TOKEN"),
		ProfilesDir: getEnv("ASSETDEPLOY_PROFILES_DIR", "./profiles"),
		CachePath:   os.Getenv("ASSETDEPLOY_CACHE"),
		LogLevel:    getEnv("ASSETDEPLOY_LOG_LEVEL", "info"),
	}
}

// RequireToken returns the configured API token or ErrMissingToken.
// The credential is threaded explicitly into the API client; nothing
// reads the environment after this point.
func (c *Config) RequireToken() (string, error) {
	if c.Token == "" {
		return "", ErrMissingToken
	}
	return c.Token, nil
}

// DefaultProfile is the built-in asset stream, used when no profile
// file is selected.
func DefaultProfile() *domain.Profile {
	return &domain.Profile{
		ID:   "lila",
		Name: "lila assets",
		TrackedPaths: []string{
			".github/workflows/assets.yml",
			"public",
			"ui",
			"package.json",
			"yarn.lock",
		},
		RunsURL:      "https://api.github.com/repos/ornicar/lila/actions/workflows/assets.yml/runs",
		ArtifactName: "lila-assets",
		Host:         "root@khiaw.lichess.ovh",
		ArtifactsDir: "/home/lichess-artifacts",
		DeployDir:    "/home/lichess-deploy",
		LinkName:     "public",
		SessionName:  "lila-deploy",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
