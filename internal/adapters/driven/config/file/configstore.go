// Package file loads and stores the tool configuration as a TOML file.
// The configuration is read once at process start into an explicit Config
// value that is passed into the adapters; there are no ambient globals.
// Secrets may also arrive via environment variables, which override the
// file so CI schedulers need not persist credentials.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Environment variable overrides, matching what the hosted scheduler
// injects into pipeline jobs.
const (
	EnvGitHubToken      = "GITHUB_TOKEN"
	EnvGitHubRepository = "GITHUB_REPOSITORY"
	EnvOpenAIKey        = "OPENAI_API_KEY"
	EnvLINEToken        = "LINE_CHANNEL_ACCESS_TOKEN"
	EnvLINESecret       = "LINE_CHANNEL_SECRET"
)

// Config is the full tool configuration.
type Config struct {
	GitHub GitHubConfig `toml:"github"`
	OpenAI OpenAIConfig `toml:"openai"`
	LINE   LINEConfig   `toml:"line"`
	Render RenderConfig `toml:"render"`
	Store  StoreConfig  `toml:"store"`
}

// GitHubConfig locates the remote document store.
type GitHubConfig struct {
	Token string `toml:"token"`
	Owner string `toml:"owner"`
	Repo  string `toml:"repo"`
	Path  string `toml:"path"`
}

// OpenAIConfig configures the enrichment functions.
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

// LINEConfig configures the push transport and webhook verification.
type LINEConfig struct {
	ChannelToken  string `toml:"channel_token"`
	ChannelSecret string `toml:"channel_secret"`
}

// RenderConfig locates the mind-map rendering collaborator. An empty URL
// disables image rendering; text delivery is unaffected.
type RenderConfig struct {
	URL string `toml:"url"`
}

// StoreConfig selects the document store variant.
type StoreConfig struct {
	// Local selects the plain-file store instead of GitHub.
	Local bool `toml:"local"`

	// File is the local store path (default: data/database.json).
	File string `toml:"file"`
}

// DefaultPath returns the default config file location,
// ~/.nightidea/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".nightidea", "config.toml"), nil
}

// Load reads the config file at path and applies environment overrides.
// A missing file is not an error: the zero configuration plus environment
// variables is a valid setup for scheduled jobs.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile reads the config file at path without environment overrides.
// Editing commands work on this view so an environment-injected secret is
// never written back into the file.
func LoadFile(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Environment-only configuration.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return &cfg, nil
}

// Save writes the configuration to path, creating the directory with owner
// only permissions since the file holds credentials.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides file values with environment variables when set.
// GITHUB_REPOSITORY uses the owner/name form the hosted scheduler exports.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvGitHubToken); v != "" {
		c.GitHub.Token = v
	}
	if v := os.Getenv(EnvGitHubRepository); v != "" {
		if owner, repo, ok := strings.Cut(v, "/"); ok {
			c.GitHub.Owner = owner
			c.GitHub.Repo = repo
		}
	}
	if v := os.Getenv(EnvOpenAIKey); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv(EnvLINEToken); v != "" {
		c.LINE.ChannelToken = v
	}
	if v := os.Getenv(EnvLINESecret); v != "" {
		c.LINE.ChannelSecret = v
	}
}
