package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// LedgerDirEnv names the environment variable that overrides the default
// ledger directory.
const LedgerDirEnv = "CHERRY_ORCH_DIR"

// Config holds all application configuration
type Config struct {
	Ledger        LedgerConfig        `toml:"ledger"`
	Git           GitConfig           `toml:"git"`
	Links         LinksConfig         `toml:"links"`
	Polling       PollingConfig       `toml:"polling"`
	History       HistoryConfig       `toml:"history"`
	Web           WebConfig           `toml:"web"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// LedgerConfig holds ledger file settings
type LedgerConfig struct {
	Dir      string `toml:"dir"`
	FileName string `toml:"file_name"`
	Format   string `toml:"format"`
}

// GitConfig holds settings for the wrapped git repository
type GitConfig struct {
	RepoDir string `toml:"repo_dir"`
}

// LinksConfig holds the URL templates for the Markdown ledger variant.
// Each template takes one %s verb (commit hash or PR number).
type LinksConfig struct {
	CommitURL string `toml:"commit_url"`
	PullURL   string `toml:"pull_url"`
}

// PollingConfig controls the unattended conflict wait
type PollingConfig struct {
	Interval time.Duration `toml:"interval"`
	// Timeout of zero preserves the historical wait-forever behavior.
	Timeout time.Duration `toml:"timeout"`
}

// HistoryConfig holds campaign-run history settings
type HistoryConfig struct {
	DatabasePath string `toml:"database_path"`
}

// WebConfig holds the status server settings
type WebConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// NotificationsConfig holds settings for unattended-run notifications
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// Default returns a Config with sensible defaults. The ledger directory
// honors CHERRY_ORCH_DIR and falls back to the user's home directory.
func Default() *Config {
	home, _ := os.UserHomeDir()
	ledgerDir := os.Getenv(LedgerDirEnv)
	if ledgerDir == "" {
		ledgerDir = home
	}
	return &Config{
		Ledger: LedgerConfig{
			Dir:      ledgerDir,
			FileName: "cherry-picks.csv",
			Format:   "",
		},
		Git: GitConfig{
			RepoDir: ".",
		},
		Polling: PollingConfig{
			Interval: 5 * time.Second,
			Timeout:  0,
		},
		History: HistoryConfig{
			DatabasePath: filepath.Join(home, ".cherry-orch", "history.db"),
		},
		Web: WebConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.Ledger.Dir = ExpandPath(cfg.Ledger.Dir)
	cfg.Git.RepoDir = ExpandPath(cfg.Git.RepoDir)
	cfg.History.DatabasePath = ExpandPath(cfg.History.DatabasePath)

	return cfg, nil
}

// LedgerPath returns the full path of the default ledger file
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Ledger.Dir, c.Ledger.FileName)
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cherry-orch", "config.toml")
}
