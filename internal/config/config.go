package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Documents []Document     `yaml:"documents"`
	Snapshots SnapshotConfig `yaml:"snapshots"`
	Watch     WatchConfig    `yaml:"watch"`
	Publish   PublishConfig  `yaml:"publish"`
	Logging   LoggingConfig  `yaml:"logging"`
}

// Document selects Markdown files to track.
type Document struct {
	Path   string            `yaml:"path"`
	Name   string            `yaml:"name,omitempty"`
	Branch string            `yaml:"branch,omitempty"`
	Tags   map[string]string `yaml:"tags,omitempty"` // Additional metadata
}

// SnapshotConfig controls the structure snapshot store.
type SnapshotConfig struct {
	Path string `yaml:"path"` // SQLite database path, ":memory:" for ephemeral
	Keep int    `yaml:"keep"` // Snapshots retained per document when pruning
}

// WatchConfig controls file watching and scheduled rescans.
type WatchConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DebounceMS    int    `yaml:"debounce_ms"`
	Schedule      string `yaml:"schedule,omitempty"` // Cron expression for periodic rescans
	MetricsListen string `yaml:"metrics_listen,omitempty"`
}

// PublishConfig controls change notification publishing.
type PublishConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Load loads configuration from the specified file. Environment variables
// referenced in the YAML content are expanded, and a .env file next to the
// working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	// Missing .env is the normal case, not an error.
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath) // #nosec G304 - path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Snapshots.Path == "" {
		c.Snapshots.Path = "mdstruct.db"
	}
	if c.Snapshots.Keep == 0 {
		c.Snapshots.Keep = 20
	}
	if c.Watch.DebounceMS == 0 {
		c.Watch.DebounceMS = 500
	}
	if c.Publish.Subject == "" {
		c.Publish.Subject = "mdstruct.changes"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = string(LogLevelInfo)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = string(LogFormatText)
	}
}

// Validate reports configuration errors that defaults cannot repair.
func (c *Config) Validate() error {
	for i, doc := range c.Documents {
		if doc.Path == "" {
			return fmt.Errorf("documents[%d]: path is required", i)
		}
	}
	if c.Snapshots.Keep < 0 {
		return fmt.Errorf("snapshots.keep must not be negative, got %d", c.Snapshots.Keep)
	}
	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative, got %d", c.Watch.DebounceMS)
	}
	return nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := `# mdstruct configuration
documents:
  - path: docs/**/*.md
    name: docs

snapshots:
  path: mdstruct.db
  keep: 20

watch:
  enabled: false
  debounce_ms: 500
  # schedule: "0 * * * *"
  # metrics_listen: ":9090"

# publish:
#   nats_url: nats://localhost:4222
#   subject: mdstruct.changes

logging:
  level: info
  format: text
`
	if err := os.WriteFile(configPath, []byte(example), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
