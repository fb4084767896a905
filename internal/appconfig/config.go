package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/termmux/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int          `mapstructure:"config_version" yaml:"config_version"`
	DataDir       string       `mapstructure:"data_dir" yaml:"data_dir"`
	Engine        EngineConfig `mapstructure:"engine" yaml:"engine"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// EngineConfig controls the session engine.
type EngineConfig struct {
	Backend         string `mapstructure:"backend" yaml:"backend"`
	Rows            int    `mapstructure:"rows" yaml:"rows"`
	Cols            int    `mapstructure:"cols" yaml:"cols"`
	ScrollbackLines int    `mapstructure:"scrollback_lines" yaml:"scrollback_lines"`
	MaxSessions     int    `mapstructure:"max_sessions" yaml:"max_sessions"`
	CaptureDir      string `mapstructure:"capture_dir" yaml:"capture_dir"`
	LogDir          string `mapstructure:"log_dir" yaml:"log_dir"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	dataDir := filepath.Join(home, ".termmux")
	return Config{
		ConfigVersion: CurrentConfigVersion,
		DataDir:       dataDir,
		Engine: EngineConfig{
			Backend:         string(schema.BackendNative),
			Rows:            schema.DefaultRows,
			Cols:            schema.DefaultCols,
			ScrollbackLines: schema.DefaultScrollbackLines,
			MaxSessions:     schema.DefaultMaxSessions,
			CaptureDir:      filepath.Join(dataDir, "captures"),
			LogDir:          filepath.Join(dataDir, "logs"),
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".termmux", "config.yaml"), nil
}

// EngineConfig converts the configured engine section into the schema
// config, validating and defaulting as it goes.
func (c Config) EngineConfig() (schema.EngineConfig, error) {
	backend, err := schema.ParseBackendType(c.Engine.Backend)
	if err != nil {
		return schema.EngineConfig{}, err
	}
	return schema.NormalizeEngineConfig(schema.EngineConfig{
		Backend:         backend,
		Rows:            c.Engine.Rows,
		Cols:            c.Engine.Cols,
		ScrollbackLines: c.Engine.ScrollbackLines,
		MaxSessions:     c.Engine.MaxSessions,
		CaptureDir:      expandEnv(c.Engine.CaptureDir),
		LogDir:          expandEnv(c.Engine.LogDir),
	})
}
