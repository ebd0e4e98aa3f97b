package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Snapshot formats
const (
	FormatCBOR   = "cbor"
	FormatJSON   = "json"
	FormatSQLite = "sqlite"
)

type Config struct {
	Tools          Tools    `yaml:"tools"`
	DeviceTemplate string   `yaml:"device_template"`
	StrictExit     bool     `yaml:"strict_exit"`
	Snapshot       Snapshot `yaml:"snapshot"`
	LogLevel       string   `yaml:"log_level"`

	// File the config was read from, empty when defaults are used
	Source string `yaml:"-"`
}

type Tools struct {
	Sas2ircu string `yaml:"sas2ircu"`
	Prtconf  string `yaml:"prtconf"`
	Zpool    string `yaml:"zpool"`
}

type Snapshot struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

// defaultConfig matches a Solaris/illumos host with one mpt_sas controller
var defaultConfig = Config{
	Tools: Tools{
		Sas2ircu: "/usr/sbin/sas2ircu",
		Prtconf:  "/usr/sbin/prtconf",
		Zpool:    "/usr/sbin/zpool",
	},
	DeviceTemplate: "/dev/rdsk/c1t%sd0",
	Snapshot: Snapshot{
		Format: FormatCBOR,
	},
	LogLevel: "info",
}

// DefaultSnapshotPath returns where snapshots of the given format are kept
// unless configured otherwise.
func DefaultSnapshotPath(format string) string {
	switch format {
	case FormatJSON:
		return "/var/lib/diskmap/snapshot.json"
	case FormatSQLite:
		return "/var/lib/diskmap/inventory.db"
	default:
		return "/var/lib/diskmap/snapshot.cbor"
	}
}

// Default returns the built-in configuration
func Default() *Config {
	cfg := defaultConfig
	cfg.Snapshot.Path = DefaultSnapshotPath(cfg.Snapshot.Format)
	return &cfg
}

func Load(path string) (*Config, error) {
	if path == "" {
		// Try default locations
		candidates := []string{
			"/etc/diskmap/config.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/diskmap/config.yaml"),
			"config.yaml",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	cfg := defaultConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		cfg.Source = path
	}

	// Apply defaults for fields the file left empty
	if cfg.Tools.Sas2ircu == "" {
		cfg.Tools.Sas2ircu = defaultConfig.Tools.Sas2ircu
	}
	if cfg.Tools.Prtconf == "" {
		cfg.Tools.Prtconf = defaultConfig.Tools.Prtconf
	}
	if cfg.Tools.Zpool == "" {
		cfg.Tools.Zpool = defaultConfig.Tools.Zpool
	}
	if cfg.DeviceTemplate == "" {
		cfg.DeviceTemplate = defaultConfig.DeviceTemplate
	}
	if cfg.Snapshot.Format == "" {
		cfg.Snapshot.Format = defaultConfig.Snapshot.Format
	}
	if cfg.Snapshot.Path == "" {
		cfg.Snapshot.Path = DefaultSnapshotPath(cfg.Snapshot.Format)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultConfig.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late during discovery
func (c *Config) Validate() error {
	if n := strings.Count(c.DeviceTemplate, "%"); n != 1 || !strings.Contains(c.DeviceTemplate, "%s") {
		return fmt.Errorf("device_template %q must contain exactly one %%s", c.DeviceTemplate)
	}
	switch c.Snapshot.Format {
	case FormatCBOR, FormatJSON, FormatSQLite:
	default:
		return fmt.Errorf("unknown snapshot format %q (want cbor, json or sqlite)", c.Snapshot.Format)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel converts a log_level value to a slog level
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
