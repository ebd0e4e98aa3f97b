package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigreer/diskmap/internal/config"
	"github.com/sigreer/diskmap/internal/db"
	"github.com/sigreer/diskmap/internal/discovery"
	"github.com/sigreer/diskmap/internal/extract"
	"github.com/sigreer/diskmap/internal/inventory"
	"github.com/sigreer/diskmap/internal/snapshot"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "diskmap",
	Short: "Map SAS enclosure slots to OS disk devices",
	Long: `diskmap reads the controller, enclosure and drive report of sas2ircu
and the device tree of prtconf, and matches drives by serial number to
find which /dev/rdsk device sits in which enclosure slot.

Run without a command to start the interactive shell.`,
	Args: cobra.NoArgs,
	Run:  runShell,
}

// inventoryStore is a snapshot file or the SQLite database
type inventoryStore interface {
	Save(inv *inventory.Inventory) error
	Load() (*inventory.Inventory, error)
	Close() error
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/diskmap/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(identifyCmd)
	rootCmd.AddCommand(detailCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(poolsCmd)
	rootCmd.AddCommand(healthcheckCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(versionCmd)
}

// fatal prints an error the way every command reports failure and exits
func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// loadConfig reads the config and applies the --log-level override
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fatal("loading config: %v", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg
}

func logLevelOf(cfg *config.Config) slog.Level {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		fatal("%v", err)
	}
	return level
}

// newLogger installs a text logger on stderr as the default logger
func newLogger(cfg *config.Config) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevelOf(cfg)}))
	slog.SetDefault(logger)
	if cfg.Source != "" {
		logger.Debug("config loaded", "path", cfg.Source)
	}
	return logger
}

// newDiscoverer builds a discoverer and checks that sas2ircu can run
func newDiscoverer(cfg *config.Config, logger *slog.Logger) *discovery.Discoverer {
	runner := extract.NewExecRunner(cfg.StrictExit, logger)
	d := discovery.New(runner, cfg.Tools.Sas2ircu, cfg.Tools.Prtconf, cfg.DeviceTemplate, logger)
	d.Zpool = cfg.Tools.Zpool
	if err := d.Preflight(); err != nil {
		if extract.CommandExists("sas2ircu") {
			fatal("cannot find sas2ircu: %v (sas2ircu is in PATH, set tools.sas2ircu)", err)
		}
		fatal("cannot find sas2ircu: %v", err)
	}
	return d
}

// openStore opens the configured snapshot backend
func openStore(cfg *config.Config) inventoryStore {
	switch cfg.Snapshot.Format {
	case config.FormatSQLite:
		database, err := db.New(cfg.Snapshot.Path)
		if err != nil {
			fatal("opening database: %v", err)
		}
		return database
	default:
		return snapshot.NewStore(cfg.Snapshot.Path, snapshot.Codec(cfg.Snapshot.Format))
	}
}

// loadSnapshot reads the saved inventory or exits with a hint
func loadSnapshot(store inventoryStore) *inventory.Inventory {
	inv, err := store.Load()
	if err != nil {
		if errors.Is(err, snapshot.ErrNoSnapshot) {
			fatal("no snapshot saved yet, run 'diskmap discover --save' first")
		}
		fatal("loading snapshot: %v", err)
	}
	return inv
}

// currentInventory runs discovery when live is set and reads the snapshot otherwise
func currentInventory(cfg *config.Config, logger *slog.Logger, live bool) *inventory.Inventory {
	if live {
		inv, _, err := newDiscoverer(cfg, logger).Discover()
		if err != nil {
			fatal("%v", err)
		}
		return inv
	}
	store := openStore(cfg)
	defer store.Close()
	return loadSnapshot(store)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
