package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/lineage/internal/logging"
	"github.com/ppiankov/lineage/internal/model"
	"github.com/ppiankov/lineage/internal/store"
)

// Version is set at build time
var Version = "dev"

var (
	cfgFile   string
	dbPath    string
	logFormat string
	verbose   bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lineage",
	Short: "Lineage - link scanned genealogy documents to family tree persons",
	Long: `Lineage links a folder of scanned genealogy documents to the persons in a
family tree database.

It reads names from file names, OCR transcriptions and vision model output,
scores them against every person and records document matches with a
confidence and a method. It also flags person records that may be
duplicates and recomputes person confidence from linked documents.

Every automatic match is a lead for human review, never a merge.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lineage %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.lineage/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "lineage database path (overrides database.path)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (overrides log.format)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	_ = viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	// Seed every key with its default so env vars and Unmarshal see them
	defaults, err := yaml.Marshal(model.DefaultConfig())
	if err == nil {
		viper.SetConfigType("yaml")
		_ = viper.ReadConfig(bytes.NewReader(defaults))
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".lineage"))
		viper.SetConfigName("config")
	}

	// Read in environment variables that match LINEAGE_*, e.g. LINEAGE_VISION_MODEL
	viper.SetEnvPrefix("LINEAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.MergeInConfig(); err != nil {
		if cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", cfgFile, err)
		}
	} else if verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig returns the effective configuration
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.OCR.APIKey == "" && strings.EqualFold(cfg.OCR.Engine, "openai") {
		cfg.OCR.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Vision.APIKey == "" && strings.EqualFold(cfg.Vision.Engine, "openai") {
		cfg.Vision.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the command logger from configuration
func newLogger(cfg *model.Config) (*slog.Logger, error) {
	return logging.NewFromConfig(cfg.Log, os.Stderr)
}

// env bundles what most commands need
type env struct {
	cfg    *model.Config
	logger *slog.Logger
	store  *store.Store
}

func (e *env) Close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

// openEnv loads configuration, builds the logger and opens the database.
func openEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	logger.Debug("database opened", "path", st.Path())
	return &env{cfg: cfg, logger: logger, store: st}, nil
}

// withWriter runs fn while holding the database writer lock.
func (e *env) withWriter(ctx context.Context, fn func(ctx context.Context) error) error {
	lock, err := store.AcquireWriterLock(e.cfg.Database.Path)
	if err != nil {
		if errors.Is(err, store.ErrLocked) {
			return fmt.Errorf("another lineage command is writing to %s", e.cfg.Database.Path)
		}
		return err
	}
	defer func() { _ = lock.Release() }()
	return fn(ctx)
}
