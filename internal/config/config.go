// Package config loads engine configuration from config files, environment
// variables, and .env files.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/atlasgov/cartograph/pkg/errors"
)

// Defaults for tunable engine parameters.
const (
	DefaultMerkleCapacity = 4096
	DefaultWorkers        = 8
	DefaultDataDir        = ".cartograph"
)

// Config holds the engine configuration loaded from all sources.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Output  string

	// Config file actually used, if any
	ConfigFile string

	// Engine tuning
	MerkleCapacity    int
	Workers           int
	AuthorityRegistry string

	// Resolver confidence weights
	AuthorityWeight int
	AgreementWeight int

	// Deduplication thresholds
	DedupeUnconditionalIoU     float64
	DedupeWithNameIoU          float64
	DedupeNameSimilarity       float64
	RemovalWarnFraction        float64
	ClassificationWarnFraction float64

	// Storage
	DataDir string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration in order of precedence: flags (bound by cobra),
// environment variables, .env files, config file, defaults.
func Load() (*Config, error) {
	loadEnvFiles()

	viper.SetEnvPrefix("CARTOGRAPH")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults()

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.WrapParse("yaml", configFile, err)
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".cartograph")
		}
		// Config file is optional when not named explicitly.
		_ = viper.ReadInConfig()
	}

	config := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),
		Output:  viper.GetString("output"),

		ConfigFile: viper.ConfigFileUsed(),

		MerkleCapacity:    viper.GetInt("merkle_capacity"),
		Workers:           viper.GetInt("workers"),
		AuthorityRegistry: viper.GetString("authority_registry"),

		AuthorityWeight: viper.GetInt("authority_weight"),
		AgreementWeight: viper.GetInt("agreement_weight"),

		DedupeUnconditionalIoU:     viper.GetFloat64("dedupe_unconditional_iou"),
		DedupeWithNameIoU:          viper.GetFloat64("dedupe_with_name_iou"),
		DedupeNameSimilarity:       viper.GetFloat64("dedupe_name_similarity"),
		RemovalWarnFraction:        viper.GetFloat64("removal_warn_fraction"),
		ClassificationWarnFraction: viper.GetFloat64("classification_warn_fraction"),

		DataDir: viper.GetString("data_dir"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
	}

	return config, config.Validate()
}

// Validate checks the loaded configuration for values the engine cannot run
// with.
func (c *Config) Validate() error {
	if c.MerkleCapacity <= 0 || c.MerkleCapacity&(c.MerkleCapacity-1) != 0 {
		return errors.NewValidationError("", "merkle_capacity", "must be a positive power of two")
	}
	if c.Workers <= 0 {
		return errors.NewValidationError("", "workers", "must be positive")
	}
	if c.DedupeUnconditionalIoU < c.DedupeWithNameIoU {
		return errors.NewValidationError("", "dedupe_unconditional_iou", "must not be below dedupe_with_name_iou")
	}
	for field, value := range map[string]float64{
		"dedupe_unconditional_iou":     c.DedupeUnconditionalIoU,
		"dedupe_with_name_iou":         c.DedupeWithNameIoU,
		"dedupe_name_similarity":       c.DedupeNameSimilarity,
		"removal_warn_fraction":        c.RemovalWarnFraction,
		"classification_warn_fraction": c.ClassificationWarnFraction,
	} {
		if value < 0 || value > 1 {
			return errors.NewValidationError("", field, "must be in [0, 1]")
		}
	}
	return nil
}

// UpdateFromFlags applies parsed command flags, which take precedence over
// config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, output string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if output != "" {
		c.Output = output
	}
}

// SnapshotDir returns the snapshot store path under the data directory.
func (c *Config) SnapshotDir() string {
	return c.DataDir + "/snapshots"
}

// ProvenanceDir returns the event log path under the data directory.
func (c *Config) ProvenanceDir() string {
	return c.DataDir + "/provenance"
}

func setDefaults() {
	viper.SetDefault("merkle_capacity", DefaultMerkleCapacity)
	viper.SetDefault("workers", DefaultWorkers)
	viper.SetDefault("data_dir", DefaultDataDir)

	viper.SetDefault("authority_weight", 20)
	viper.SetDefault("agreement_weight", 10)

	viper.SetDefault("dedupe_unconditional_iou", 0.95)
	viper.SetDefault("dedupe_with_name_iou", 0.90)
	viper.SetDefault("dedupe_name_similarity", 0.70)
	viper.SetDefault("removal_warn_fraction", 0.10)
	viper.SetDefault("classification_warn_fraction", 0.05)
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
