// =============================================================================
// mercado - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (mercado)
//   ├── planCmd        (mercado plan)
//   ├── categoriesCmd  (mercado categories)
//   ├── pricesCmd      (mercado prices)
//   ├── listCmd        (mercado list)
//   ├── checkCmd       (mercado check)
//   ├── addCmd         (mercado add)
//   ├── sessionsCmd    (mercado sessions [create|delete])
//   ├── refreshCmd     (mercado refresh)
//   └── versionCmd     (mercado version)
//
// CONFIGURATION:
//   The configuration file is found with viper: --config, or
//   $HOME/.mercado.yaml. Without a file the defaults apply. Environment
//   variables prefixed MERCADO_ override single settings:
//     MERCADO_LOG_LEVEL, MERCADO_STATE_DB, MERCADO_CACHE_DIR,
//     MERCADO_CACHE_TTL, MERCADO_EXPORT_DIR
//   Table locations can be given per invocation with --requirements,
//   --prices and --equivalences.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/ginjaninja78/mercado/internal/config"
	"github.com/ginjaninja78/mercado/pkg/utils"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// sessionRef names the session commands work on.
var sessionRef string

// Table locations given on the command line.
var (
	requirementsLocation string
	pricesLocation       string
	equivalencesLocation string
)

// envOverrides maps viper keys to the settings they override.
var envOverrides = []string{"log_level", "state_db", "cache_dir", "cache_ttl", "export_dir"}

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "mercado",
	Short: "Plan the weekly market: shopping list, prices, costs and checklist",
	Long: `mercado reads a requirements table, a price history table and a
units-per-kilogram table (CSV or XLSX, local or from a URL), and for the
categories you select it prints:

  - the aggregated shopping list
  - the latest price of every product
  - the cost per category and in total
  - a checklist that remembers what you already bought

Example Usage:
  mercado categories                 # List the selectable categories
  mercado plan 1 3 4                 # Plan categories 1, 3 and 4
  mercado check 2                    # Mark item 2 of the list as bought
  mercado plan --export xlsx         # Re-plan the last selection and export it`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Ctrl-C cancels the context of the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		utils.Log.Error(err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mercado.yaml)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().StringVarP(&sessionRef, "session", "s", "", "Session name or id (default \"default\")")

	rootCmd.PersistentFlags().StringVar(&requirementsLocation, "requirements", "", "Requirements table path or URL")
	rootCmd.PersistentFlags().StringVar(&pricesLocation, "prices", "", "Price history table path or URL")
	rootCmd.PersistentFlags().StringVar(&equivalencesLocation, "equivalences", "", "Units-per-kilogram table path or URL")
}

// initConfig locates the config file and wires environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".mercado")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MERCADO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range envOverrides {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			utils.Log.Warnf("Failed to read config file %s: %v", cfgFile, err)
		}
	}

	// Init log library
	level := viper.GetString("log_level")
	if flag, _ := rootCmd.PersistentFlags().GetString("loglevel"); flag != "" {
		level = flag
	}
	if err := utils.SetLogLevel(level); err != nil {
		utils.Log.Warn(err)
	}
}

// loadConfig builds the effective configuration: the config file (or the
// defaults), then environment overrides, then command line table locations.
func loadConfig() (*config.MainConfig, error) {
	var (
		cfg *config.MainConfig
		err error
	)
	if path := viper.ConfigFileUsed(); path != "" && utils.FileExists(path) {
		utils.Log.Debugf("Using config file %s", path)
		if cfg, err = config.LoadMainConfig(path); err != nil {
			return nil, err
		}
	} else {
		if cfgFile != "" {
			return nil, fmt.Errorf("config file %s not found", cfgFile)
		}
		cfg = config.Default()
	}

	if v := viper.GetString("log_level"); v != "" {
		cfg.LogLevel = v
	}
	if v := viper.GetString("state_db"); v != "" {
		cfg.StateDB = expandPath(v)
	}
	if v := viper.GetString("cache_dir"); v != "" {
		cfg.CacheDir = expandPath(v)
	}
	if v := viper.GetString("cache_ttl"); v != "" {
		cfg.CacheTTL = v
	}
	if v := viper.GetString("export_dir"); v != "" {
		cfg.ExportDir = expandPath(v)
	}

	if requirementsLocation != "" {
		cfg.Sources.Requirements.SetLocation(requirementsLocation)
	}
	if pricesLocation != "" {
		cfg.Sources.Prices.SetLocation(pricesLocation)
	}
	if equivalencesLocation != "" {
		cfg.Sources.Equivalences.SetLocation(equivalencesLocation)
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if flag, _ := rootCmd.PersistentFlags().GetString("loglevel"); flag == "" {
		if err := utils.SetLogLevel(cfg.LogLevel); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func expandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}
