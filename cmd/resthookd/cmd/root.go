// Package cmd implements the resthookd command tree.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xraph/resthook"
)

var (
	cfgFile string

	// v holds the daemon configuration. Event names contain dots, so keys
	// are split on "::" instead.
	v = viper.NewWithOptions(viper.KeyDelimiter("::"))
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "resthookd",
	Short: "REST hooks delivery daemon",
	Long: `resthookd runs the resthook subscription API. Subscribers register
target URLs for configured events; events fired through the API are
POSTed to every matching target.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./resthook.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	defaults := resthook.DefaultConfig()
	v.SetDefault("threading", defaults.Threading)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("request_timeout", defaults.RequestTimeout)
	v.SetDefault("shutdown_timeout", defaults.ShutdownTimeout)
	v.SetDefault("cleanup_gone", defaults.CleanupGone)
	v.SetDefault("target_rate_limit", defaults.TargetRateLimit)
	v.SetDefault("target_burst", defaults.TargetBurst)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("resthook")
	}

	v.SetEnvPrefix("RESTHOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	}
}

// loadConfig decodes the hooks configuration from viper.
func loadConfig() (resthook.Config, error) {
	cfg := resthook.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = resthook.DefaultConfig().Workers
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = resthook.DefaultConfig().RequestTimeout
	}
	return cfg, nil
}

// newLogger returns a JSON logger at the configured level.
func newLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// durationOr returns the viper duration at key, or def when unset.
func durationOr(key string, def time.Duration) time.Duration {
	if d := v.GetDuration(key); d > 0 {
		return d
	}
	return def
}
