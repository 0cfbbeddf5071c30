package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sternrassler/fizzy-go/pkg/client"
	"github.com/Sternrassler/fizzy-go/pkg/fizzy"
	"github.com/Sternrassler/fizzy-go/pkg/logging"
	"github.com/Sternrassler/fizzy-go/pkg/metrics"
	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

// app carries the state shared by all commands.
type app struct {
	v      *viper.Viper
	fs     afero.Fs
	logger zerolog.Logger
	client *fizzy.Client

	// Command flags
	cfgFile string
	noCache bool
	verbose bool
	asJSON  bool
	stats   bool
}

func newApp() *app {
	return &app{v: viper.New(), fs: afero.NewOsFs(), logger: zerolog.Nop()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "fizzy",
		Short: "Command line client for Fizzy boards and cards",
		Long: `fizzy talks to the Fizzy API. Credentials and the account come from
~/.fizzy/config.yaml, FIZZY_* environment variables, or flags.`,
		Version:            version,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.initialize,
		PersistentPostRunE: a.finish,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ~/.fizzy/config.yaml)")
	flags.String("base-url", transport.DefaultBaseURL, "Fizzy base URL")
	flags.String("token", "", "personal API token")
	flags.String("account", "", "account slug")
	flags.String("redis-url", "", "share the response cache and rate limit cooldown through Redis")
	flags.BoolVar(&a.noCache, "no-cache", false, "disable the ETag cache")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	flags.BoolVar(&a.asJSON, "json", false, "print JSON instead of tables")
	flags.BoolVar(&a.stats, "stats", false, "print request and cache statistics when done")

	for key, flag := range map[string]string{
		"base_url":  "base-url",
		"token":     "token",
		"account":   "account",
		"redis_url": "redis-url",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newBoardsCmd(a),
		newCardsCmd(a),
		newCommentsCmd(a),
		newNotificationsCmd(a),
		newUploadCmd(a),
		newLoginCmd(a),
		newWhoamiCmd(a),
	)
	return root
}

// configPath is the file settings are read from and written to.
func (a *app) configPath() string {
	if a.cfgFile != "" {
		return a.cfgFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".fizzy", "config.yaml")
	}
	return filepath.Join(home, ".fizzy", "config.yaml")
}

// initialize loads the configuration and sets up logging.
func (a *app) initialize(cmd *cobra.Command, _ []string) error {
	a.v.SetFs(a.fs)
	a.v.SetEnvPrefix("FIZZY")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindEnv("account", "FIZZY_ACCOUNT", "FIZZY_ACCOUNT_SLUG")
	for _, key := range []string{"session_token", "timeout", "cache_ttl", "rate_limit", "mode", "log_level", "retry.max_attempts"} {
		_ = a.v.BindEnv(key)
	}
	a.v.SetDefault("log_level", string(logging.LevelWarn))

	path := a.configPath()
	if ok, _ := afero.Exists(a.fs, path); ok {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	level := logging.LogLevel(a.v.GetString("log_level"))
	if a.verbose {
		level = logging.LevelDebug
	}
	a.logger = logging.Setup(logging.Config{Level: level, Output: cmd.ErrOrStderr()})
	return nil
}

// clientConfig merges defaults, config file, environment and flags.
func (a *app) clientConfig() (client.Config, error) {
	cfg := client.DefaultConfig("", "")
	if err := a.v.Unmarshal(&cfg); err != nil {
		return client.Config{}, fmt.Errorf("decode configuration: %w", err)
	}
	if a.noCache {
		cfg.EnableCache = false
	}
	cfg.UserAgent = "fizzy-cli/" + version
	logger := logging.Component(a.logger, logging.ComponentCLI)
	cfg.Logger = &logger
	return cfg, nil
}

// api returns the resource client, creating it on first use.
func (a *app) api() (*fizzy.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	cfg, err := a.clientConfig()
	if err != nil {
		return nil, err
	}
	if cfg.AccountSlug == "" {
		return nil, fmt.Errorf("no account configured: pass --account, set FIZZY_ACCOUNT, or run fizzy login")
	}
	c, err := fizzy.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	c.Uploads.Fs = a.fs
	a.client = c
	return c, nil
}

func (a *app) finish(cmd *cobra.Command, _ []string) error {
	if a.stats {
		if snap, err := metrics.Snapshot(); err == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "requests=%.0f retries=%.0f revalidated=%.0f/%.0f\n",
				snap["fizzy_requests_total"],
				snap["fizzy_retries_total"],
				snap["fizzy_304_responses_total"],
				snap["fizzy_conditional_requests_total"])
		}
	}
	if a.client != nil {
		err := a.client.Close()
		a.client = nil
		return err
	}
	return nil
}

// saveSettings writes values into the config file, keeping its other keys.
func (a *app) saveSettings(values map[string]any) (string, error) {
	path := a.configPath()

	w := viper.New()
	w.SetFs(a.fs)
	w.SetConfigFile(path)
	w.SetConfigType("yaml")
	w.SetConfigPermissions(0o600)
	if ok, _ := afero.Exists(a.fs, path); ok {
		if err := w.ReadInConfig(); err != nil {
			return "", fmt.Errorf("read config %s: %w", path, err)
		}
	}
	for key, value := range values {
		w.Set(key, value)
	}

	if err := a.fs.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	if err := w.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("write config %s: %w", path, err)
	}
	return path, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
