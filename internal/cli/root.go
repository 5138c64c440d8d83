// Package cli implements envctl, the command-line companion of the server.
package cli

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/i474232898/env-timeseries/internal/app"
	"github.com/i474232898/env-timeseries/internal/config"
)

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"config":        "config_file",
	"store-backend": "store_backend",
	"store-dsn":     "store_dsn",
	"log-level":     "log_level",
}

// runtime carries state shared by the commands of one invocation.
type runtime struct {
	root    *cobra.Command
	options []app.Option

	cfg *config.AppConfig
}

// NewRootCmd builds the envctl command tree. Options are applied to the
// application built for commands that need one.
func NewRootCmd(opts ...app.Option) *cobra.Command {
	r := &runtime{options: opts}

	root := &cobra.Command{
		Use:           "envctl",
		Short:         "Query and maintain the environmental time-series store.",
		Long:          `envctl fetches weather and air-quality series from Open-Meteo, reconciles them with the configured store and prints or exports the result.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	r.root = root

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (yaml, json or toml)")
	pf.String("store-backend", "", "store backend: memory, sqlite, postgres or mysql")
	pf.String("store-dsn", "", "store connection string")
	pf.String("log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newMigrateCmd(r),
		newHistoryCmd(r),
		newLiveCmd(r),
		newSearchCmd(r),
		newExportCmd(r),
	)
	return root
}

// Execute runs envctl with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// config resolves configuration from .env, the environment, an optional
// config file and flags, in increasing priority.
func (r *runtime) config() (*config.AppConfig, error) {
	if r.cfg != nil {
		return r.cfg, nil
	}
	_ = godotenv.Load()

	v, err := config.New()
	if err != nil {
		return nil, err
	}
	v.SetDefault("log_level", "warn")
	if err := bindFlags(v, r.root); err != nil {
		return nil, err
	}
	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}
	r.cfg = cfg
	return cfg, nil
}

func bindFlags(v *viper.Viper, root *cobra.Command) error {
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, root.PersistentFlags().Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}

// withApp builds the wired application, runs fn and releases it.
func (r *runtime) withApp(ctx context.Context, fn func(a *app.App) error) (err error) {
	cfg, err := r.config()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, r.options...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(a)
}
