package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/env-timeseries/internal/app"
	"github.com/i474232898/env-timeseries/internal/export"
	"github.com/i474232898/env-timeseries/internal/series"
	"github.com/i474232898/env-timeseries/internal/store"
	"github.com/i474232898/env-timeseries/internal/weather"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func newMigrateCmd(r *runtime) *cobra.Command {
	var version int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run schema migrations for the configured SQL backend",
		Long: `Migrate the SQL store schema.

Without --version the schema is migrated to the latest version.
--version 0 rolls every migration back.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := r.config()
			if err != nil {
				return err
			}
			if cfg.StoreBackend == store.BackendMemory {
				return fmt.Errorf("migrate needs a SQL backend; set STORE_BACKEND or --store-backend")
			}

			s, err := store.OpenSQL(cmd.Context(), cfg.StoreBackend, cfg.StoreDSN, nil, nil)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			res, err := s.Migrate(version)
			if err != nil {
				return err
			}
			if !res.Changed {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema already at version %d\n", res.To)
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "migrated %s schema from version %d to %d\n", cfg.StoreBackend, res.From, res.To)
			return err
		},
	}
	cmd.Flags().IntVar(&version, "version", -1, "target schema version (0 rolls back everything)")
	return cmd
}

// windowFlags are shared by history and export.
type windowFlags struct {
	from, to, interval string
}

func (w *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&w.from, "from", "", "window start (RFC3339 or 2006-01-02T15:04)")
	cmd.Flags().StringVar(&w.to, "to", "", "window end (RFC3339 or 2006-01-02T15:04)")
	cmd.Flags().StringVar(&w.interval, "interval", series.DefaultInterval, "bucket size: 1h, 3h, 6h, 12h or 1d")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
}

func (w *windowFlags) bounds() (time.Time, time.Time, error) {
	from, err := parseTime(w.from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
	}
	to, err := parseTime(w.to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
	}
	return from, to, nil
}

func newHistoryCmd(r *runtime) *cobra.Command {
	var (
		window windowFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "history <locationId>",
		Short: "Print the reconciled weather history of a location",
		Example: `  envctl history 2f6c... --from 2024-06-01 --to 2024-06-03 --interval 6h
  envctl history 2f6c... --from 2024-06-01T00:00:00Z --to 2024-06-01T12:00:00Z --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != formatTable && format != formatJSON {
				return fmt.Errorf("unknown format %q: use table or json", format)
			}
			from, to, err := window.bounds()
			if err != nil {
				return err
			}

			return r.withApp(cmd.Context(), func(a *app.App) error {
				h, err := a.Service.FetchHistory(cmd.Context(), args[0], from, to, window.interval)
				if err != nil {
					return err
				}
				fields := weather.DatasetWeather.Fields()
				if format == formatJSON {
					return writeJSON(cmd.OutOrStdout(), map[string]any{
						"location": h.Location,
						"interval": h.Interval,
						"source":   h.Source,
						"points":   h.Points.Views(fields),
					})
				}
				if _, err := titleColor.Fprintf(cmd.OutOrStdout(), "%s (%s), %s buckets\n", h.Location.Name, h.Location.ID, h.Interval); err != nil {
					return err
				}
				return renderSeries(cmd.OutOrStdout(), h.Points, fitFields(fields, terminalWidth()))
			})
		},
	}
	window.register(cmd)
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table or json")
	return cmd
}

func newLiveCmd(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "live <locationId>",
		Short: "Fetch and print the air-quality window of the last 24 hours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd.Context(), func(a *app.App) error {
				from, to := a.Service.LastDay()
				w, err := a.Service.FetchLiveWindow(cmd.Context(), args[0], from, to)
				if err != nil {
					return err
				}
				fields := weather.DatasetAirQuality.Fields()
				if err := renderAverages(cmd.OutOrStdout(), w.Averages, fields); err != nil {
					return err
				}
				return renderSeries(cmd.OutOrStdout(), w.Series, fitFields(fields, terminalWidth()))
			})
		},
	}
}

func newSearchCmd(r *runtime) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find locations by name, geocoding unknown names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 || count > 100 {
				return fmt.Errorf("--count must be between 1 and 100")
			}
			return r.withApp(cmd.Context(), func(a *app.App) error {
				locs, err := a.Service.SearchLocations(cmd.Context(), strings.Join(args, " "), count)
				if err != nil {
					return err
				}
				return renderLocations(cmd.OutOrStdout(), locs)
			})
		},
	}
	cmd.Flags().IntVar(&count, "count", 10, "maximum number of geocoding results")
	return cmd
}

func newExportCmd(r *runtime) *cobra.Command {
	var (
		window windowFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <locationId>",
		Short: "Write the weather history of a location to a Parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := window.bounds()
			if err != nil {
				return err
			}
			return r.withApp(cmd.Context(), func(a *app.App) error {
				h, err := a.Service.FetchHistory(cmd.Context(), args[0], from, to, window.interval)
				if err != nil {
					return err
				}
				n, err := export.WriteFile(output, h.Location.ID, string(weather.DatasetWeather), h.Points)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", n, output)
				return err
			})
		},
	}
	window.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination Parquet file")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
