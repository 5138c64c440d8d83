package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/term"

	"github.com/i474232898/env-timeseries/internal/series"
	"github.com/i474232898/env-timeseries/internal/weather"
)

const (
	defaultWidth = 80
	timeColWidth = 22 // "2006-01-02 15:04 UTC" plus borders
	fieldWidth   = 11
)

var (
	nullColor  = color.New(color.Faint)
	titleColor = color.New(color.FgCyan, color.Bold)
	ErrorColor = color.New(color.FgRed, color.Bold)
)

// terminalWidth returns the width of stdout, or a conservative default when
// stdout is not a terminal.
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// fitFields keeps as many leading fields as fit in width, at least one.
func fitFields(fields []series.Field, width int) []series.Field {
	n := (width - timeColWidth) / fieldWidth
	if n < 1 {
		n = 1
	}
	if n >= len(fields) {
		return fields
	}
	return fields[:n]
}

func formatValue(v *float64) string {
	if v == nil {
		return nullColor.Sprint("-")
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// renderSeries prints one row per point with a column per field.
func renderSeries(w io.Writer, points series.Series, fields []series.Field) error {
	table := tablewriter.NewWriter(w)

	headers := []string{"Time"}
	for _, f := range fields {
		headers = append(headers, f.String())
	}
	table.Header(headers)

	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(points))
	for _, p := range points {
		row := []string{p.Time.UTC().Format("2006-01-02 15:04 UTC")}
		for _, f := range fields {
			row = append(row, formatValue(p.Get(f)))
		}
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// renderAverages prints one line with the per-field averages of a window.
func renderAverages(w io.Writer, avg series.Point, fields []series.Field) error {
	if _, err := titleColor.Fprint(w, "averages:"); err != nil {
		return err
	}
	for _, f := range fields {
		if _, err := fmt.Fprintf(w, " %s=%s", f, formatValue(avg.Get(f))); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// renderLocations prints search results as a table.
func renderLocations(w io.Writer, locs []weather.Location) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Name", "Admin", "Country", "Latitude", "Longitude"})

	data := make([][]string, 0, len(locs))
	for _, l := range locs {
		data = append(data, []string{
			l.ID,
			l.Name,
			l.Admin,
			l.Country,
			strconv.FormatFloat(l.Latitude, 'f', 4, 64),
			strconv.FormatFloat(l.Longitude, 'f', 4, 64),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseTime accepts RFC3339, Open-Meteo local timestamps and plain dates.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if ts, err := series.ParseTimestamp(s); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.DateOnly, s); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use RFC3339, 2006-01-02T15:04 or 2006-01-02", s)
}
