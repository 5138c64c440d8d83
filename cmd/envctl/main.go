// Command envctl queries, exports and migrates the environmental time-series store.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/i474232898/env-timeseries/internal/cli"
	"github.com/i474232898/env-timeseries/internal/weather"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()

	if err != nil {
		_, _ = cli.ErrorColor.Fprintln(os.Stderr, "error:", err)
		if weather.IsClientError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
