package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"gelbeseiten-scraper/cmd/gelbeseiten-cli/commands"
	"gelbeseiten-scraper/internal/components/telemetry"
	"gelbeseiten-scraper/lib/osutil"
	libtelemetry "gelbeseiten-scraper/lib/telemetry"
)

func main() {
	telemetry.InitSlog(false)

	tel, err := libtelemetry.SetupFromEnv(context.Background(), "gelbeseiten-cli")
	if err != nil {
		slog.Warn("failed to setup telemetry, continuing without it", "err", err)
	}

	err = commands.ExecuteContext(osutil.SignalContext(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := tel.Shutdown(ctx); shutdownErr != nil {
		slog.Warn("failed to flush telemetry", "err", shutdownErr)
	}

	if err != nil {
		os.Exit(1)
	}
}
