package simulate

import (
	"fmt"
	"os"

	"github.com/okian/encore/pkg/logger"
)

// SetupLogging initializes the global logger for the simulator.
func SetupLogging(format string, verbose bool) error {
	if err := logger.InitWithFormat(format); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	level := "info"
	if verbose {
		level = "debug"
	}
	return logger.SetLevelString(level)
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Encore Ranking Simulator
========================

Seeds an event, submits concurrent participant lists and checks both scoreboards.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -event string
        Event id to seed (default: random)
  -songs int
        Number of mainstream songs (default 20)
  -participants int
        Number of participants (default 200)
  -depth int
        Longest list a participant submits (default 10)
  -niche float
        Share of participants ranking the niche song first (default 0.05)
  -workers int
        Number of concurrent workers (default 16)
  -sample int
        Lists read back for verification (default 20)
  -seed uint
        Seed for reproducible lists, 0 for random (default 0)
  -timeout duration
        HTTP request timeout (default 10s)
  -token string
        Operator token for the refresh route (default $ENCORE_OPERATOR_TOKEN)
  -output string
        Write generated lists to this JSON file
  -log-format string
        Log format: text or json (default "text")
  -verbose
        Enable debug logging
  -help
        Show this help message
`)
}
