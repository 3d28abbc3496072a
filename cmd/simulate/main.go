package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/okian/encore/internal/simulate"
)

// Default configuration constants.
const (
	defaultSongs        = 20
	defaultParticipants = 200
	defaultDepth        = 10
	defaultNicheShare   = 0.05
	defaultWorkers      = 16
	defaultSample       = 20
	defaultTimeout      = 10 * time.Second
	defaultRunTimeout   = 10 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the service")
		eventID      = flag.String("event", "", "Event id to seed (default: random)")
		songs        = flag.Int("songs", defaultSongs, "Number of mainstream songs")
		participants = flag.Int("participants", defaultParticipants, "Number of participants")
		depth        = flag.Int("depth", defaultDepth, "Longest list a participant submits")
		niche        = flag.Float64("niche", defaultNicheShare, "Share of participants ranking the niche song first")
		workers      = flag.Int("workers", defaultWorkers, "Number of concurrent workers")
		sample       = flag.Int("sample", defaultSample, "Lists read back for verification")
		seed         = flag.Uint64("seed", 0, "Seed for reproducible lists, 0 for random")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		token        = flag.String("token", os.Getenv("ENCORE_OPERATOR_TOKEN"), "Operator token for the refresh route")
		outputFile   = flag.String("output", "", "Write generated lists to this JSON file")
		logFormat    = flag.String("log-format", "text", "Log format: text or json")
		verbose      = flag.Bool("verbose", false, "Enable debug logging")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	if err := simulate.SetupLogging(*logFormat, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	if *eventID == "" {
		*eventID = "sim-" + uuid.NewString()[:8]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	config := &simulate.Config{
		BaseURL:       *baseURL,
		EventID:       *eventID,
		Songs:         *songs,
		Participants:  *participants,
		MaxDepth:      *depth,
		NicheShare:    *niche,
		Workers:       *workers,
		Sample:        *sample,
		Seed:          *seed,
		Timeout:       *timeout,
		OperatorToken: *token,
		OutputFile:    *outputFile,
		Verbose:       *verbose,
	}

	if _, err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		cancel()
		stop()
		os.Exit(1)
	}
}
