// The planner command runs the TripMaster coordinating agent. It discovers
// the specialist agents listed in its configuration and serves POST /planTrip.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/tripmaster/tripmaster/core"
	"github.com/tripmaster/tripmaster/planner"
	"github.com/tripmaster/tripmaster/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	logger := core.NewJSONLogger("planner")

	opts := []core.Option{
		core.WithName("travel-planner"),
		core.WithPort(5000),
	}

	var (
		cfg *core.Config
		err error
	)
	if *configPath != "" {
		cfg, err = core.LoadConfigFile(*configPath, opts...)
	} else {
		cfg, err = core.NewConfig(opts...)
	}
	if err != nil {
		logger.Error("Invalid configuration", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	if len(cfg.Discovery.PeerAddresses) == 0 {
		cfg.Discovery.PeerAddresses = []string{
			"http://127.0.0.1:5001",
			"http://127.0.0.1:5002",
			"http://127.0.0.1:5003",
		}
	}

	tel, err := telemetry.NewOTelProvider(cfg.Name)
	if err != nil {
		logger.Error("Failed to initialize telemetry", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	agent := planner.New(cfg, nil, logger, tel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := agent.Initialize(ctx); err != nil {
		logger.Error("Initialization failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- agent.Start(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received", nil)
	case err := <-errCh:
		if err != nil {
			logger.Error("Server stopped", map[string]interface{}{"error": err.Error()})
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := agent.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", map[string]interface{}{"error": err.Error()})
	}
	_ = tel.Shutdown(shutdownCtx)
}
