// The car-agent command runs the RoadRunner car rental agent.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/tripmaster/tripmaster/agents/car"
	"github.com/tripmaster/tripmaster/core"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	logger := core.NewJSONLogger("car-agent")

	opts := []core.Option{
		core.WithName("car-rental"),
		core.WithPort(5003),
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

	svc := car.New(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Initialize(ctx); err != nil {
		logger.Error("Initialization failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Start(ctx) }()

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
	if err := svc.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", map[string]interface{}{"error": err.Error()})
	}
}
