package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openskies/allskyd/internal/camera"
	"github.com/openskies/allskyd/internal/config"
	"github.com/openskies/allskyd/internal/darkframe"
	"github.com/openskies/allskyd/internal/exposure"
	"github.com/openskies/allskyd/internal/observability"
	"github.com/openskies/allskyd/internal/scheduler"
	"github.com/openskies/allskyd/internal/sink"
	"github.com/openskies/allskyd/internal/state"
	"github.com/openskies/allskyd/internal/version"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the capture daemon",
		Long: `Run the capture loop until interrupted: each tick plans an exposure
from the current solar altitude, captures it, applies dark correction
when eligible, and writes the image with its metadata sidecar.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return runDaemon()
		},
	}
}

func runDaemon() error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	logger.Info("allskyd starting",
		"version", version.Version,
		"site", cfg.Site.Name,
		"driver", cfg.Capture.Driver)

	driver, err := newDriver(cfg.Capture.Driver)
	if err != nil {
		return err
	}

	imageSink, err := sink.NewFileSink(cfg.Capture.OutputDir, logger)
	if err != nil {
		return fmt.Errorf("image sink: %w", err)
	}

	curve, err := exposure.NewCurve(cfg.CurveConfig())
	if err != nil {
		return err
	}

	gate := darkframe.New(driver, cfg.DarkFrameConfig(), logger)
	states := state.NewManager(state.DefaultConfig())

	ctrl := scheduler.New(
		driver,
		gate,
		imageSink,
		curve,
		cfg.Observer(),
		states,
		cfg.Capture.TickInterval,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if serveErr := observability.Serve(ctx, cfg.Server.ListenAddr, states, logger); serveErr != nil {
			logger.Error("operational server failed", "error", serveErr)
		}
	}()

	ctrl.Run(ctx)

	wg.Wait()
	logger.Info("allskyd stopped")
	return nil
}

// newDriver selects the camera driver. Only the simulator ships today;
// the SBIG serial driver slots in here when the hardware backend lands.
func newDriver(name string) (camera.Driver, error) {
	switch name {
	case "sim":
		return camera.NewSimulator(), nil
	default:
		return nil, fmt.Errorf("unknown camera driver %q", name)
	}
}
