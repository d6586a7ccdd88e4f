package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/openskies/allskyd/internal/astro"
	"github.com/openskies/allskyd/internal/camera"
	"github.com/openskies/allskyd/internal/config"
	"github.com/openskies/allskyd/internal/darkframe"
	"github.com/openskies/allskyd/internal/exposure"
	"github.com/openskies/allskyd/internal/observability"
	"github.com/openskies/allskyd/internal/scheduler"
	"github.com/openskies/allskyd/internal/sink"
	"github.com/openskies/allskyd/internal/state"
)

func captureCmd() *cobra.Command {
	var (
		outputDir   string
		exposureStr string
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Take a single exposure and exit",
		Long: `Take one exposure using the configured curve and write it to the
output directory. With --exposure the curve is bypassed and the given
duration is used directly, useful for focusing and bench tests.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return runCapture(outputDir, exposureStr)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default from config)")
	cmd.Flags().StringVarP(&exposureStr, "exposure", "e", "", "fixed exposure duration, e.g. 30s or 100ms")

	return cmd
}

func runCapture(outputDir, exposureStr string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	if outputDir != "" {
		cfg.Capture.OutputDir = outputDir
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	driver, err := newDriver(cfg.Capture.Driver)
	if err != nil {
		return err
	}

	imageSink, err := sink.NewFileSink(cfg.Capture.OutputDir, logger)
	if err != nil {
		return fmt.Errorf("image sink: %w", err)
	}

	if exposureStr != "" {
		fixed, parseErr := time.ParseDuration(exposureStr)
		if parseErr != nil {
			return fmt.Errorf("parse exposure: %w", parseErr)
		}
		return fixedCapture(driver, imageSink, cfg, fixed)
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

	res := ctrl.RunCycle(context.Background())
	if res.Phase != scheduler.PhaseDelivered {
		return fmt.Errorf("capture failed: %w", res.Err)
	}
	if res.Err != nil {
		return res.Err
	}

	fmt.Fprintf(os.Stdout, "captured %s sensor=%s exposure=%v solar_alt=%.2f\n",
		res.CaptureID, res.Plan.Sensor, res.Plan.Duration, res.SolarAlt)
	return nil
}

// fixedCapture bypasses the curve and the dark gate: one exposure at
// exactly the requested duration, straight to disk. The sensor is still
// chosen from the current solar altitude so the right camera answers.
func fixedCapture(driver camera.Driver, imageSink sink.Sink, cfg *config.Config, d time.Duration) error {
	now := time.Now()
	obs := cfg.Observer()
	alt := astro.SolarAltitude(now, obs)

	sensor := camera.SensorTransition
	if cfg.Exposure.DualSensor {
		sensor = camera.SensorNight
		if alt >= cfg.Exposure.CrossoverDeg {
			sensor = camera.SensorDay
		}
	}

	dur := exposure.Quantize(d)

	img, err := driver.Capture(context.Background(), camera.Request{
		Duration: dur,
		Sensor:   sensor,
		Shutter:  camera.ShutterOpen,
	})
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}

	captureID := uuid.NewString()
	meta := sink.Metadata{
		CaptureID:       captureID,
		Timestamp:       img.Timestamp,
		Sensor:          sensor.String(),
		ExposureSeconds: dur.Seconds(),
		SolarAltDeg:     alt,
		Site:            obs.Name,
		Latitude:        obs.LatDeg,
		Longitude:       obs.LonDeg,
	}
	if err := imageSink.Store(context.Background(), img, meta); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "captured %s sensor=%s exposure=%v solar_alt=%.2f\n",
		captureID, sensor, dur, alt)
	return nil
}
