package monitor

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/gainguard/internal/conf"
	"github.com/tphakala/gainguard/internal/controller"
	"github.com/tphakala/gainguard/internal/effects"
	"github.com/tphakala/gainguard/internal/peakmeter"
)

// Command creates the monitor command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		device   string
		file     string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Meter a capture device and report peaks and clips",
		Long: "Capture audio from the configured device, run it through the peak meter and clip " +
			"detector, and print the levels until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if file != "" {
				return meterFile(ctx, cmd, settings, file)
			}
			if device != "" {
				settings.Monitor.Device = device
			}
			return run(ctx, cmd, settings, interval)
		},
	}

	cmd.Flags().StringVar(&device, "device", "", "Capture device name or id, overrides monitor.device")
	cmd.Flags().StringVar(&file, "file", "", "Meter a WAV or FLAC file instead of a capture device")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Report interval")

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, settings *conf.Settings, interval time.Duration) error {
	ctrl := controller.New(settings.Controller, effects.NewNoopProviders())
	meter := peakmeter.New(ctrl)
	capture := peakmeter.NewCapture(peakmeter.CaptureConfig{
		Device:     settings.Monitor.Device,
		SampleRate: settings.Monitor.SampleRate,
		Channels:   settings.Monitor.Channels,
	}, meter)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return capture.Run(gctx) })
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		out := cmd.OutOrStdout()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				fmt.Fprintf(out, "peak %7.1f dBFS  held %7.1f dBFS  clips %d  dropped %d\n",
					meter.Last(), meter.Held(), ctrl.ClipCount(), capture.Dropped())
			}
		}
	})
	return g.Wait()
}

func meterFile(ctx context.Context, cmd *cobra.Command, settings *conf.Settings, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ctrl := controller.New(settings.Controller, effects.NewNoopProviders())
	meter := peakmeter.New(ctrl)

	var sum peakmeter.FileSummary
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".flac":
		sum, err = peakmeter.MeterFLAC(ctx, f, meter, peakmeter.DefaultFileBlock)
	case ".wav", "":
		sum, err = peakmeter.MeterWAV(ctx, f, meter, peakmeter.DefaultFileBlock)
	default:
		return fmt.Errorf("unsupported file type %q, expected .wav or .flac", ext)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d Hz, %d ch, %d bit, %s\npeak %.1f dBFS over %d blocks, %d clipped\n",
		path, sum.SampleRate, sum.Channels, sum.BitDepth, sum.Duration, sum.PeakDb, sum.Blocks, ctrl.ClipCount())
	return nil
}
