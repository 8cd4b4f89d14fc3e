package serve

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/gainguard/internal/api"
	"github.com/tphakala/gainguard/internal/buildinfo"
	"github.com/tphakala/gainguard/internal/conf"
	"github.com/tphakala/gainguard/internal/controller"
	"github.com/tphakala/gainguard/internal/effects"
	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/events"
	"github.com/tphakala/gainguard/internal/logger"
	"github.com/tphakala/gainguard/internal/mqtt"
	"github.com/tphakala/gainguard/internal/notify"
	"github.com/tphakala/gainguard/internal/observability"
	"github.com/tphakala/gainguard/internal/params"
	"github.com/tphakala/gainguard/internal/peakmeter"
	"github.com/tphakala/gainguard/internal/presets"
	"github.com/tphakala/gainguard/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	var capture bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the controller with its HTTP API",
		Long: "Run the gain controller against logging effect providers and expose it over HTTP. " +
			"State changes are broadcast over MQTT when enabled, and --capture meters a live audio device.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, settings, capture)
		},
	}

	cmd.Flags().BoolVar(&capture, "capture", false, "Meter the configured capture device and feed peaks to the clip detector")

	return cmd
}

func run(ctx context.Context, settings *conf.Settings, capture bool) error {
	log := logger.Global().Module("serve")
	defer func() { _ = logger.Global().Close() }()

	m, err := observability.NewMetrics()
	if err != nil {
		return errors.New(err).
			Component("serve").
			Category(errors.CategorySystem).
			Context("operation", "init_metrics").
			Build()
	}

	var bus *events.EventBus
	if settings.Events.Enabled {
		bus = events.New(settings.Events, logger.Global().Module("events"))
		if err := bus.RegisterConsumer(m.Gain); err != nil {
			return err
		}
		defer func() {
			if err := bus.Shutdown(shutdownTimeout); err != nil {
				log.Warn("event bus shutdown incomplete", logger.Error(err))
			}
		}()
	}

	if settings.Telemetry.Enabled {
		if err := startTelemetry(settings, bus); err != nil {
			log.Warn("telemetry disabled", logger.Error(err))
		} else {
			defer telemetry.Shutdown(shutdownTimeout)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	// Subscribe before the first state change so the broker sees the defaults
	if settings.MQTT.Enabled {
		if bus == nil {
			log.Warn("MQTT broadcasting needs the event bus, skipping")
		} else {
			pub, err := newPublisher(settings, m)
			if err != nil {
				return err
			}
			if err := bus.RegisterConsumer(pub); err != nil {
				return err
			}
			g.Go(func() error { return pub.Run(gctx) })
		}
	}

	// Registered before the controller exists; clips are read through the
	// late-bound source below.
	var clips lateClips
	if settings.Notify.Enabled && bus != nil {
		n, err := newNotifier(settings, &clips)
		if err != nil {
			return err
		}
		if err := bus.RegisterConsumer(n); err != nil {
			return err
		}
		g.Go(func() error { return n.Run(gctx) })
	}

	opts := []controller.Option{controller.WithMetrics(m.Gain)}
	if bus != nil {
		opts = append(opts, controller.WithPublisher(bus))
	}
	layout := params.DefaultLayout(settings.Controller.BandRangeMillibels)
	providers := effects.NewLoggingProviders(logger.Global().Module("effects"), layout[:])
	ctrl := controller.New(settings.Controller, providers, opts...)
	clips.set(ctrl)

	if err := ctrl.ResetAll(); err != nil {
		log.Warn("some defaults were not applied", logger.Error(err))
	}
	if name := settings.Controller.InitialPreset; name != "" {
		mode, err := presets.ParseBattleMode(name)
		if err != nil {
			return err
		}
		if err := ctrl.ApplyBattlePreset(mode); err != nil {
			log.Warn("initial preset partially applied", logger.Error(err))
		}
	}

	if capture {
		meter := peakmeter.New(ctrl)
		c := peakmeter.NewCapture(peakmeter.CaptureConfig{
			Device:     settings.Monitor.Device,
			SampleRate: settings.Monitor.SampleRate,
			Channels:   settings.Monitor.Channels,
		}, meter)
		g.Go(func() error {
			if err := c.Run(gctx); err != nil {
				log.Error("peak capture stopped", logger.Error(err))
			}
			return nil
		})
	}

	if settings.API.Enabled {
		srv, err := api.New(api.ConfigFromSettings(settings), ctrl,
			api.WithMetrics(m),
			api.WithLogger(logger.Global().Module("api")))
		if err != nil {
			return err
		}
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			return srv.Shutdown(context.WithoutCancel(gctx))
		})
	}

	log.Info("gainguard running",
		logger.String("version", buildinfo.Current().GetVersion()),
		logger.String("battle_mode", ctrl.BattleMode().String()),
		logger.Bool("api", settings.API.Enabled),
		logger.Bool("mqtt", settings.MQTT.Enabled),
		logger.Bool("notify", settings.Notify.Enabled),
		logger.Bool("capture", capture))

	// Block until a signal arrives even when no component is running
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err = g.Wait()
	log.Info("gainguard stopped", logger.Uint64("clip_count", ctrl.ClipCount()))
	return err
}

func startTelemetry(settings *conf.Settings, bus *events.EventBus) error {
	err := telemetry.Init(telemetry.Config{
		DSN:     settings.Telemetry.DSN,
		Release: "gainguard@" + buildinfo.Current().GetVersion(),
		Debug:   settings.Debug,
	})
	if err != nil {
		return err
	}
	if bus == nil {
		// Errors are reported inline without the bus
		return nil
	}
	worker := telemetry.NewWorker(errors.GetTelemetryReporter(), telemetry.DefaultWorkerConfig())
	if err := bus.RegisterConsumer(worker); err != nil {
		return err
	}
	errors.SetEventPublisher(bus)
	return nil
}

func newPublisher(settings *conf.Settings, m *observability.Metrics) (*mqtt.Publisher, error) {
	cfg := mqtt.DefaultConfig()
	cfg.Broker = settings.MQTT.Broker
	cfg.Username = settings.MQTT.Username
	cfg.Password = settings.MQTT.Password
	cfg.Retain = settings.MQTT.Retain
	if settings.MQTT.ClientID != "" {
		cfg.ClientID = settings.MQTT.ClientID
	}
	if settings.MQTT.Topic != "" {
		cfg.Topic = settings.MQTT.Topic
	}
	if settings.MQTT.MinPublishInterval > 0 {
		cfg.MinPublishInterval = settings.MQTT.MinPublishInterval
	}

	client, err := mqtt.NewClient(cfg, m.MQTT)
	if err != nil {
		return nil, err
	}
	return mqtt.NewPublisher(client, cfg, m.MQTT), nil
}

func newNotifier(settings *conf.Settings, clips notify.ClipSource) (*notify.Notifier, error) {
	sender, err := notify.NewShoutrrrSender(settings.Notify.URLs, settings.Notify.Timeout)
	if err != nil {
		return nil, err
	}
	return notify.New(sender, clips, notify.Config{
		ClipThreshold: settings.Notify.ClipThreshold,
		Interval:      settings.Notify.Interval,
		Cooldown:      settings.Notify.Cooldown,
	}), nil
}

// lateClips forwards to the controller once it has been created.
type lateClips struct {
	src atomic.Pointer[controller.Controller]
}

func (l *lateClips) set(c *controller.Controller) { l.src.Store(c) }

func (l *lateClips) ClipCount() uint64 {
	if c := l.src.Load(); c != nil {
		return c.ClipCount()
	}
	return 0
}
