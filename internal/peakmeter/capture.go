package peakmeter

import (
	"context"
	"encoding/hex"
	"runtime"
	"strings"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/logger"
)

// CaptureConfig selects the capture device and format.
type CaptureConfig struct {
	Device       string // name or id substring; empty or "default" for the system default
	SampleRate   int
	Channels     int
	PollInterval time.Duration
}

// Capture meters a live capture device.
type Capture struct {
	cfg    CaptureConfig
	feeder *Feeder
	logger logger.Logger
}

// NewCapture creates a capture feeding meter.
func NewCapture(cfg CaptureConfig, meter *Meter) *Capture {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 48000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 2
	}
	return &Capture{
		cfg:    cfg,
		feeder: NewFeeder(meter, cfg.SampleRate, cfg.Channels, cfg.PollInterval),
		logger: logger.Global().Module("peakmeter"),
	}
}

// Dropped returns the number of capture blocks lost to a slow reader.
func (c *Capture) Dropped() uint64 {
	return c.feeder.Dropped()
}

func backend() malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa
	case "windows":
		return malgo.BackendWasapi
	case "darwin":
		return malgo.BackendCoreaudio
	default:
		return malgo.BackendNull
	}
}

func audioError(err error, operation string) error {
	return errors.New(err).
		Component("peakmeter").
		Category(errors.CategoryAudioSource).
		Context("operation", operation).
		Context("os", runtime.GOOS).
		Build()
}

// Run opens the device and meters it until ctx is done.
func (c *Capture) Run(ctx context.Context) error {
	mctx, err := malgo.InitContext([]malgo.Backend{backend()}, malgo.ContextConfig{}, func(message string) {
		c.logger.Trace("malgo", logger.String("message", strings.TrimSpace(message)))
	})
	if err != nil {
		return audioError(err, "init_context")
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	info, err := selectDevice(mctx, c.cfg.Device)
	if err != nil {
		return err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(c.cfg.Channels)
	deviceConfig.Capture.DeviceID = info.ID.Pointer()
	deviceConfig.SampleRate = uint32(c.cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			c.feeder.Write(input)
		},
	}
	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		return audioError(err, "init_device")
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return audioError(err, "start_device")
	}
	c.logger.Info("capture started",
		logger.String("device", info.Name()),
		logger.Int("sample_rate", c.cfg.SampleRate),
		logger.Int("channels", c.cfg.Channels))

	err = c.feeder.Run(ctx)
	_ = device.Stop()
	c.logger.Info("capture stopped", logger.Uint64("dropped_blocks", c.feeder.Dropped()))
	return err
}

func selectDevice(mctx *malgo.AllocatedContext, name string) (*malgo.DeviceInfo, error) {
	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, audioError(err, "enumerate_devices")
	}
	if len(infos) == 0 {
		return nil, errors.Newf("no capture devices found").
			Component("peakmeter").
			Category(errors.CategoryNotFound).
			Build()
	}

	if name == "" || name == "default" {
		for i := range infos {
			if infos[i].IsDefault == 1 {
				return &infos[i], nil
			}
		}
		return &infos[0], nil
	}

	for i := range infos {
		if matchesDevice(infos[i].Name(), infos[i].ID.String(), name) {
			return &infos[i], nil
		}
	}
	return nil, errors.Newf("capture device %q not found", name).
		Component("peakmeter").
		Category(errors.CategoryNotFound).
		Context("device", name).
		Build()
}

// matchesDevice matches a configured name against a device name or its
// hex encoded id.
func matchesDevice(deviceName, hexID, want string) bool {
	if strings.Contains(strings.ToLower(deviceName), strings.ToLower(want)) {
		return true
	}
	decoded, err := hex.DecodeString(hexID)
	if err != nil {
		return false
	}
	return strings.Contains(strings.TrimRight(string(decoded), "\x00"), want)
}
