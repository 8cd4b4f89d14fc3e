package peakmeter

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/gainguard/internal/errors"
)

// DefaultFileBlock is the metering block length for files.
const DefaultFileBlock = 50 * time.Millisecond

// FileSummary describes a metered file.
type FileSummary struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Blocks     int
	Duration   time.Duration
	PeakDb     float64 // loudest block
}

func fileError(err error, operation string) error {
	return errors.New(err).
		Component("peakmeter").
		Category(errors.CategoryAudioSource).
		Context("operation", operation).
		Build()
}

// MeterWAV decodes a WAV stream and runs it through m in blocks of block
// length, as fast as it can be read.
func MeterWAV(ctx context.Context, r io.ReadSeeker, m *Meter, block time.Duration) (FileSummary, error) {
	dec := wav.NewDecoder(r)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return FileSummary{}, fileError(fmt.Errorf("input is not a valid WAV file"), "read_header")
	}
	switch dec.BitDepth {
	case 16, 24, 32:
	default:
		return FileSummary{}, fileError(fmt.Errorf("unsupported bit depth: %d", dec.BitDepth), "read_header")
	}

	if block <= 0 {
		block = DefaultFileBlock
	}
	sum := FileSummary{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		PeakDb:     SilenceDb,
	}
	frames := max(int(float64(sum.SampleRate)*block.Seconds()), 1)
	buf := &audio.IntBuffer{
		Data:   make([]int, frames*max(sum.Channels, 1)),
		Format: &audio.Format{SampleRate: sum.SampleRate, NumChannels: sum.Channels},
	}

	var samples int
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		n, err := dec.PCMBuffer(buf)
		if err != nil {
			return sum, fileError(err, "decode")
		}
		if n == 0 {
			break
		}

		chunk := &audio.IntBuffer{Data: buf.Data[:n], Format: buf.Format, SourceBitDepth: sum.BitDepth}
		db, err := m.ProcessInt(chunk)
		if err != nil {
			return sum, err
		}
		sum.Blocks++
		sum.PeakDb = math.Max(sum.PeakDb, db)
		samples += n
	}

	if sum.SampleRate > 0 && sum.Channels > 0 {
		frames := samples / sum.Channels
		sum.Duration = time.Duration(frames) * time.Second / time.Duration(sum.SampleRate)
	}
	return sum, nil
}
