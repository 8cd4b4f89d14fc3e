package peakmeter

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-audio/audio"
	"github.com/tphakala/flac"
)

// MeterFLAC decodes a FLAC stream and runs it through m in blocks of block
// length. FLAC frames are re-sliced so block boundaries match MeterWAV; the
// trailing partial block is metered too.
func MeterFLAC(ctx context.Context, r io.Reader, m *Meter, block time.Duration) (FileSummary, error) {
	dec, err := flac.NewDecoder(r)
	if err != nil {
		return FileSummary{}, fileError(err, "read_header")
	}
	switch dec.BitsPerSample {
	case 16, 24, 32:
	default:
		return FileSummary{}, fileError(fmt.Errorf("unsupported bit depth: %d", dec.BitsPerSample), "read_header")
	}
	if dec.NChannels <= 0 {
		return FileSummary{}, fileError(fmt.Errorf("invalid channel count: %d", dec.NChannels), "read_header")
	}

	if block <= 0 {
		block = DefaultFileBlock
	}
	sum := FileSummary{
		SampleRate: dec.SampleRate,
		Channels:   dec.NChannels,
		BitDepth:   dec.BitsPerSample,
		PeakDb:     SilenceDb,
	}
	format := &audio.Format{SampleRate: sum.SampleRate, NumChannels: sum.Channels}
	blockLen := max(int(float64(sum.SampleRate)*block.Seconds()), 1) * sum.Channels

	var (
		pending []int
		samples int
	)
	flush := func(data []int) error {
		db, err := m.ProcessInt(&audio.IntBuffer{Data: data, Format: format, SourceBitDepth: sum.BitDepth})
		if err != nil {
			return err
		}
		sum.Blocks++
		sum.PeakDb = math.Max(sum.PeakDb, db)
		samples += len(data)
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		frame, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sum, fileError(err, "decode")
		}

		pending = appendPCM(pending, frame, sum.BitDepth)
		for len(pending) >= blockLen {
			if err := flush(pending[:blockLen]); err != nil {
				return sum, err
			}
			pending = pending[blockLen:]
		}
	}
	if len(pending) > 0 {
		if err := flush(pending); err != nil {
			return sum, err
		}
	}

	if sum.SampleRate > 0 {
		frames := samples / sum.Channels
		sum.Duration = time.Duration(frames) * time.Second / time.Duration(sum.SampleRate)
	}
	return sum, nil
}

// appendPCM converts interleaved little-endian PCM to ints.
func appendPCM(dst []int, frame []byte, bitDepth int) []int {
	width := bitDepth / 8
	for i := 0; i+width <= len(frame); i += width {
		switch bitDepth {
		case 16:
			dst = append(dst, int(int16(binary.LittleEndian.Uint16(frame[i:]))))
		case 24:
			v := int32(frame[i]) | int32(frame[i+1])<<8 | int32(frame[i+2])<<16
			dst = append(dst, int(v<<8>>8))
		case 32:
			dst = append(dst, int(int32(binary.LittleEndian.Uint32(frame[i:]))))
		}
	}
	return dst
}
