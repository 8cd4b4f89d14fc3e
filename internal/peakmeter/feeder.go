package peakmeter

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/smallnest/ringbuffer"
)

// Feeder decouples a real-time capture callback from the meter. Write
// copies S16LE frames into a byte ring without blocking; Run drains the
// ring on its own goroutine and meters one block per poll.
type Feeder struct {
	meter    *Meter
	ring     *ringbuffer.RingBuffer
	format   *audio.Format
	frame    int
	block    []byte
	interval time.Duration
	dropped  atomic.Uint64
}

// NewFeeder creates a feeder for interleaved 16-bit PCM. The ring holds
// about half a second of audio and is polled every interval.
func NewFeeder(meter *Meter, sampleRate, channels int, interval time.Duration) *Feeder {
	if channels <= 0 {
		channels = 1
	}
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	frame := 2 * channels
	blockFrames := max(1, int(float64(sampleRate)*interval.Seconds()))
	return &Feeder{
		meter:    meter,
		ring:     ringbuffer.New(frame * max(blockFrames*4, sampleRate/2)),
		format:   &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		frame:    frame,
		block:    make([]byte, frame*blockFrames),
		interval: interval,
	}
}

// Write stores p. Blocks that do not fit whole are dropped so the ring
// always holds complete frames. Safe to call from the capture callback.
func (f *Feeder) Write(p []byte) {
	p = p[:len(p)-len(p)%f.frame]
	if len(p) == 0 {
		return
	}
	if f.ring.Free() < len(p) {
		f.dropped.Add(1)
		return
	}
	if _, err := f.ring.Write(p); err != nil {
		f.dropped.Add(1)
	}
}

// Dropped returns the number of capture blocks lost to a full ring.
func (f *Feeder) Dropped() uint64 {
	return f.dropped.Load()
}

// Drain meters everything currently buffered and returns the number of
// blocks processed.
func (f *Feeder) Drain() int {
	blocks := 0
	for f.ring.Length() >= f.frame {
		n, err := f.ring.Read(f.block)
		if err != nil || n == 0 {
			break
		}
		n -= n % f.frame
		buf := &audio.IntBuffer{
			Format:         f.format,
			Data:           make([]int, n/2),
			SourceBitDepth: 16,
		}
		for i := range buf.Data {
			buf.Data[i] = int(int16(binary.LittleEndian.Uint16(f.block[2*i:])))
		}
		_, _ = f.meter.ProcessInt(buf)
		blocks++
	}
	return blocks
}

// Run drains the ring every interval until ctx is done.
func (f *Feeder) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			f.Drain()
			return nil
		case <-ticker.C:
			f.Drain()
		}
	}
}
