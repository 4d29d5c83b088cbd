package audio

import (
	"encoding/binary"
	"sync"
	"time"
)

// PCMLevel estimates the amplitude of little-endian 16-bit PCM samples as a
// mean absolute value scaled to [0,255]. O(n) in the chunk, O(1) per tick for
// pollers since only the latest chunk's estimate is retained.
func PCMLevel(payload []byte) float64 {
	sampleCount := len(payload) / 2
	if sampleCount == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < sampleCount*2; i += 2 {
		sample := int16(binary.LittleEndian.Uint16(payload[i : i+2]))
		if sample < 0 {
			sum -= float64(sample)
		} else {
			sum += float64(sample)
		}
	}

	return sum / float64(sampleCount) / 32768 * 255
}

// PCMDurationSeconds converts a PCM payload size to whole seconds, rounding
// to the nearest second.
func PCMDurationSeconds(payloadBytes, sampleRate, channels int) int {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	bytesPerSecond := sampleRate * channels * 2
	return (payloadBytes + bytesPerSecond/2) / bytesPerSecond
}

// LevelSource yields the most recent amplitude estimate.
type LevelSource interface {
	Level() float64
}

// LevelSampler polls a LevelSource at display rate and pushes readings to a
// callback. It is an explicit scheduled task: started once, stopped once, and
// it keeps polling whether or not capture is active.
type LevelSampler struct {
	source   LevelSource
	emit     func(level float64)
	interval time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func NewLevelSampler(source LevelSource, interval time.Duration, emit func(level float64)) *LevelSampler {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	if emit == nil {
		emit = func(float64) {}
	}
	return &LevelSampler{
		source:   source,
		emit:     emit,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the polling loop. Subsequent calls are no-ops.
func (s *LevelSampler) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

func (s *LevelSampler) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.emit(s.source.Level())
		case <-s.stop:
			return
		}
	}
}

// Stop cancels the sampler and waits for the loop to exit. Idempotent; a
// sampler that was never started returns immediately.
func (s *LevelSampler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	// If the sampler never ran, unblock the wait ourselves.
	s.startOnce.Do(func() {
		close(s.done)
	})
	<-s.done
}
