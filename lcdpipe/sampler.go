package lcdpipe

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Sample is one sensor reading with its capture time.
type Sample struct {
	Value float64
	When  time.Time
}

// ReadFunc reads one sensor channel. It runs on the sampler's timer
// goroutine, never on the render loop.
type ReadFunc func() (float64, error)

// DefaultSamplePeriod matches the original hardware timer cadence.
const DefaultSamplePeriod = 500 * time.Millisecond

// Sampler reads slow sensor channels on a periodic timer and stores the
// latest value per channel in a mutex-guarded cell with copy-out semantics.
// The critical section covers only the copy; reads and formatting happen
// outside it, so sensor jitter can never stall the render path.
type Sampler struct {
	period     time.Duration
	staleAfter time.Duration
	tel        *Telemetry

	mu    sync.Mutex
	cells map[string]Sample

	reads map[string]ReadFunc
}

// NewSampler builds an idle sampler; staleAfter of zero defaults to three
// periods, past which consumers treat a sample as unknown.
func NewSampler(period, staleAfter time.Duration, tel *Telemetry) (*Sampler, error) {
	if period <= 0 {
		return nil, fmt.Errorf("lcdpipe: sampler period must be positive")
	}
	if staleAfter <= 0 {
		staleAfter = 3 * period
	}
	return &Sampler{
		period:     period,
		staleAfter: staleAfter,
		tel:        tel,
		cells:      make(map[string]Sample),
		reads:      make(map[string]ReadFunc),
	}, nil
}

// Register adds a channel before Run starts; registration is not safe
// concurrently with a running sampler.
func (s *Sampler) Register(name string, fn ReadFunc) {
	s.reads[name] = fn
}

// Run drives the timer until ctx is done. A failed read keeps the previous
// sample and bumps the fault counter; errors never propagate to rendering.
func (s *Sampler) Run(ctx context.Context) {
	tick := time.NewTicker(s.period)
	defer tick.Stop()
	s.sampleAll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			s.sampleAll()
		}
	}
}

func (s *Sampler) sampleAll() {
	for name, fn := range s.reads {
		v, err := fn()
		if err != nil {
			if s.tel != nil {
				s.tel.samplerFaults.Add(1)
			}
			continue
		}
		now := time.Now()
		s.mu.Lock()
		s.cells[name] = Sample{Value: v, When: now}
		s.mu.Unlock()
	}
}

// Latest copies out the newest sample for a channel. ok is false when the
// channel never produced a value or the sample aged past the staleness
// threshold; the caller renders a neutral placeholder in that case.
func (s *Sampler) Latest(name string) (Sample, bool) {
	s.mu.Lock()
	smp, ok := s.cells[name]
	s.mu.Unlock()
	if !ok || time.Since(smp.When) > s.staleAfter {
		return smp, false
	}
	return smp, true
}
