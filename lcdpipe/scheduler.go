package lcdpipe

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync/atomic"
	"time"
)

// Painter draws one frame's worth of a zone into the back buffer and marks
// what changed through the registry. Painters run on the scheduler
// goroutine only.
type Painter func(back *PixelBuffer, reg *Registry)

// SchedulerConfig paces the render loop.
type SchedulerConfig struct {
	// FrameInterval is the target tick spacing; zero lets the loop run as
	// fast as the bus allows.
	FrameInterval time.Duration
}

// Scheduler is the top-level render loop: draw phase, dirty evaluation,
// buffer commit, descriptor build, protocol transfer, telemetry, pacing.
type Scheduler struct {
	pair    *BufferPair
	reg     *Registry
	builder *ChainBuilder
	panel   *Panel
	tel     *Telemetry
	cfg     SchedulerConfig

	painters  []Painter
	forceFull atomic.Bool
}

// NewScheduler wires the pipeline stages together; every part must already
// be constructed and validated.
func NewScheduler(pair *BufferPair, reg *Registry, builder *ChainBuilder, panel *Panel, tel *Telemetry, cfg SchedulerConfig) (*Scheduler, error) {
	if pair == nil || reg == nil || builder == nil || panel == nil || tel == nil {
		return nil, fmt.Errorf("lcdpipe: scheduler wired with a nil stage")
	}
	return &Scheduler{
		pair:    pair,
		reg:     reg,
		builder: builder,
		panel:   panel,
		tel:     tel,
		cfg:     cfg,
	}, nil
}

// AddPainter appends a zone painter; call before Run.
func (s *Scheduler) AddPainter(p Painter) {
	s.painters = append(s.painters, p)
}

// Telemetry returns the counter surface for outside consumers.
func (s *Scheduler) Telemetry() *Telemetry { return s.tel }

// Registry returns the inbound mark-dirty surface.
func (s *Scheduler) Registry() *Registry { return s.reg }

// FrameSnapshot copies the displayed frame for export. Safe from any
// goroutine while the loop runs; the live front buffer never leaves the
// pipeline.
func (s *Scheduler) FrameSnapshot() *image.RGBA { return s.pair.FrontSnapshot() }

// ForceFullRedraw arms a full-frame transfer for the next tick, used by
// external collaborators after state that invalidates the whole panel.
func (s *Scheduler) ForceFullRedraw() {
	s.reg.InvalidateSignatures()
	s.forceFull.Store(true)
}

// Run paces Tick until ctx is done. Transfer faults are recovered inside
// Tick; only wiring errors stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		start := time.Now()
		if err := s.Tick(); err != nil {
			return err
		}
		if s.cfg.FrameInterval > 0 {
			rest := s.cfg.FrameInterval - time.Since(start)
			if rest > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(rest):
				}
				continue
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// Tick renders exactly one frame cycle. A tick with an empty dirty set
// discards the checkout and skips the transfer stage entirely.
func (s *Scheduler) Tick() error {
	now := time.Now()

	back, err := s.pair.AcquireBack()
	if err != nil {
		// Double checkout means a painter path broke the frame contract;
		// this is a programming error, not a recoverable render fault.
		return err
	}

	for _, paint := range s.painters {
		paint(back, s.reg)
	}

	ds := s.reg.TakeDirty()
	if s.forceFull.Swap(false) {
		ds = DirtySet{FullFrame: true}
	}

	if ds.Empty() {
		s.pair.Discard()
		s.tel.tick(false, true, now)
		return nil
	}
	if ds.FullFrame {
		s.tel.fullFrames.Add(1)
	}

	s.pair.Commit()
	front := s.pair.Front()

	chain, err := s.builder.Build(ds)
	if err != nil {
		return err
	}

	txStart := time.Now()
	err = s.panel.Flush(chain, front.Bytes())
	s.tel.recordTransfer(time.Since(txStart))
	if err != nil {
		if errors.Is(err, ErrTransferFault) {
			s.tel.transferFaults.Add(1)
			s.forceFull.Store(true)
			log.Printf("lcdpipe: transfer fault, full redraw armed: %v", err)
		} else {
			return err
		}
	}

	s.tel.tick(true, false, now)
	return nil
}
