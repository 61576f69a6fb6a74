package lcdpipe

import (
	"math"
	"sync/atomic"
	"time"
)

// histBounds are the upper edges of the transfer-duration buckets, in
// microseconds; the last bucket is open-ended.
var histBounds = [...]int64{500, 1000, 2500, 5000, 10000, 25000, 50000}

// Telemetry is the pipeline's counter surface. The scheduler owns and
// writes it; everything else takes read-only snapshots. All counters are
// monotonic except the rolling FPS/skip-rate gauges.
type Telemetry struct {
	ticks          atomic.Uint64
	frames         atomic.Uint64
	ticksSkipped   atomic.Uint64
	zonesSkipped   atomic.Uint64
	transferFaults atomic.Uint64
	samplerFaults  atomic.Uint64
	fullFrames     atomic.Uint64

	lastTransferNS  atomic.Int64
	totalTransferNS atomic.Int64
	hist            [len(histBounds) + 1]atomic.Uint64

	fpsBits      atomic.Uint64 // float64 bits
	skipRateBits atomic.Uint64 // float64 bits

	// Rolling window state, touched only by the scheduler goroutine.
	windowStart  time.Time
	windowFrames uint64
	windowTicks  uint64
	windowSkips  uint64
}

// NewTelemetry starts the rolling window at now.
func NewTelemetry() *Telemetry {
	return &Telemetry{windowStart: time.Now()}
}

// TransferFaults exposes the fault counter for recovery decisions.
func (t *Telemetry) TransferFaults() uint64 { return t.transferFaults.Load() }

// FPS returns frames committed per second over the last window.
func (t *Telemetry) FPS() float64 {
	return math.Float64frombits(t.fpsBits.Load())
}

// SkipRate returns the fraction of recent ticks with an empty dirty set.
func (t *Telemetry) SkipRate() float64 {
	return math.Float64frombits(t.skipRateBits.Load())
}

// Frames returns the number of committed frames since start.
func (t *Telemetry) Frames() uint64 { return t.frames.Load() }

// recordTransfer files one whole-chain transfer duration.
func (t *Telemetry) recordTransfer(d time.Duration) {
	ns := d.Nanoseconds()
	t.lastTransferNS.Store(ns)
	t.totalTransferNS.Add(ns)
	us := ns / 1000
	for i, edge := range histBounds {
		if us <= edge {
			t.hist[i].Add(1)
			return
		}
	}
	t.hist[len(histBounds)].Add(1)
}

// tick updates the per-tick window bookkeeping and refreshes the rolling
// gauges once per second.
func (t *Telemetry) tick(committed, skipped bool, now time.Time) {
	t.ticks.Add(1)
	t.windowTicks++
	if committed {
		t.frames.Add(1)
		t.windowFrames++
	}
	if skipped {
		t.ticksSkipped.Add(1)
		t.windowSkips++
	}
	if el := now.Sub(t.windowStart); el >= time.Second {
		t.fpsBits.Store(math.Float64bits(float64(t.windowFrames) / el.Seconds()))
		if t.windowTicks > 0 {
			t.skipRateBits.Store(math.Float64bits(float64(t.windowSkips) / float64(t.windowTicks)))
		}
		t.windowStart = now
		t.windowFrames = 0
		t.windowTicks = 0
		t.windowSkips = 0
	}
}

// Snapshot is the externally visible counter set. Transport of these values
// (HTTP, logs) is the collaborator's business.
type Snapshot struct {
	Ticks           uint64    `json:"ticks"`
	Frames          uint64    `json:"frames"`
	TicksSkipped    uint64    `json:"ticks_skipped"`
	ZonesSkipped    uint64    `json:"zones_skipped"`
	TransferFaults  uint64    `json:"transfer_faults"`
	SamplerFaults   uint64    `json:"sampler_faults"`
	FullFrames      uint64    `json:"full_frames"`
	FPS             float64   `json:"fps"`
	SkipRate        float64   `json:"skip_rate"`
	LastTransferUS  int64     `json:"last_transfer_us"`
	TotalTransferMS int64     `json:"total_transfer_ms"`
	TransferHistUS  []HistBin `json:"transfer_hist_us"`
}

// HistBin is one transfer-duration histogram bucket; Upper -1 marks the
// open-ended last bucket.
type HistBin struct {
	Upper int64  `json:"upper"`
	Count uint64 `json:"count"`
}

// Snapshot copies the counters; safe from any goroutine.
func (t *Telemetry) Snapshot() Snapshot {
	s := Snapshot{
		Ticks:           t.ticks.Load(),
		Frames:          t.frames.Load(),
		TicksSkipped:    t.ticksSkipped.Load(),
		ZonesSkipped:    t.zonesSkipped.Load(),
		TransferFaults:  t.transferFaults.Load(),
		SamplerFaults:   t.samplerFaults.Load(),
		FullFrames:      t.fullFrames.Load(),
		FPS:             t.FPS(),
		SkipRate:        t.SkipRate(),
		LastTransferUS:  t.lastTransferNS.Load() / 1000,
		TotalTransferMS: t.totalTransferNS.Load() / 1e6,
	}
	s.TransferHistUS = make([]HistBin, 0, len(t.hist))
	for i := range t.hist {
		upper := int64(-1)
		if i < len(histBounds) {
			upper = histBounds[i]
		}
		s.TransferHistUS = append(s.TransferHistUS, HistBin{Upper: upper, Count: t.hist[i].Load()})
	}
	return s
}
