package lcdpipe

import (
	"fmt"
	"sync"
	"time"
)

// MemEngine models the panel controller in memory: it keeps a shadow of the
// panel RAM, decodes the address-window commands and applies submitted
// descriptor payloads through the window cursor exactly as the controller
// would. The desktop simulator renders from the shadow, and the tests use
// it to check what actually reaches the panel, fault injection included.
type MemEngine struct {
	mu sync.Mutex

	width, height int
	ram           []byte // RGB565 shadow, row-major

	// Decoded window state and write cursor.
	x0, x1, y0, y1 int
	cx, cy         int
	writing        bool

	maxChunk int

	// Commands records every command byte in arrival order.
	Commands []byte

	// FailAtDescriptor makes the Nth submitted descriptor of the current
	// frame fail (1-based); zero disables fault injection.
	FailAtDescriptor int
	// Stall delays completion past any timeout, simulating a hung bus.
	Stall time.Duration

	submitted int
}

// NewMemEngine builds a shadow panel of the given geometry.
func NewMemEngine(width, height, maxChunk int) *MemEngine {
	if maxChunk <= 0 {
		maxChunk = DefaultMaxChunk
	}
	maxChunk &^= 1 // whole pixels only
	return &MemEngine{
		width:    width,
		height:   height,
		ram:      make([]byte, width*height*2),
		x1:       width - 1,
		y1:       height - 1,
		maxChunk: maxChunk,
	}
}

func (e *MemEngine) MaxChunk() int { return e.maxChunk }

func (e *MemEngine) Command(cmd byte, args ...byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Commands = append(e.Commands, cmd)
	switch cmd {
	case cmdCASET:
		if len(args) != 4 {
			return fmt.Errorf("lcdpipe: CASET wants 4 parameter bytes, got %d", len(args))
		}
		e.x0 = int(args[0])<<8 | int(args[1])
		e.x1 = int(args[2])<<8 | int(args[3])
	case cmdRASET:
		if len(args) != 4 {
			return fmt.Errorf("lcdpipe: RASET wants 4 parameter bytes, got %d", len(args))
		}
		e.y0 = int(args[0])<<8 | int(args[1])
		e.y1 = int(args[2])<<8 | int(args[3])
	case cmdRAMWR:
		e.cx, e.cy = e.x0, e.y0
		e.writing = true
	default:
		// Reset, mode and power commands carry no RAM state.
	}
	return nil
}

func (e *MemEngine) Submit(run []Descriptor, src []byte) (<-chan error, error) {
	done := make(chan error, 1)
	go func() {
		if e.Stall > 0 {
			time.Sleep(e.Stall)
		}
		for _, d := range run {
			e.mu.Lock()
			e.submitted++
			if e.FailAtDescriptor > 0 && e.submitted == e.FailAtDescriptor {
				e.mu.Unlock()
				done <- fmt.Errorf("lcdpipe: engine fault at descriptor %d", e.submitted)
				return
			}
			if d.Length > e.maxChunk {
				e.mu.Unlock()
				done <- fmt.Errorf("lcdpipe: descriptor length %d over chunk limit %d", d.Length, e.maxChunk)
				return
			}
			if err := e.applyLocked(src[d.Offset : d.Offset+d.Length]); err != nil {
				e.mu.Unlock()
				done <- err
				return
			}
			e.mu.Unlock()
		}
		done <- nil
	}()
	return done, nil
}

// applyLocked advances the window cursor pixel by pixel, wrapping rows
// inside the address window like the controller does.
func (e *MemEngine) applyLocked(p []byte) error {
	if !e.writing {
		return fmt.Errorf("lcdpipe: pixel data without a preceding memory-write command")
	}
	for i := 0; i+1 < len(p); i += 2 {
		if e.cy > e.y1 {
			return fmt.Errorf("lcdpipe: pixel data overruns window %d,%d..%d,%d", e.x0, e.y0, e.x1, e.y1)
		}
		if e.cx >= 0 && e.cx < e.width && e.cy >= 0 && e.cy < e.height {
			o := (e.cy*e.width + e.cx) * 2
			e.ram[o] = p[i]
			e.ram[o+1] = p[i+1]
		}
		e.cx++
		if e.cx > e.x1 {
			e.cx = e.x0
			e.cy++
		}
	}
	return nil
}

// RAM returns a copy of the shadow panel memory.
func (e *MemEngine) RAM() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]byte, len(e.ram))
	copy(out, e.ram)
	return out
}

// ResetCounters clears the per-frame fault bookkeeping between test frames.
func (e *MemEngine) ResetCounters() {
	e.mu.Lock()
	e.submitted = 0
	e.mu.Unlock()
}
