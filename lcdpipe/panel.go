package lcdpipe

import (
	"errors"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Panel controller command subset, ST7789-class.
const (
	cmdSWRESET = 0x01 // software reset
	cmdSLPOUT  = 0x11 // sleep out
	cmdINVON   = 0x21 // display inversion on
	cmdDISPON  = 0x29 // display on
	cmdCASET   = 0x2A // column address set
	cmdRASET   = 0x2B // row address set
	cmdRAMWR   = 0x2C // memory write
	cmdMADCTL  = 0x36 // memory access control
	cmdCOLMOD  = 0x3A // pixel format set
)

// MADCTL bits.
const (
	madctlMY  = 0x80
	madctlMX  = 0x40
	madctlMV  = 0x20
	madctlBGR = 0x08
)

// colmod16bit selects the 16-bit RGB565 pixel format.
const colmod16bit = 0x55

// Rotation selects the panel scan orientation via MADCTL.
type Rotation uint8

const (
	Rotation0 Rotation = iota
	Rotation90
	Rotation180
	Rotation270
)

func (r Rotation) madctl() byte {
	switch r {
	case Rotation90:
		return madctlMX | madctlMV
	case Rotation180:
		return madctlMX | madctlMY
	case Rotation270:
		return madctlMY | madctlMV
	default:
		return 0
	}
}

// ErrTransferFault marks a DMA error or completion timeout; the scheduler
// recovers by forcing a full-frame redraw on the next cycle.
var ErrTransferFault = errors.New("lcdpipe: transfer fault")

// ErrBadState is returned when a protocol phase is requested out of order.
var ErrBadState = errors.New("lcdpipe: illegal protocol state transition")

type panelState int

const (
	stateIdle panelState = iota
	stateAddressWindow
	stateTransferring
)

func (s panelState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAddressWindow:
		return "address-window"
	case stateTransferring:
		return "transferring"
	default:
		return "unknown"
	}
}

// PanelConfig fixes the panel geometry and wiring quirks. The byte/channel
// order bits must be verified empirically against the specific glass;
// getting them wrong silently maps colors to the wrong channels.
type PanelConfig struct {
	Width        int
	Height       int
	ColumnOffset int // panel RAM offset of column 0
	RowOffset    int // panel RAM offset of row 0
	Rotation     Rotation
	BGR          bool // swap red/blue channel order
	Inverted     bool // glass requires inversion for true colors

	// TransferTimeout bounds the wait for one run's completion; zero picks
	// a default. A timeout is treated as a DMA fault.
	TransferTimeout time.Duration
}

const defaultTransferTimeout = 250 * time.Millisecond

// Panel issues controller commands and drives the engine through descriptor
// chains. All phase ordering goes through the explicit state machine so an
// address window can never be clobbered by interleaved pixel data.
type Panel struct {
	eng Engine
	cfg PanelConfig
	rst gpio.PinOut // optional
	bl  gpio.PinOut // optional

	st panelState
}

// NewPanel validates the configuration; misconfiguration is fatal at
// construction, never at render time.
func NewPanel(eng Engine, cfg PanelConfig) (*Panel, error) {
	if eng == nil {
		return nil, fmt.Errorf("lcdpipe: panel needs an engine")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("lcdpipe: invalid panel size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.ColumnOffset < 0 || cfg.RowOffset < 0 {
		return nil, fmt.Errorf("lcdpipe: negative panel offsets %d,%d", cfg.ColumnOffset, cfg.RowOffset)
	}
	if cfg.TransferTimeout <= 0 {
		cfg.TransferTimeout = defaultTransferTimeout
	}
	return &Panel{eng: eng, cfg: cfg, st: stateIdle}, nil
}

// SetResetPin attaches the optional hardware reset line.
func (p *Panel) SetResetPin(rst gpio.PinOut) { p.rst = rst }

// SetBacklightPin attaches the optional backlight line.
func (p *Panel) SetBacklightPin(bl gpio.PinOut) { p.bl = bl }

// Init runs the controller bring-up sequence: reset, sleep-out, pixel
// format, scan orientation, display on. Delays follow the controller
// datasheet minimums.
func (p *Panel) Init() error {
	if p.st != stateIdle {
		return fmt.Errorf("%w: init while %s", ErrBadState, p.st)
	}
	if p.rst != nil {
		if err := p.rst.Out(gpio.High); err != nil {
			return err
		}
		time.Sleep(10 * time.Millisecond)
		if err := p.rst.Out(gpio.Low); err != nil {
			return err
		}
		time.Sleep(10 * time.Millisecond)
		if err := p.rst.Out(gpio.High); err != nil {
			return err
		}
		time.Sleep(120 * time.Millisecond)
	}

	if err := p.eng.Command(cmdSWRESET); err != nil {
		return err
	}
	time.Sleep(150 * time.Millisecond)

	if err := p.eng.Command(cmdSLPOUT); err != nil {
		return err
	}
	time.Sleep(120 * time.Millisecond)

	if err := p.eng.Command(cmdCOLMOD, colmod16bit); err != nil {
		return err
	}

	mad := p.cfg.Rotation.madctl()
	if p.cfg.BGR {
		mad |= madctlBGR
	}
	if err := p.eng.Command(cmdMADCTL, mad); err != nil {
		return err
	}

	if p.cfg.Inverted {
		if err := p.eng.Command(cmdINVON); err != nil {
			return err
		}
	}

	if err := p.eng.Command(cmdDISPON); err != nil {
		return err
	}
	return nil
}

// EnableBacklight switches the backlight line, active high.
func (p *Panel) EnableBacklight(on bool) error {
	if p.bl == nil {
		return nil
	}
	if on {
		return p.bl.Out(gpio.High)
	}
	return p.bl.Out(gpio.Low)
}

// setWindow scopes subsequent pixel data to exactly one run's rectangle.
// Bounds go out byte-swapped, high byte first.
func (p *Panel) setWindow(r Rect) error {
	if p.st != stateIdle {
		return fmt.Errorf("%w: address window while %s", ErrBadState, p.st)
	}
	x0 := r.X + p.cfg.ColumnOffset
	x1 := x0 + r.W - 1
	y0 := r.Y + p.cfg.RowOffset
	y1 := y0 + r.H - 1

	if err := p.eng.Command(cmdCASET,
		byte(x0>>8), byte(x0), byte(x1>>8), byte(x1)); err != nil {
		return err
	}
	if err := p.eng.Command(cmdRASET,
		byte(y0>>8), byte(y0), byte(y1>>8), byte(y1)); err != nil {
		return err
	}
	p.st = stateAddressWindow
	return nil
}

// startWrite issues the memory-write command and hands one run to the
// engine.
func (p *Panel) startWrite(run []Descriptor, src []byte) (<-chan error, error) {
	if p.st != stateAddressWindow {
		return nil, fmt.Errorf("%w: memory write while %s", ErrBadState, p.st)
	}
	if err := p.eng.Command(cmdRAMWR); err != nil {
		return nil, err
	}
	done, err := p.eng.Submit(run, src)
	if err != nil {
		return nil, err
	}
	p.st = stateTransferring
	return done, nil
}

// finish awaits one run's completion and returns the driver to idle. There
// is no cancellation of an in-flight transfer; a timeout is a fault.
func (p *Panel) finish(done <-chan error) error {
	if p.st != stateTransferring {
		return fmt.Errorf("%w: completion wait while %s", ErrBadState, p.st)
	}
	t := time.NewTimer(p.cfg.TransferTimeout)
	defer t.Stop()
	select {
	case err := <-done:
		p.st = stateIdle
		return err
	case <-t.C:
		p.st = stateIdle
		return fmt.Errorf("transfer completion timeout after %v", p.cfg.TransferTimeout)
	}
}

// Flush walks the whole chain: for each run, address window, memory write,
// engine submission, completion wait. On an engine error mid-chain the
// remaining runs are aborted, the failing window is logged and the caller
// gets ErrTransferFault so the next cycle retransmits the full frame
// instead of leaving a partially updated panel.
func (p *Panel) Flush(c *Chain, src []byte) error {
	for _, run := range c.Runs() {
		if err := p.flushRun(c, run, src); err != nil {
			p.st = stateIdle
			log.Printf("lcdpipe: aborting chain, run %v failed: %v", run.Window, err)
			return fmt.Errorf("%w: window %v: %v", ErrTransferFault, run.Window, err)
		}
	}
	return nil
}

func (p *Panel) flushRun(c *Chain, run Run, src []byte) error {
	if err := p.setWindow(run.Window); err != nil {
		return err
	}
	done, err := p.startWrite(c.RunDescriptors(run), src)
	if err != nil {
		return err
	}
	return p.finish(done)
}
