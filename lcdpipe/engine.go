package lcdpipe

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// Engine is the DMA-capable transfer backend the panel driver talks to.
//
// Command strobes a command byte with the command/data line held low,
// followed by its parameter bytes with the line high; the line settles
// before each phase, and command and data phases are never interleaved
// without re-asserting it. Submit starts an asynchronous transfer of one
// run's descriptors against src and returns a channel that delivers exactly
// one result, the DMA-complete interrupt analogue. The caller must not
// Submit again while a transfer is outstanding; a timed-out transfer's late
// completion lands on its own channel and cannot be mistaken for the next
// one's.
type Engine interface {
	Command(cmd byte, args ...byte) error
	Submit(run []Descriptor, src []byte) (<-chan error, error)
	MaxChunk() int
}

// dcSettle is the minimum time the command/data line is left to settle
// before the bus clock strobes. Violating it corrupts the addressed
// window, not just pixel data.
const dcSettle = time.Microsecond

// SPIEngine drives the panel over a periph.io SPI connection with a GPIO
// command/data line. The kernel's spidev transfer cap shows up through
// conn.Limits and bounds the chunk size the same way the DMA descriptor
// limit does on the native bus.
type SPIEngine struct {
	c        conn.Conn
	dc       gpio.PinOut
	maxChunk int
}

// NewSPIEngine wraps an established SPI connection. maxChunk is lowered to
// the connection's own transfer limit when the port advertises one.
func NewSPIEngine(c conn.Conn, dc gpio.PinOut, maxChunk int) (*SPIEngine, error) {
	if c == nil || dc == nil {
		return nil, fmt.Errorf("lcdpipe: spi engine needs a connection and a dc pin")
	}
	if maxChunk <= 0 {
		maxChunk = DefaultMaxChunk
	}
	if l, ok := c.(conn.Limits); ok {
		if tx := l.MaxTxSize(); tx > 0 && tx < maxChunk {
			maxChunk = tx
		}
	}
	// Chunks carry whole pixels; an odd port limit loses its last byte.
	maxChunk &^= 1
	return &SPIEngine{c: c, dc: dc, maxChunk: maxChunk}, nil
}

func (e *SPIEngine) MaxChunk() int { return e.maxChunk }

// Command sends one command byte and its parameters through the DC line
// discipline.
func (e *SPIEngine) Command(cmd byte, args ...byte) error {
	if err := e.dc.Out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(dcSettle)
	if err := e.c.Tx([]byte{cmd}, nil); err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	if err := e.dc.Out(gpio.High); err != nil {
		return err
	}
	time.Sleep(dcSettle)
	return e.c.Tx(args, nil)
}

// Submit pushes the run's chunks on a worker goroutine so the render loop
// can await completion the way it would await the DMA interrupt.
func (e *SPIEngine) Submit(run []Descriptor, src []byte) (<-chan error, error) {
	if err := e.dc.Out(gpio.High); err != nil {
		return nil, err
	}
	time.Sleep(dcSettle)
	done := make(chan error, 1)
	go func() {
		for _, d := range run {
			if d.Offset < 0 || d.Offset+d.Length > len(src) {
				done <- fmt.Errorf("lcdpipe: descriptor [%d:%d] outside source of %d bytes",
					d.Offset, d.Offset+d.Length, len(src))
				return
			}
			if err := e.c.Tx(src[d.Offset:d.Offset+d.Length], nil); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()
	return done, nil
}
