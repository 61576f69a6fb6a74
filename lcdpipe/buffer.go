package lcdpipe

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
)

// ErrBackCheckedOut is returned by AcquireBack when the previous checkout
// has not been committed or discarded yet.
var ErrBackCheckedOut = errors.New("lcdpipe: back buffer already checked out")

// PixelBuffer owns a width x height RGB565 framebuffer. Pixels are stored
// row-major, two bytes per pixel, high byte first as the panel expects on
// the wire, so the buffer can be handed to the transfer engine untouched.
type PixelBuffer struct {
	width  int
	height int
	pix    []byte
}

// NewPixelBuffer allocates a zeroed RGB565 buffer.
func NewPixelBuffer(width, height int) (*PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("lcdpipe: invalid buffer size %dx%d", width, height)
	}
	return &PixelBuffer{
		width:  width,
		height: height,
		pix:    make([]byte, width*height*2),
	}, nil
}

func (b *PixelBuffer) Width() int  { return b.width }
func (b *PixelBuffer) Height() int { return b.height }

// Stride returns the length of one row in bytes.
func (b *PixelBuffer) Stride() int { return b.width * 2 }

// Bounds returns the full-buffer rect.
func (b *PixelBuffer) Bounds() Rect { return Rect{W: b.width, H: b.height} }

// Bytes exposes the raw pixel storage. The transfer engine treats it as
// read-only for the duration of a transfer.
func (b *PixelBuffer) Bytes() []byte { return b.pix }

// RGB565 packs an 8-bit RGB triple into the panel's 16-bit pixel format.
func RGB565(r, g, b uint8) uint16 {
	return uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b)>>3
}

// SetPixel writes one pixel. Out-of-bounds coordinates are ignored.
func (b *PixelBuffer) SetPixel(x, y int, c uint16) {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return
	}
	i := (y*b.width + x) * 2
	b.pix[i] = byte(c >> 8)
	b.pix[i+1] = byte(c)
}

// PixelAt reads back one pixel, mainly for tests and the web frame export.
func (b *PixelBuffer) PixelAt(x, y int) uint16 {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return 0
	}
	i := (y*b.width + x) * 2
	return uint16(b.pix[i])<<8 | uint16(b.pix[i+1])
}

// FillRect paints a solid rectangle, clipped to the buffer.
func (b *PixelBuffer) FillRect(r Rect, c uint16) {
	r = r.Clip(b.Bounds())
	if r.Empty() {
		return
	}
	hi, lo := byte(c>>8), byte(c)
	for y := r.Y; y < r.Y+r.H; y++ {
		i := (y*b.width + r.X) * 2
		for x := 0; x < r.W; x++ {
			b.pix[i] = hi
			b.pix[i+1] = lo
			i += 2
		}
	}
}

// DrawRGBA blits src onto the buffer at (r.X, r.Y), converting to RGB565.
// The source is read starting at its own bounds origin and clipped to r and
// to the buffer. Alpha below 128 leaves the destination pixel untouched so
// painters can stamp icons with transparent backgrounds.
func (b *PixelBuffer) DrawRGBA(r Rect, src *image.RGBA) {
	r = r.Clip(b.Bounds())
	if r.Empty() || src == nil {
		return
	}
	sb := src.Bounds()
	w := min(r.W, sb.Dx())
	h := min(r.H, sb.Dy())
	for y := 0; y < h; y++ {
		si := src.PixOffset(sb.Min.X, sb.Min.Y+y)
		di := ((r.Y+y)*b.width + r.X) * 2
		for x := 0; x < w; x++ {
			a := src.Pix[si+3]
			if a >= 0x80 {
				c := RGB565(src.Pix[si], src.Pix[si+1], src.Pix[si+2])
				b.pix[di] = byte(c >> 8)
				b.pix[di+1] = byte(c)
			}
			si += 4
			di += 2
		}
	}
}

// ToRGBA copies the buffer into a new image.RGBA, for the PNG frame export
// and the desktop simulator.
func (b *PixelBuffer) ToRGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.width, b.height))
	for y := 0; y < b.height; y++ {
		si := y * b.Stride()
		di := img.PixOffset(0, y)
		for x := 0; x < b.width; x++ {
			c := uint16(b.pix[si])<<8 | uint16(b.pix[si+1])
			img.Pix[di] = uint8(c>>11) << 3
			img.Pix[di+1] = uint8(c>>5) << 2
			img.Pix[di+2] = uint8(c) << 3
			img.Pix[di+3] = 0xFF
			si += 2
			di += 4
		}
	}
	return img
}

// ColorModel makes the buffer usable where an image is expected.
func (b *PixelBuffer) ColorModel() color.Model { return color.RGBAModel }

// BufferPair holds the two framebuffers and tracks which one is front.
// The swap is an index exchange under the pair mutex rather than a pointer
// swap, so no reader can observe a buffer mid-swap.
type BufferPair struct {
	mu      sync.Mutex
	bufs    [2]*PixelBuffer
	front   int
	backOut bool
}

// NewBufferPair allocates both buffers up front; nothing is allocated per
// frame afterwards.
func NewBufferPair(width, height int) (*BufferPair, error) {
	a, err := NewPixelBuffer(width, height)
	if err != nil {
		return nil, err
	}
	b, err := NewPixelBuffer(width, height)
	if err != nil {
		return nil, err
	}
	return &BufferPair{bufs: [2]*PixelBuffer{a, b}}, nil
}

// AcquireBack hands out exclusive write access to the non-displayed buffer.
// Calling it again before Commit or Discard is a programming error and is
// reported, not silently ignored.
func (p *BufferPair) AcquireBack() (*PixelBuffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backOut {
		return nil, ErrBackCheckedOut
	}
	p.backOut = true
	return p.bufs[1-p.front], nil
}

// Commit promotes the back buffer to front and returns the previous front
// as the new back buffer for reuse. An in-flight transfer keeps reading the
// buffer it captured from Front when it started; the new front is picked up
// by the next transfer.
func (p *BufferPair) Commit() *PixelBuffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.front = 1 - p.front
	p.backOut = false
	return p.bufs[1-p.front]
}

// Discard releases a checkout without swapping, used when a frame turned
// out to have no dirty regions.
func (p *BufferPair) Discard() {
	p.mu.Lock()
	p.backOut = false
	p.mu.Unlock()
}

// Front returns the buffer currently bound to the panel. Only the render
// loop may hold this across a Commit; after the swap the same buffer is
// handed back out for painting.
func (p *BufferPair) Front() *PixelBuffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bufs[p.front]
}

// FrontSnapshot copies the front buffer into an RGBA image under the pair
// lock. Readers outside the render loop must take a snapshot rather than
// hold the live buffer, which the next swap turns into the write target.
func (p *BufferPair) FrontSnapshot() *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bufs[p.front].ToRGBA()
}
