package lcdpipe

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestNewPixelBufferValidation(t *testing.T) {
	if _, err := NewPixelBuffer(0, 170); err == nil {
		t.Error("zero width must be rejected")
	}
	if _, err := NewPixelBuffer(320, -1); err == nil {
		t.Error("negative height must be rejected")
	}
	b, err := NewPixelBuffer(320, 170)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Bytes()) != 320*170*2 {
		t.Errorf("buffer size %d, want %d", len(b.Bytes()), 320*170*2)
	}
}

func TestRGB565Packing(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		want    uint16
	}{
		{0, 0, 0, 0x0000},
		{255, 255, 255, 0xFFFF},
		{255, 0, 0, 0xF800},
		{0, 255, 0, 0x07E0},
		{0, 0, 255, 0x001F},
	}
	for _, tt := range tests {
		if got := RGB565(tt.r, tt.g, tt.b); got != tt.want {
			t.Errorf("RGB565(%d,%d,%d) = %#04x, want %#04x", tt.r, tt.g, tt.b, got, tt.want)
		}
	}
}

func TestSetPixelWireOrder(t *testing.T) {
	b, _ := NewPixelBuffer(4, 4)
	b.SetPixel(1, 0, 0xF800)
	// High byte first, as the panel expects on the bus.
	if b.Bytes()[2] != 0xF8 || b.Bytes()[3] != 0x00 {
		t.Errorf("pixel bytes = %#02x %#02x, want f8 00", b.Bytes()[2], b.Bytes()[3])
	}
	if got := b.PixelAt(1, 0); got != 0xF800 {
		t.Errorf("PixelAt = %#04x", got)
	}
	// Out of bounds writes are ignored.
	b.SetPixel(-1, 9, 0xFFFF)
}

func TestFillRectClipped(t *testing.T) {
	b, _ := NewPixelBuffer(10, 10)
	b.FillRect(Rect{8, 8, 10, 10}, 0xFFFF)
	if b.PixelAt(9, 9) != 0xFFFF {
		t.Error("inside pixel not painted")
	}
	if b.PixelAt(7, 7) != 0 {
		t.Error("outside pixel painted")
	}
}

func TestDrawRGBAConversionAndAlpha(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	src.SetRGBA(1, 0, color.RGBA{0, 255, 0, 10}) // transparent, must not land

	b, _ := NewPixelBuffer(4, 4)
	b.FillRect(b.Bounds(), 0x001F)
	b.DrawRGBA(Rect{1, 1, 2, 1}, src)

	if got := b.PixelAt(1, 1); got != 0xF800 {
		t.Errorf("opaque pixel = %#04x, want f800", got)
	}
	if got := b.PixelAt(2, 1); got != 0x001F {
		t.Errorf("transparent pixel overwrote background: %#04x", got)
	}
}

func TestBufferPairDoubleAcquire(t *testing.T) {
	p, err := NewBufferPair(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.AcquireBack(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.AcquireBack(); !errors.Is(err, ErrBackCheckedOut) {
		t.Errorf("second acquire = %v, want ErrBackCheckedOut", err)
	}
	p.Commit()
	if _, err := p.AcquireBack(); err != nil {
		t.Errorf("acquire after commit = %v", err)
	}
}

func TestBufferPairCommitSwaps(t *testing.T) {
	p, _ := NewBufferPair(8, 8)
	back, _ := p.AcquireBack()
	back.SetPixel(0, 0, 0xBEEF)

	if p.Front().PixelAt(0, 0) == 0xBEEF {
		t.Fatal("draw leaked into front before commit")
	}
	newBack := p.Commit()
	if p.Front().PixelAt(0, 0) != 0xBEEF {
		t.Error("commit did not promote back buffer")
	}
	if newBack == p.Front() {
		t.Error("commit returned the front buffer as the new back")
	}
}

// An in-flight transfer keeps its captured buffer even when a commit races.
func TestFrontCapturedAcrossCommit(t *testing.T) {
	p, _ := NewBufferPair(8, 8)
	back, _ := p.AcquireBack()
	back.SetPixel(0, 0, 0x1111)
	p.Commit()

	captured := p.Front()
	back, _ = p.AcquireBack()
	back.SetPixel(0, 0, 0x2222)
	p.Commit()

	if captured.PixelAt(0, 0) != 0x1111 {
		t.Errorf("captured buffer changed under the transfer: %#04x", captured.PixelAt(0, 0))
	}
	if p.Front().PixelAt(0, 0) != 0x2222 {
		t.Error("new front not picked up after second commit")
	}
}

// A snapshot is a decoupled copy: painting and committing afterwards must
// not show through it.
func TestFrontSnapshotIsACopy(t *testing.T) {
	p, _ := NewBufferPair(4, 4)
	back, _ := p.AcquireBack()
	back.FillRect(Rect{0, 0, 4, 4}, RGB565(255, 0, 0))
	p.Commit()

	snap := p.FrontSnapshot()

	back, _ = p.AcquireBack()
	back.FillRect(Rect{0, 0, 4, 4}, RGB565(0, 255, 0))
	p.Commit()

	c := snap.RGBAAt(0, 0)
	if c.R != 0xF8 || c.G != 0 {
		t.Errorf("snapshot changed after later commit: %+v", c)
	}
}

func TestDiscardReleasesCheckout(t *testing.T) {
	p, _ := NewBufferPair(8, 8)
	front := p.Front()
	if _, err := p.AcquireBack(); err != nil {
		t.Fatal(err)
	}
	p.Discard()
	if p.Front() != front {
		t.Error("discard must not swap buffers")
	}
	if _, err := p.AcquireBack(); err != nil {
		t.Errorf("acquire after discard = %v", err)
	}
}
