package main

import (
	"image"
	"image/color"
	"testing"

	"golang.org/x/image/font/basicfont"
)

func TestGetFontFaceFallback(t *testing.T) {
	face, height := getFontFace("/nonexistent.ttf", 16)
	if face == nil {
		t.Fatal("fallback face is nil")
	}
	if height <= 0 {
		t.Errorf("face height = %d", height)
	}
}

func TestDrawTextPaintsPixels(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 20))
	finish := drawText(img, "hello", 2, 2, basicfont.Face7x13, color.White, false)
	if finish <= 2 {
		t.Errorf("finishX = %d, want advance past start", finish)
	}
	painted := false
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			painted = true
			break
		}
	}
	if !painted {
		t.Error("no pixels painted")
	}
}

func TestFmtPct(t *testing.T) {
	if got := fmtPct(86.4); got != "86%" {
		t.Errorf("fmtPct = %q", got)
	}
	if got := fmtPct(100); got != "100%" {
		t.Errorf("fmtPct = %q", got)
	}
}
