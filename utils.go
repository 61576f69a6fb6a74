package main

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"os"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

func itoa(v int) string { return strconv.Itoa(v) }

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// getFontFace loads a TTF face at the given size, falling back to the
// builtin bitmap face when the file is missing so the dashboard still
// renders without any assets installed.
func getFontFace(path string, size float64) (font.Face, int) {
	face := loadTTF(path, size)
	if face == nil {
		face = basicfont.Face7x13
	}
	metrics := face.Metrics()
	return face, metrics.Ascent.Round() + metrics.Descent.Round()
}

func loadTTF(path string, size float64) font.Face {
	fontBytes, err := os.ReadFile(path)
	if err != nil {
		log.Printf("font %s: %v, using builtin face", path, err)
		return nil
	}
	ttfFont, err := opentype.Parse(fontBytes)
	if err != nil {
		log.Printf("font %s: %v, using builtin face", path, err)
		return nil
	}
	face, err := opentype.NewFace(ttfFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Printf("font %s: %v, using builtin face", path, err)
		return nil
	}
	return face
}

// drawText draws a string onto an *image.RGBA with (posX,posY) as the
// top-left anchor, optionally centered horizontally around posX.
func drawText(img *image.RGBA, text string, posX, posY int, face font.Face, clr color.Color, center bool) (finishX int) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(clr),
		Face: face,
	}
	metrics := face.Metrics()

	x := posX
	if center {
		x = posX - d.MeasureString(text).Round()/2
	}
	y := posY + metrics.Ascent.Round()

	d.Dot = fixed.P(x, y)
	d.DrawString(text)
	return x + d.MeasureString(text).Round()
}

// fmtPct renders a float percentage without a fraction.
func fmtPct(v float64) string {
	return fmt.Sprintf("%.0f%%", v)
}
