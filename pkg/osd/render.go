// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package osd

import (
	"fmt"
	"image"
	"image/color"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi          float64 = 72
	textSize     float64 = 24
	bannerSize   float64 = 36
	lineSpacing          = 32
	marginLeft           = 28
	marginRight          = 28
	marginTop            = 16
	recordRadius         = 16
)

var (
	colorWhite  = color.RGBA{255, 255, 255, 255}
	colorGreen  = color.RGBA{0, 255, 0, 255}
	colorYellow = color.RGBA{255, 255, 0, 255}
	colorRed    = color.RGBA{255, 0, 0, 255}
)

// LevelColor returns the battery line color for l
func LevelColor(l Level) color.RGBA {
	switch l {
	case LevelCritical:
		return colorRed
	case LevelWarning:
		return colorYellow
	default:
		return colorGreen
	}
}

// Renderer draws the display onto RGBA images using the Go font
type Renderer struct {
	context    *freetype.Context
	textFace   font.Face
	bannerFace font.Face
	thresholds Thresholds
}

// NewRenderer creates a renderer classifying the battery with t
func NewRenderer(t Thresholds) (*Renderer, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(textSize)
	ctx.SetHinting(font.HintingFull)

	return &Renderer{
		context: ctx,
		textFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size: textSize, DPI: dpi, Hinting: font.HintingFull,
		}),
		bannerFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size: bannerSize, DPI: dpi, Hinting: font.HintingFull,
		}),
		thresholds: t,
	}, nil
}

// Close releases the font faces
func (r *Renderer) Close() error {
	if err := r.textFace.Close(); err != nil {
		return err
	}
	return r.bannerFace.Close()
}

// Render draws s onto a new transparent image of the given size
func (r *Renderer) Render(s State, width, height int) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if err := r.Draw(img, s); err != nil {
		return nil, err
	}
	return img, nil
}

// Draw draws s over img
func (r *Renderer) Draw(img *image.RGBA, s State) error {
	r.context.SetClip(img.Bounds())
	r.context.SetDst(img)

	level := s.Level(r.thresholds)
	lines := []struct {
		text  string
		color color.RGBA
	}{
		{s.AltitudeLine(), colorWhite},
		{s.BatteryLine(), LevelColor(level)},
		{s.HeadingLine(), colorWhite},
	}

	ascent := r.textFace.Metrics().Ascent.Round()
	for i, line := range lines {
		r.context.SetSrc(image.NewUniform(line.color))
		pt := freetype.Pt(img.Bounds().Min.X+marginLeft, img.Bounds().Min.Y+marginTop+ascent+i*lineSpacing)
		if _, err := r.context.DrawString(line.text, pt); err != nil {
			return fmt.Errorf("drawing %q: %w", line.text, err)
		}
	}

	if banner := s.Banner(r.thresholds); banner != "" {
		if err := r.drawBanner(img, banner); err != nil {
			return fmt.Errorf("drawing banner: %w", err)
		}
	}

	if s.Recording {
		r.drawRecordMarker(img)
	}

	return nil
}

func (r *Renderer) drawBanner(img *image.RGBA, text string) error {
	bounds := img.Bounds()
	metrics := r.bannerFace.Metrics()
	width := font.MeasureString(r.bannerFace, text).Round()
	height := (metrics.Ascent + metrics.Descent).Round()

	x := bounds.Min.X + (bounds.Dx()-width)/2
	y := bounds.Min.Y + (bounds.Dy()-height)/2 + metrics.Ascent.Round()

	r.context.SetFontSize(bannerSize)
	defer r.context.SetFontSize(textSize)
	r.context.SetSrc(image.NewUniform(colorRed))

	_, err := r.context.DrawString(text, freetype.Pt(x, y))
	return err
}

// drawRecordMarker fills a red dot in the top right corner
func (r *Renderer) drawRecordMarker(img *image.RGBA) {
	center := RecordMarkerCenter(img.Bounds())
	cx, cy := center.X, center.Y

	for y := cy - recordRadius; y <= cy+recordRadius; y++ {
		for x := cx - recordRadius; x <= cx+recordRadius; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= recordRadius*recordRadius {
				img.SetRGBA(x, y, colorRed)
			}
		}
	}
}

// RecordMarkerCenter returns where the recording marker is drawn on an image
// with the given bounds
func RecordMarkerCenter(bounds image.Rectangle) image.Point {
	return image.Pt(bounds.Max.X-marginRight-recordRadius, bounds.Min.Y+marginTop+recordRadius)
}
