package services

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/yungbote/storyforge-backend/internal/logger"
)

// PlaceholderRenderer draws the stand-in art used on storybook pages whose
// scene has no generated illustration yet.
type PlaceholderRenderer struct {
	log      *logger.Logger
	fontFace font.Face

	palette []color.NRGBA
}

func NewPlaceholderRenderer(log *logger.Logger) *PlaceholderRenderer {
	r := &PlaceholderRenderer{
		log: log.With("service", "PlaceholderRenderer"),
		palette: []color.NRGBA{
			{R: 0xAE, G: 0xC6, B: 0xCF, A: 0xFF},
			{R: 0xC7, G: 0xCE, B: 0xEA, A: 0xFF},
			{R: 0xB5, G: 0xEA, B: 0xD4, A: 0xFF},
			{R: 0xFF, G: 0xDA, B: 0xC1, A: 0xFF},
			{R: 0xE2, G: 0xC2, B: 0xC6, A: 0xFF},
		},
	}

	if fontPath := strings.TrimSpace(os.Getenv("PLACEHOLDER_FONT")); fontPath != "" {
		face, err := loadFontFace(fontPath, 48)
		if err != nil {
			r.log.Warn("could not load placeholder font, using built-in face", "font", fontPath, "error", err)
		} else {
			r.fontFace = face
		}
	}
	return r
}

// Render produces a square PNG for the given scene number.
func (r *PlaceholderRenderer) Render(sceneNumber int) ([]byte, error) {
	const size = 768

	dc := gg.NewContext(size, size)

	bg := r.palette[sceneNumber%len(r.palette)]
	dc.SetColor(bg)
	dc.DrawRectangle(0, 0, size, size)
	dc.Fill()

	dc.SetColor(color.White)
	dc.DrawCircle(size/2, size/2, size/3)
	dc.Fill()

	if r.fontFace != nil {
		dc.SetFontFace(r.fontFace)
	}
	dc.SetColor(color.NRGBA{R: 0x44, G: 0x44, B: 0x44, A: 0xFF})
	dc.DrawStringAnchored(fmt.Sprintf("Scene %d", sceneNumber), size/2, size/2-14, 0.5, 0.5)
	dc.DrawStringAnchored("illustration pending", size/2, size/2+14, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func loadFontFace(path string, points float64) (font.Face, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	f, err := truetype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: points}), nil
}
