package fallback

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Placeholder image dimensions match the 4:3 panel aspect used throughout the
// slideshow frontend.
const (
	placeholderWidth  = 1024
	placeholderHeight = 768
	borderPx          = 8
)

var (
	placeholderBG     = color.RGBA{R: 0x2b, G: 0x2b, B: 0x33, A: 0xff}
	placeholderBorder = color.RGBA{R: 0x55, G: 0x55, B: 0x66, A: 0xff}
	placeholderText   = color.RGBA{R: 0xe0, G: 0xe0, B: 0xe8, A: 0xff}
)

// PlaceholderImage renders a deterministic placeholder PNG for the given
// panel: flat background, border, and a centered "Panel N" label. The same
// panel number always produces identical bytes.
func PlaceholderImage(panelNumber int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))

	draw.Draw(img, img.Bounds(), &image.Uniform{C: placeholderBorder}, image.Point{}, draw.Src)
	inner := image.Rect(borderPx, borderPx, placeholderWidth-borderPx, placeholderHeight-borderPx)
	draw.Draw(img, inner, &image.Uniform{C: placeholderBG}, image.Point{}, draw.Src)

	label := fmt.Sprintf("Panel %d", panelNumber)
	face := basicfont.Face7x13
	labelWidth := font.MeasureString(face, label).Ceil()

	d := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: placeholderText},
		Face: face,
		Dot: fixed.P(
			(placeholderWidth-labelWidth)/2,
			placeholderHeight/2,
		),
	}
	d.DrawString(label)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

// Silence parameters: 1 second of 16-bit mono PCM at 24 kHz, matching the
// sample rate the speech generator produces.
const (
	silenceSampleRate = 24000
	silenceSeconds    = 1
)

// SilenceWAV returns a complete WAV file containing one second of silence.
// Deterministic: every call returns identical bytes.
func SilenceWAV() []byte {
	numSamples := silenceSampleRate * silenceSeconds
	dataSize := numSamples * 2 // 16-bit mono

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))                  // fmt chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))                   // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1))                   // mono
	binary.Write(&buf, binary.LittleEndian, uint32(silenceSampleRate))   // sample rate
	binary.Write(&buf, binary.LittleEndian, uint32(silenceSampleRate*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))                   // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))                  // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))

	return buf.Bytes()
}
