// Package imaging prepares player icons and composes chart frames.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strconv"
	"strings"
	"unicode"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
)

// Sizes used by the dashboard.
const (
	StoredIconSize = 100
	MarkerSize     = 40
)

// MaxSourcePixels caps the declared size of an image before it is decoded.
const MaxSourcePixels = 40_000_000

var (
	// ErrImageDecode is returned for uploads that are not a readable image.
	ErrImageDecode = errors.New("image could not be decoded")
	// ErrImageTooLarge is returned when the header declares more than
	// MaxSourcePixels.
	ErrImageTooLarge = errors.New("image dimensions too large")
)

const dataURLPrefix = "data:image/png;base64,"

// -----------------------------------------------------------------------------

// circleMask is an alpha mask that is opaque inside a centred circle.
type circleMask struct {
	size int
}

func (c circleMask) ColorModel() color.Model { return color.AlphaModel }
func (c circleMask) Bounds() image.Rectangle { return image.Rect(0, 0, c.size, c.size) }
func (c circleMask) At(x, y int) color.Color {
	r := float64(c.size) / 2
	dx, dy := float64(x)+0.5-r, float64(y)+0.5-r
	if dx*dx+dy*dy <= r*r {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}

// -----------------------------------------------------------------------------

// CropCircle decodes data, takes the centred square, scales it to size and
// clips it to a circle with a transparent outside.
func CropCircle(ctx context.Context, data []byte, size int) (*image.RGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid icon size %d", size)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return circleFrom(src, size), nil
}

func circleFrom(src image.Image, size int) *image.RGBA {
	b := src.Bounds()
	side := min(b.Dx(), b.Dy())
	square := image.Rect(0, 0, side, side).Add(image.Pt(b.Min.X+(b.Dx()-side)/2, b.Min.Y+(b.Dy()-side)/2))

	scaled := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, square, xdraw.Src, nil)

	out := image.NewRGBA(scaled.Bounds())
	draw.DrawMask(out, out.Bounds(), scaled, image.Point{}, circleMask{size: size}, image.Point{}, draw.Over)
	return out
}

// -----------------------------------------------------------------------------

// EncodeDataURL encodes img as a PNG data URL.
func EncodeDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURL returns the bytes of a base64 data URL of any image type.
func DecodeDataURL(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "data:") {
		return nil, fmt.Errorf("%w: not a data url", ErrImageDecode)
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 || !strings.Contains(s[:comma], ";base64") {
		return nil, fmt.Errorf("%w: data url is not base64", ErrImageDecode)
	}
	data, err := base64.StdEncoding.DecodeString(s[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	return data, nil
}

// -----------------------------------------------------------------------------

// ParseHexColor parses #RGB or #RRGGBB; anything else yields mid grey.
func ParseHexColor(s string) color.RGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{128, 128, 128, 255}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{128, 128, 128, 255}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

// -----------------------------------------------------------------------------

// MarkerIcon returns the race marker for a player: the stored icon clipped to
// a circle, or a disc in the player's colour with the name's initial.
func MarkerIcon(name, hexColor, iconDataURL string, size int) *image.RGBA {
	if iconDataURL != "" {
		if data, err := DecodeDataURL(iconDataURL); err == nil {
			if src, _, err := image.Decode(bytes.NewReader(data)); err == nil {
				return circleFrom(src, size)
			}
		}
	}
	return defaultMarker(name, ParseHexColor(hexColor), size)
}

func defaultMarker(name string, fill color.RGBA, size int) *image.RGBA {
	disc := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.DrawMask(disc, disc.Bounds(), image.NewUniform(fill), image.Point{}, circleMask{size: size}, image.Point{}, draw.Over)

	initial := "?"
	for _, r := range name {
		if !unicode.IsSpace(r) {
			initial = string(unicode.ToUpper(r))
			break
		}
	}
	face := basicfont.Face7x13
	dr := &font.Drawer{Dst: disc, Src: image.White, Face: face}
	w := dr.MeasureString(initial).Ceil()
	ascent := face.Metrics().Ascent.Ceil()
	dr.Dot = fixed.P((size-w)/2, (size+ascent)/2-1)
	dr.DrawString(initial)
	return disc
}

// -----------------------------------------------------------------------------

// Flatten composites img onto an opaque background.
func Flatten(img image.Image, bg color.Color) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}

// Fit scales img to w x h and flattens it onto bg.
func Fit(img image.Image, w, h int, bg color.Color) *image.RGBA {
	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return Flatten(scaled, bg)
}

// -----------------------------------------------------------------------------

// OverlayText draws text with its baseline at (x, y) on a translucent box.
func OverlayText(dst draw.Image, text string, x, y int, fg, box color.Color) {
	if strings.TrimSpace(text) == "" {
		return
	}
	const pad = 4
	face := basicfont.Face7x13
	dr := &font.Drawer{Dst: dst, Src: image.NewUniform(fg), Face: face}
	tw := dr.MeasureString(text).Ceil()

	if box != nil {
		rect := image.Rect(x-pad, y-face.Metrics().Ascent.Ceil()-pad, x+tw+pad, y+pad)
		draw.Draw(dst, rect, image.NewUniform(box), image.Point{}, draw.Over)
	}
	dr.Dot = fixed.P(x, y)
	dr.DrawString(text)
}

// -----------------------------------------------------------------------------

// Overlay draws icon centred on (cx, cy).
func Overlay(dst draw.Image, icon image.Image, cx, cy int) {
	b := icon.Bounds()
	at := image.Rect(cx-b.Dx()/2, cy-b.Dy()/2, cx-b.Dx()/2+b.Dx(), cy-b.Dy()/2+b.Dy())
	draw.Draw(dst, at, icon, b.Min, draw.Over)
}
