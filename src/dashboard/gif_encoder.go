package dashboard

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"time"

	"golang.org/x/sync/errgroup"
)

// GifFileName is the download name of an exported race.
const GifFileName = "cheese-stick-race.gif"

// ErrNoFrames is returned when a capture produced nothing to encode.
var ErrNoFrames = errors.New("no frames to encode")

// GifEncoder quantizes frames on a bounded worker pool and writes an
// endlessly looping GIF.
type GifEncoder struct {
	Workers    int
	FrameDelay time.Duration
}

// NewGifEncoder creates an encoder; non-positive values take the defaults of
// 2 workers and 150ms per frame.
func NewGifEncoder(workers int, frameDelay time.Duration) *GifEncoder {
	if workers <= 0 {
		workers = 2
	}
	if frameDelay <= 0 {
		frameDelay = 150 * time.Millisecond
	}
	return &GifEncoder{Workers: workers, FrameDelay: frameDelay}
}

// delay is the per-frame delay in hundredths of a second.
func (e *GifEncoder) delay() int {
	return int(e.FrameDelay / (10 * time.Millisecond))
}

// Encode quantizes every frame to the Plan 9 palette with Floyd-Steinberg
// dithering and returns the GIF bytes.
func (e *GifEncoder) Encode(ctx context.Context, frames []image.Image) ([]byte, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}

	paletted := make([]*image.Paletted, len(frames))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Workers)
	for i, frame := range frames {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b := frame.Bounds()
			p := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), palette.Plan9)
			draw.FloydSteinberg.Draw(p, p.Bounds(), frame, b.Min)
			paletted[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	anim := &gif.GIF{
		Image:     paletted,
		Delay:     make([]int, len(paletted)),
		LoopCount: 0,
	}
	for i := range anim.Delay {
		anim.Delay[i] = e.delay()
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
