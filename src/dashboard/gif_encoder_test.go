package dashboard

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frames(n int) []image.Image {
	out := make([]image.Image, n)
	for i := range out {
		img := image.NewRGBA(image.Rect(0, 0, 20, 10))
		for x := 0; x < 20; x++ {
			img.Set(x, i%10, color.RGBA{uint8(40 * i), 200, 80, 255})
		}
		out[i] = img
	}
	return out
}

func TestGifEncoderDefaults(t *testing.T) {
	e := NewGifEncoder(0, 0)
	assert.Equal(t, 2, e.Workers)
	assert.Equal(t, 15, e.delay())
}

func TestGifEncoderEncodes(t *testing.T) {
	data, err := NewGifEncoder(2, 150*time.Millisecond).Encode(context.Background(), frames(5))
	require.NoError(t, err)

	anim, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, anim.Image, 5)
	assert.Equal(t, []int{15, 15, 15, 15, 15}, anim.Delay)
	assert.Equal(t, 0, anim.LoopCount)
}

func TestGifEncoderNoFrames(t *testing.T) {
	_, err := NewGifEncoder(2, 0).Encode(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoFrames)
}

func TestGifEncoderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGifEncoder(2, 0).Encode(ctx, frames(3))
	assert.ErrorIs(t, err, context.Canceled)
}
