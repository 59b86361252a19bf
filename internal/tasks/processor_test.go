package tasks

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	var payload TaskPayload
	err := decodePayload(map[string]interface{}{
		"type":    "thumbnail",
		"photoId": "p1",
		"object":  "2026/01/01/p1.jpeg",
		"thumb":   "thumb/2026/01/01/p1.jpeg",
		"format":  "jpeg",
	}, &payload)
	require.NoError(t, err)
	assert.Equal(t, "thumbnail", payload.Type)
	assert.Equal(t, "p1", payload.PhotoID)
	assert.Equal(t, "thumb/2026/01/01/p1.jpeg", payload.Thumb)
}

func TestHandleUnknownTypeIsNoop(t *testing.T) {
	p := NewProcessor(nil, nil, zerolog.Nop())
	err := p.Handle(context.Background(), redis.XMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"type": "mystery"},
	})
	assert.NoError(t, err)
}

func TestScaleDownBoundsLongEdge(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1600, 900))
	out := scaleDown(src, 480)
	assert.Equal(t, 480, out.Bounds().Dx())
	assert.Equal(t, 270, out.Bounds().Dy())

	tall := image.NewRGBA(image.Rect(0, 0, 300, 1200))
	out = scaleDown(tall, 480)
	assert.Equal(t, 120, out.Bounds().Dx())
	assert.Equal(t, 480, out.Bounds().Dy())

	small := image.NewRGBA(image.Rect(0, 0, 100, 50))
	assert.Same(t, image.Image(small), scaleDown(small, 480))
}

func TestDecodeImageByFormat(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := decodeImage("png", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	_, err = decodeImage("png", []byte("not an image"))
	assert.Error(t, err)
}
