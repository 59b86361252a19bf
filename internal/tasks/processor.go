package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/config"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/storage"
)

const thumbnailMaxEdge = 480

// Processor executes tasks the API enqueues on the stream: thumbnail
// rendering against the object store and notification delivery.
type Processor struct {
	store  *storage.ObjectStore
	cfg    *config.AppConfig
	logger zerolog.Logger
}

type TaskPayload struct {
	Type      string `json:"type"`
	PhotoID   string `json:"photoId"`
	Object    string `json:"object"`
	Thumb     string `json:"thumb"`
	Format    string `json:"format"`
	Recipient string `json:"recipient"`
	Template  string `json:"template"`
}

func NewProcessor(store *storage.ObjectStore, cfg *config.AppConfig, logger zerolog.Logger) *Processor {
	return &Processor{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload TaskPayload
	if err := decodePayload(msg.Values, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	switch payload.Type {
	case "thumbnail":
		return p.handleThumbnail(ctx, payload)
	case "notify":
		return p.handleNotify(ctx, payload)
	default:
		p.logger.Warn().Str("type", payload.Type).Msg("unknown task type")
		return nil
	}
}

func decodePayload(values map[string]interface{}, out *TaskPayload) error {
	bytes, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, out)
}

func (p *Processor) handleThumbnail(ctx context.Context, payload TaskPayload) error {
	if payload.Object == "" || payload.Thumb == "" {
		p.logger.Warn().Str("photo_id", payload.PhotoID).Msg("thumbnail task missing keys")
		return nil
	}

	data, err := p.store.Get(ctx, p.cfg.Storage.BucketOriginals, payload.Object)
	if err != nil {
		return fmt.Errorf("fetch original: %w", err)
	}

	src, err := decodeImage(payload.Format, data)
	if err != nil {
		// webp/avif have no decoder here; leave the thumbnail slot empty
		// rather than failing the message forever.
		p.logger.Warn().
			Err(err).
			Str("photo_id", payload.PhotoID).
			Str("format", payload.Format).
			Msg("thumbnail skipped, undecodable format")
		return nil
	}

	thumb := scaleDown(src, thumbnailMaxEdge)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}

	if _, err := p.store.Put(ctx, p.cfg.Storage.BucketThumbnails, payload.Thumb, buf.Bytes(), "image/jpeg"); err != nil {
		return fmt.Errorf("store thumbnail: %w", err)
	}

	p.logger.Info().
		Str("photo_id", payload.PhotoID).
		Str("thumb", payload.Thumb).
		Msg("thumbnail rendered")
	return nil
}

// handleNotify is the delivery tail of the notification pipeline. Mail and
// push transports plug in here; for now delivery is the log line.
func (p *Processor) handleNotify(ctx context.Context, payload TaskPayload) error {
	p.logger.Info().
		Str("recipient", payload.Recipient).
		Str("template", payload.Template).
		Msg("notification delivered")
	return nil
}

func decodeImage(format string, data []byte) (image.Image, error) {
	switch format {
	case "jpg", "jpeg":
		return jpeg.Decode(bytes.NewReader(data))
	case "png":
		return png.Decode(bytes.NewReader(data))
	case "gif":
		return gif.Decode(bytes.NewReader(data))
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		return img, err
	}
}

// scaleDown is a nearest-neighbor resize bounded by maxEdge on the longer
// side. Images already small enough pass through untouched.
func scaleDown(src image.Image, maxEdge int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxEdge && h <= maxEdge {
		return src
	}

	outW, outH := maxEdge, maxEdge
	if w > h {
		outH = h * maxEdge / w
	} else {
		outW = w * maxEdge / h
	}
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	for y := 0; y < outH; y++ {
		srcY := bounds.Min.Y + y*h/outH
		for x := 0; x < outW; x++ {
			srcX := bounds.Min.X + x*w/outW
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}
	return dst
}
