package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/config"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/media/sniffer"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/storage"
)

// Processed is the outcome of ingesting raw upload bytes: a stored
// original, a thumbnail slot, and probed dimensions.
type Processed struct {
	Bucket       string
	ObjectKey    string
	ThumbnailKey string
	Format       string
	MIME         string
	Width        int
	Height       int
	SizeBytes    int64
}

// Processor is the image-processing collaborator consumed by the catalog.
type Processor interface {
	Process(ctx context.Context, photoID string, data []byte, mimeHint string) (Processed, error)
}

type minioProcessor struct {
	store *storage.ObjectStore
	queue *redis.Client
	cfg   *config.AppConfig
	log   zerolog.Logger
}

func NewProcessor(store *storage.ObjectStore, queue *redis.Client, cfg *config.AppConfig, log zerolog.Logger) Processor {
	return &minioProcessor{
		store: store,
		queue: queue,
		cfg:   cfg,
		log:   log,
	}
}

func (p *minioProcessor) Process(ctx context.Context, photoID string, data []byte, mimeHint string) (Processed, error) {
	if len(data) == 0 {
		return Processed{}, fmt.Errorf("empty file")
	}

	result, err := sniffer.DetectHead(head(data))
	if err != nil {
		return Processed{}, fmt.Errorf("detect type: %w", err)
	}
	if mimeHint != "" && mimeHint != result.MIME {
		return Processed{}, fmt.Errorf("content type mismatch: declared %s, actual %s", mimeHint, result.MIME)
	}

	width, height := probeDimensions(data)

	objectKey := buildObjectKey(photoID, string(result.Type))
	size, err := p.store.Put(ctx, p.cfg.Storage.BucketOriginals, objectKey, data, result.MIME)
	if err != nil {
		return Processed{}, fmt.Errorf("store original: %w", err)
	}

	thumbKey := path.Join("thumb", objectKey)
	if err := p.enqueueThumbnail(ctx, photoID, objectKey, thumbKey, string(result.Type)); err != nil {
		p.log.Warn().Err(err).Str("photo_id", photoID).Msg("enqueue thumbnail failed")
	}

	return Processed{
		Bucket:       p.cfg.Storage.BucketOriginals,
		ObjectKey:    objectKey,
		ThumbnailKey: thumbKey,
		Format:       string(result.Type),
		MIME:         result.MIME,
		Width:        width,
		Height:       height,
		SizeBytes:    size,
	}, nil
}

func (p *minioProcessor) enqueueThumbnail(ctx context.Context, photoID string, objectKey string, thumbKey string, format string) error {
	if p.queue == nil {
		return nil
	}
	_, err := p.queue.XAdd(ctx, &redis.XAddArgs{
		Stream: p.cfg.Redis.Stream,
		Values: map[string]any{
			"type":     "thumbnail",
			"photoId":  photoID,
			"object":   objectKey,
			"thumb":    thumbKey,
			"format":   format,
		},
	}).Result()
	return err
}

func head(data []byte) []byte {
	if len(data) > 512 {
		return data[:512]
	}
	return data
}

// probeDimensions decodes just the header. webp/avif have no stdlib
// decoder; the worker backfills those when it renders the thumbnail.
func probeDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func buildObjectKey(photoID string, ext string) string {
	datePrefix := time.Now().UTC().Format("2006/01/02")
	return path.Join(datePrefix, fmt.Sprintf("%s.%s", photoID, ext))
}
