package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"

	commonlog "media_gateway/server/common/log"
	"media_gateway/server/gateway/domain"
)

const (
	thumbnailRoot = ".thumbnails/"
	thumbnailSize = 320
	// decoding allocates width*height*4 bytes before anything is resized
	maxThumbnailPixels = 40_000_000
)

// thumbnailKey lives outside every namespace prefix: resolved namespaces
// never start with ".".
func thumbnailKey(ns domain.TenantNamespace, filename string) string {
	return thumbnailRoot + ns.ObjectKey(filename) + "_thumb.jpg"
}

func (s *FileService) makeThumbnail(ctx context.Context, ns domain.TenantNamespace, filename string) (string, error) {
	obj, err := s.store.GetObject(ctx, ns.ObjectKey(filename))
	if err != nil {
		return "", err
	}
	defer obj.Close()

	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(obj, &head))
	if err != nil {
		return "", fmt.Errorf("decode image header: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxThumbnailPixels {
		return "", fmt.Errorf("image %dx%d exceeds thumbnail pixel limit", cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(io.MultiReader(&head, obj), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	thumb := imaging.Thumbnail(img, thumbnailSize, thumbnailSize, imaging.Lanczos)
	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, thumb, imaging.JPEG); err != nil {
		return "", fmt.Errorf("encode thumb: %w", err)
	}

	key := thumbnailKey(ns, filename)
	reader := bytes.NewReader(buf.Bytes())
	if _, err := s.store.PutObject(ctx, key, reader, int64(reader.Len()), "image/jpeg"); err != nil {
		return "", fmt.Errorf("upload thumb: %w", err)
	}
	return s.store.PresignGet(ctx, key, AccessURLTTL)
}

// dropThumbnail removes a thumbnail left behind by an earlier upload under
// the same name. Removing a missing key is not an error.
func (s *FileService) dropThumbnail(ctx context.Context, ns domain.TenantNamespace, filename string) {
	key := thumbnailKey(ns, filename)
	if err := s.store.RemoveObject(ctx, key); err != nil {
		commonlog.Warnf("remove stale thumbnail %s: %v", key, err)
	}
}
