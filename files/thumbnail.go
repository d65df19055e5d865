package files

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	thumbnailWidth   = 320
	thumbnailQuality = 80
)

// MakeThumbnail decodes src, scales it down to at most thumbnailWidth and
// stores the JPEG result next to the original as <base>_thumb.jpg. This is
// opt-in; by default the thumbnail field simply aliases the original image.
func MakeThumbnail(ctx context.Context, store Store, src io.Reader, originalName string) (string, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > thumbnailWidth {
		newH := h * thumbnailWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, thumbnailWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}

	ext := filepath.Ext(originalName)
	name := strings.TrimSuffix(originalName, ext) + "_thumb.jpg"
	if err := store.Save(ctx, name, &buf); err != nil {
		return "", fmt.Errorf("store thumbnail: %w", err)
	}
	return name, nil
}
