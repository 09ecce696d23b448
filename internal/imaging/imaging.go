// Package imaging prepares uploaded item photos for storage. Uploads
// are sniffed, bounded, downscaled and normalized to JPEG so the
// database never holds oversized or mislabeled blobs.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// MaxUploadBytes caps the raw upload size before decoding.
const MaxUploadBytes = 10 << 20

// MaxEdge is the longest allowed edge of a stored photo.
const MaxEdge = 1024

// jpegQuality is the re-encode quality for normalized photos.
const jpegQuality = 85

// ErrTooLarge is returned when the upload exceeds MaxUploadBytes.
var ErrTooLarge = fmt.Errorf("image exceeds %d bytes", MaxUploadBytes)

// allowedTypes lists the sniffed MIME types accepted as input.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Photo is a normalized item photo ready for storage.
type Photo struct {
	Data []byte
	MIME string
}

// Prepare validates an uploaded photo by sniffing its content type,
// downscales it so neither edge exceeds MaxEdge, and re-encodes it as
// JPEG. The client's declared content type is ignored.
func Prepare(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	detected := http.DetectContentType(data)
	if !allowedTypes[detected] {
		return nil, fmt.Errorf("unsupported image format %s, want JPEG or PNG", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img = fit(img, MaxEdge)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	return &Photo{Data: buf.Bytes(), MIME: "image/jpeg"}, nil
}

// fit scales the image down, preserving aspect ratio, so that neither
// edge exceeds maxEdge. Images already within bounds are returned as-is.
func fit(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}

	newW, newH := w, h
	if w > h {
		newW = maxEdge
		newH = int(float64(h) * float64(maxEdge) / float64(w))
	} else {
		newH = maxEdge
		newW = int(float64(w) * float64(maxEdge) / float64(h))
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
