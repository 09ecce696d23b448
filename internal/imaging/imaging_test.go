package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePhoto(t *testing.T, w, h int, asPNG bool) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{200, 30, 30, 255})
		}
	}
	var buf bytes.Buffer
	var err error
	if asPNG {
		err = png.Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func TestPrepareJPEG(t *testing.T) {
	photo, err := Prepare(bytes.NewReader(encodePhoto(t, 100, 100, false)))
	if err != nil {
		t.Fatalf("Prepare JPEG: %v", err)
	}
	if photo.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", photo.MIME)
	}
	if len(photo.Data) == 0 {
		t.Error("expected non-empty data")
	}
}

func TestPreparePNGNormalizedToJPEG(t *testing.T) {
	photo, err := Prepare(bytes.NewReader(encodePhoto(t, 100, 100, true)))
	if err != nil {
		t.Fatalf("Prepare PNG: %v", err)
	}
	if photo.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", photo.MIME)
	}
}

func TestPrepareDownscalesLargePhoto(t *testing.T) {
	photo, err := Prepare(bytes.NewReader(encodePhoto(t, 2048, 1024, false)))
	if err != nil {
		t.Fatalf("Prepare large image: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(photo.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > MaxEdge || bounds.Dy() > MaxEdge {
		t.Errorf("expected max edge %d, got %dx%d", MaxEdge, bounds.Dx(), bounds.Dy())
	}
	if bounds.Dx() != 1024 || bounds.Dy() != 512 {
		t.Errorf("expected aspect ratio preserved at 1024x512, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestPrepareKeepsSmallPhoto(t *testing.T) {
	photo, err := Prepare(bytes.NewReader(encodePhoto(t, 50, 50, false)))
	if err != nil {
		t.Fatalf("Prepare small image: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(photo.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 50 || bounds.Dy() != 50 {
		t.Errorf("small image should not be resized: got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestPrepareRejectsNonImage(t *testing.T) {
	if _, err := Prepare(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestPrepareRejectsGIF(t *testing.T) {
	if _, err := Prepare(bytes.NewReader([]byte("GIF89a..."))); err == nil {
		t.Error("expected error for GIF")
	}
}
