package selfie

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/cuemby/timeclock/pkg/metrics"
	"github.com/disintegration/imaging"
)

const (
	// DefaultMaxDimension bounds the longest side of an uploaded selfie
	DefaultMaxDimension = 640

	jpegQuality = 85
	filename    = "selfie.jpg"
	contentType = "image/jpeg"
)

var (
	// ErrCaptureCancelled means the user closed the capture step without a picture
	ErrCaptureCancelled = errors.New("selfie capture cancelled")

	// ErrEmptyImage means the camera produced no data
	ErrEmptyImage = errors.New("selfie image is empty")
)

// Camera captures one still image. The capture device is released before Capture
// returns.
type Camera interface {
	Capture(ctx context.Context) ([]byte, error)
}

// Uploader hosts an image and returns its URL
type Uploader interface {
	UploadImage(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// FileCamera "captures" an image already written to disk by an external camera tool
type FileCamera struct {
	Path string
}

// Capture reads the image file
func (c FileCamera) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Path == "" {
		return nil, ErrCaptureCancelled
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read selfie: %w", err)
	}
	return data, nil
}

// CameraFunc adapts a function to Camera
type CameraFunc func(ctx context.Context) ([]byte, error)

// Capture calls f
func (f CameraFunc) Capture(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// Prepare decodes any supported image (JPEG, PNG, GIF, BMP, TIFF), applies EXIF
// orientation, shrinks it to fit maxDim and re-encodes it as JPEG
func Prepare(raw []byte, maxDim int) ([]byte, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyImage
	}
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode selfie: %w", err)
	}

	if tooLarge(img.Bounds(), maxDim) {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode selfie: %w", err)
	}
	return buf.Bytes(), nil
}

func tooLarge(b image.Rectangle, maxDim int) bool {
	return b.Dx() > maxDim || b.Dy() > maxDim
}

// Upload prepares the raw capture and uploads it, returning the hosted URL
func Upload(ctx context.Context, up Uploader, raw []byte, maxDim int) (string, error) {
	data, err := Prepare(raw, maxDim)
	if err != nil {
		return "", err
	}
	metrics.SelfieUploadBytes.Observe(float64(len(data)))

	url, err := up.UploadImage(ctx, filename, contentType, data)
	if err != nil {
		return "", fmt.Errorf("failed to upload selfie: %w", err)
	}
	return url, nil
}
