// Package media inspects uploaded files before they are stored.
//
// Songs are accepted by file extension alone; images are decoded far enough
// to read their format and dimensions (image.DecodeConfig reads the header,
// not the pixels, so a huge image costs no memory to reject).
package media

import (
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	// Registering decoders: each import adds its format to image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxImageDimension is the largest width or height accepted for a profile picture.
const MaxImageDimension = 512

// AudioExtension is the only accepted song file type.
const AudioExtension = ".mp3"

// ErrNotImage is returned by InspectImage when the data is not an image in a
// registered format.
var ErrNotImage = errors.New("media: not a supported image")

// ImageInfo describes an uploaded image.
type ImageInfo struct {
	Width  int
	Height int
	Format string // "png", "jpeg", "gif", "webp", "bmp"
}

// Extension returns the file extension to store the image under.
func (i ImageInfo) Extension() string {
	if i.Format == "jpeg" {
		return ".jpg"
	}
	return "." + i.Format
}

// Fits reports whether neither side exceeds max pixels.
func (i ImageInfo) Fits(max int) bool {
	return i.Width <= max && i.Height <= max
}

// IsMP3 reports whether filename has the .mp3 extension, ignoring case.
func IsMP3(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), AudioExtension)
}

// InspectImage reads the image header from r.
func InspectImage(r io.Reader) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	return ImageInfo{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}
