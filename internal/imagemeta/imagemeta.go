package imagemeta

import (
	"fmt"
	"image"
	"os"

	"github.com/rwcarlsen/goexif/exif"

	// Register decoders for image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Orientation tag values applied to image files. Square images receive
// neither.
const (
	TagLandscape = "landscape"
	TagPortrait  = "portrait"
)

// Dimensions returns the stored width and height of an image file, read from
// its header without decoding pixel data.
func Dimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image header of %q: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// Orientation returns the EXIF orientation of an image file, 1 through 8.
// Files without usable EXIF data report the default orientation 1.
func Orientation(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 1
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// DisplayDimensions returns the width and height of an image as displayed:
// EXIF orientations 5 through 8 rotate by 90 degrees, swapping the stored
// axes.
func DisplayDimensions(path string) (int, int, error) {
	w, h, err := Dimensions(path)
	if err != nil {
		return 0, 0, err
	}
	if Orientation(path) >= 5 {
		w, h = h, w
	}
	return w, h, nil
}

// OrientationTag classifies an image as landscape or portrait from its
// display dimensions. Square images return "".
func OrientationTag(path string) (string, error) {
	w, h, err := DisplayDimensions(path)
	if err != nil {
		return "", err
	}
	switch {
	case w > h:
		return TagLandscape, nil
	case h > w:
		return TagPortrait, nil
	default:
		return "", nil
	}
}
