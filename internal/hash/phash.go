package hash

import (
	"fmt"
	"image"
	"math/bits"

	"github.com/disintegration/imaging"

	// Register the WebP decoder for image.Decode.
	_ "golang.org/x/image/webp"
)

// PreviewSource resolves an image path to an already-downscaled preview.
// Hashing a preview avoids decoding the full-size original.
type PreviewSource interface {
	// Preview returns the path of a cached preview for the image, and
	// whether one exists.
	Preview(path string) (string, bool)
}

// Perceptual computes the 64-bit difference hash of an image.
//
// The image is resized to exactly 9x8 and converted to grayscale; each hash
// bit compares a pixel with its right neighbor. Bit y*8+x is set when the
// pixel at (x, y) is strictly brighter than the pixel at (x+1, y). Hashes are
// comparable across library versions, so this layout must not change.
func Perceptual(img image.Image) uint64 {
	small := imaging.Grayscale(imaging.Resize(img, 9, 8, imaging.Lanczos))

	var h uint64
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			left := small.NRGBAAt(x, y).R
			right := small.NRGBAAt(x+1, y).R
			if left > right {
				h |= 1 << uint(y*8+x)
			}
		}
	}
	return h
}

// PerceptualFile computes the difference hash of an image file, honoring its
// EXIF orientation. When previews is non-nil and has a cached preview for the
// path, the preview is decoded instead of the original.
func PerceptualFile(path string, previews PreviewSource) (uint64, error) {
	src := path
	if previews != nil {
		if p, ok := previews.Preview(path); ok {
			src = p
		}
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return 0, fmt.Errorf("failed to decode %q: %w", src, err)
	}
	return Perceptual(img), nil
}

// Distance returns the Hamming distance between two perceptual hashes: the
// number of bit positions at which they differ, 0 through 64.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
