package hash

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

// gradient builds an image whose brightness increases (or decreases) from
// left to right.
func gradient(w, h int, descending bool) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / (w - 1))
			if descending {
				v = 255 - v
			}
			img.Set(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	return img
}

func uniform(w, h int, v uint8) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	return img
}

func TestPerceptualGradients(t *testing.T) {
	// Ascending brightness: no pixel is brighter than its right neighbor.
	if h := Perceptual(gradient(90, 80, false)); h != 0 {
		t.Errorf("ascending gradient hash = %#x, want 0", h)
	}
	// Descending brightness: every pixel is brighter than its right neighbor.
	if h := Perceptual(gradient(90, 80, true)); h != ^uint64(0) {
		t.Errorf("descending gradient hash = %#x, want all bits set", h)
	}
	// Flat images have no strict brightness steps.
	if h := Perceptual(uniform(64, 64, 128)); h != 0 {
		t.Errorf("uniform image hash = %#x, want 0", h)
	}
}

func TestPerceptualScaleInvariant(t *testing.T) {
	small := Perceptual(gradient(90, 80, true))
	large := Perceptual(gradient(900, 800, true))
	if small != large {
		t.Errorf("hash differs across scales: %#x vs %#x", small, large)
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want int
	}{
		{"identical", 0xdeadbeef, 0xdeadbeef, 0},
		{"single bit", 0, 1, 1},
		{"two bits", 0b0000, 0b0011, 2},
		{"all bits", 0, ^uint64(0), 64},
		{"high bits", 1 << 63, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); got != tt.want {
				t.Errorf("Distance(%#x, %#x) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := Distance(tt.b, tt.a); got != tt.want {
				t.Errorf("Distance is not symmetric for %#x, %#x", tt.a, tt.b)
			}
		})
	}
}

func TestPerceptualOppositeGradientsFarApart(t *testing.T) {
	a := Perceptual(gradient(90, 80, false))
	b := Perceptual(gradient(90, 80, true))
	if d := Distance(a, b); d != 64 {
		t.Errorf("opposite gradients distance = %d, want 64", d)
	}
}

type fakePreviews struct {
	preview string
}

func (f *fakePreviews) Preview(string) (string, bool) {
	return f.preview, f.preview != ""
}

func TestPerceptualFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grad.png")
	if err := imaging.Save(imaging.Clone(gradient(90, 80, true)), path); err != nil {
		t.Fatal(err)
	}

	h, err := PerceptualFile(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if h != ^uint64(0) {
		t.Errorf("file hash = %#x, want all bits set", h)
	}

	if _, err := PerceptualFile(filepath.Join(dir, "missing.png"), nil); err == nil {
		t.Error("hashing a missing image should fail")
	}
}

func TestPerceptualFileUsesPreview(t *testing.T) {
	dir := t.TempDir()
	preview := filepath.Join(dir, "preview.png")
	if err := imaging.Save(imaging.Clone(gradient(90, 80, false)), preview); err != nil {
		t.Fatal(err)
	}

	// The original does not exist; the preview must be decoded instead.
	h, err := PerceptualFile(filepath.Join(dir, "original.jpg"), &fakePreviews{preview: preview})
	if err != nil {
		t.Fatal(err)
	}
	if h != 0 {
		t.Errorf("preview hash = %#x, want 0", h)
	}
}
