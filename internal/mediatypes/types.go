package mediatypes

import (
	"path/filepath"
	"strings"
)

// MediaType classifies a file by its extension.
type MediaType string

const (
	// TypeImage represents a still image, including raw camera formats.
	TypeImage MediaType = "image"
	// TypeVideo represents a video file.
	TypeVideo MediaType = "video"
	// TypeOther represents any file that is neither an image nor a video.
	TypeOther MediaType = "other"
)

// ImageExtensions maps lowercase file extensions to whether they are
// recognized image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".webp": true,
	".heic": true,
	".heif": true,

	// Raw camera formats
	".raw": true,
	".cr2": true,
	".cr3": true,
	".nef": true,
	".arw": true,
	".orf": true,
	".rw2": true,
	".dng": true,
	".raf": true,
}

// VideoExtensions maps lowercase file extensions to whether they are
// recognized video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".3gp":  true,
	".mts":  true,
	".m2ts": true,
}

// TypeOf returns the media type for a filename based on its extension.
// The extension comparison is case-insensitive.
func TypeOf(name string) MediaType {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ImageExtensions[ext]:
		return TypeImage
	case VideoExtensions[ext]:
		return TypeVideo
	default:
		return TypeOther
	}
}

// IsImage reports whether the filename has a recognized image extension.
func IsImage(name string) bool {
	return TypeOf(name) == TypeImage
}

// IsVideo reports whether the filename has a recognized video extension.
func IsVideo(name string) bool {
	return TypeOf(name) == TypeVideo
}

// IsMedia reports whether the filename is an image or a video.
func IsMedia(name string) bool {
	t := TypeOf(name)
	return t == TypeImage || t == TypeVideo
}
