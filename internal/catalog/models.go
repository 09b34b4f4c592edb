package catalog

import "mediacat/internal/mediatypes"

// Directory is a row in the directories table. Path is relative to the
// library root with forward slashes; the root itself is stored as "".
type Directory struct {
	ID       int64
	Path     string
	ParentID *int64
	Rating   *int
	Mtime    *int64
}

// File is a row in the files table. Nil pointer fields map to NULL columns.
type File struct {
	ID             int64
	DirectoryID    int64
	Filename       string
	Size           int64
	Mtime          int64
	Hash           *string
	PerceptualHash *uint64
	Width          *int
	Height         *int
	Rating         *int
	MediaType      mediatypes.MediaType
}

// FileWithPath is a file joined with its root-relative path.
type FileWithPath struct {
	File
	Path string
}

func mediaTypeFromString(s string) mediatypes.MediaType {
	switch s {
	case "image":
		return mediatypes.TypeImage
	case "video":
		return mediatypes.TypeVideo
	default:
		return mediatypes.TypeOther
	}
}

// JoinPath joins a directory path and a filename into a root-relative file
// path. The root directory's path is "", so root-level files join to just
// their filename.
func JoinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
