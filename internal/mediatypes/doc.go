// Package mediatypes provides extension-based classification of media files.
//
// It is a dependency-free foundation that other packages can import without
// creating import cycles. Files are classified as one of three types:
//
//	mediatypes.TypeImage // Still images, including raw camera formats
//	mediatypes.TypeVideo // Video files
//	mediatypes.TypeOther // Everything else
//
// Classification is case-insensitive and based solely on the file extension:
//
//	t := mediatypes.TypeOf("IMG_0001.CR2") // TypeImage
//
// The extension maps (ImageExtensions, VideoExtensions) can be used directly
// for validation or iteration.
package mediatypes
