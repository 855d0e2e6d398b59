package util

import (
	"errors"
	"path/filepath"
	"strings"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".heic": true,
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".m4v":  true,
}

// IsValidImageFile reports whether the filename carries a known image
// extension.
func IsValidImageFile(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}

// IsValidVideoFile reports whether the filename carries a known video
// extension.
func IsValidVideoFile(filename string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ValidateFilename checks a client-supplied display filename. Path
// separators are rejected outright since the name ends up in S3 metadata.
func ValidateFilename(filename string) error {
	switch {
	case filename == "":
		return errors.New("filename is required")
	case strings.ContainsAny(filename, `/\`):
		return errors.New("filename cannot contain directory paths")
	case len(filename) > 255:
		return errors.New("filename too long (max 255 characters)")
	}
	return nil
}
