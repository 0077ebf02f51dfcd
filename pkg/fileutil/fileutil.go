package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chunkytofustudios/analytics-gate/pkg/failure"
)

// GetFileExtension extracts the lowercased file extension from a path, or empty string if none
func GetFileExtension(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// RequireDir checks that dir exists and is a directory.
func RequireDir(dir string) failure.ClassifiedError {
	info, err := os.Stat(dir)
	if err != nil {
		return &FileError{
			Message:   fmt.Sprintf("%v", err),
			Retryable: false,
			Cause:     ErrCausePathError,
		}
	}
	if !info.IsDir() {
		return &FileError{
			Message:   fmt.Sprintf("%s is not a directory", dir),
			Retryable: false,
			Cause:     ErrCauseNotDirectory,
		}
	}
	return nil
}
