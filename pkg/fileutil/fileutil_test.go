package fileutil_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chunkytofustudios/analytics-gate/pkg/fileutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFileExtension(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{name: "html page", path: "/beehive/index.html", expected: "html"},
		{name: "uppercase extension", path: "/assets/LOGO.PNG", expected: "png"},
		{name: "multiple dots", path: "/assets/index.abc123.js", expected: "js"},
		{name: "no extension", path: "/pixel-buddy", expected: ""},
		{name: "root", path: "/", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, fileutil.GetFileExtension(tt.path))
		})
	}
}

func TestRequireDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(file, []byte("<html></html>"), 0o644))

	assert.Nil(t, fileutil.RequireDir(dir))

	err := fileutil.RequireDir(file)
	require.NotNil(t, err)
	var fileErr *fileutil.FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, fileutil.ErrCauseNotDirectory, fileErr.Cause)

	err = fileutil.RequireDir(filepath.Join(dir, "missing"))
	require.NotNil(t, err)
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, fileutil.ErrCausePathError, fileErr.Cause)
}
