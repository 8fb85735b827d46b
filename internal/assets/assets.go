// Package assets reads static files below the served root and guesses
// their content type.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrNotFound = errors.New("assets: not found")

// Reader loads the file at a slash-separated path relative to the root.
type Reader interface {
	Read(name string) ([]byte, error)
}

// DirReader reads files from a directory on disk.
type DirReader struct {
	Root string
}

func (d DirReader) Read(name string) ([]byte, error) {
	full := filepath.Join(d.Root, filepath.FromSlash(name))
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, full)
		}
		return nil, fmt.Errorf("read %s: %w", full, err)
	}
	return data, nil
}

// Resolve maps a request path to a root-relative file name. Directory paths
// (ending in "/") map to their index.html, and ".." cannot climb above the
// root.
func Resolve(urlPath string) string {
	name := path.Clean("/" + urlPath)
	if name == "/" || strings.HasSuffix(urlPath, "/") {
		name = path.Join(name, "index.html")
	}
	return strings.TrimPrefix(name, "/")
}

// Guess returns the content type for name based on its extension,
// falling back to text/plain.
func Guess(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "text/plain"
}

// IsHTML reports whether contentType names an HTML document.
func IsHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html"
}
