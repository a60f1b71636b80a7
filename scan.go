package icat

import (
	"fmt"
	"io/fs"
	"mime"
	"path/filepath"
	"strings"
)

// Extensions the stdlib mime table does not know about.
var extraImageTypes = map[string]string{
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// mimeType returns the MIME type guessed from the file extension.
func mimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mt, ok := extraImageTypes[ext]; ok {
		return mt
	}
	return mime.TypeByExtension(ext)
}

// IsImagePath reports whether the path looks like an image file, judged by
// its extension.
func IsImagePath(path string) bool {
	return strings.HasPrefix(mimeType(path), "image/")
}

// IsSVG reports whether the path is an SVG file, which takes the external
// rasterizer route instead of the image decoder.
func IsSVG(path string) bool {
	return mimeType(path) == "image/svg+xml"
}

// Scan walks root recursively and returns every recognized image file, in
// walk order.
func Scan(root string) ([]string, error) {
	var items []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if IsImagePath(path) {
			items = append(items, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return items, nil
}
