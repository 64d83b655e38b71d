package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/w-h-a/lio/extractor"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeJSON = "application/json"
)

type fileExtractor struct {
	maxBytes int64
}

// Extract detects the file type from its content and returns its text.
// PDF, DOCX and text files are supported.
func (e *fileExtractor) Extract(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", extractor.ErrNotFound, path)
	}
	if err != nil {
		return "", err
	}

	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", extractor.ErrUnsupportedFormat, path)
	}

	if e.maxBytes > 0 && info.Size() > e.maxBytes {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", extractor.ErrUnsupportedFormat, path, e.maxBytes)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	parse, kind := detect(data, path)
	if parse == nil {
		return "", fmt.Errorf("%w: %s", extractor.ErrUnsupportedFormat, kind)
	}

	text, err := parse(data)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", kind, err)
	}

	return text, nil
}

func detect(data []byte, path string) (parser, string) {
	mtype := mimetype.Detect(data)

	switch {
	case mtype.Is(mimePDF):
		return parsePDF, mimePDF
	case mtype.Is(mimeDOCX):
		return parseDOCX, mimeDOCX
	case strings.HasPrefix(mtype.String(), "text/"), mtype.Is(mimeJSON):
		return parseText, mtype.String()
	}

	// zip containers and empty files fall back to the extension
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		if mtype.Is("application/zip") {
			return parseDOCX, mimeDOCX
		}
	case ".txt", ".md":
		if len(data) == 0 {
			return parseText, "text/plain"
		}
	}

	return nil, mtype.String()
}

func NewExtractor(maxBytes int64) extractor.Extractor {
	return &fileExtractor{
		maxBytes: maxBytes,
	}
}
