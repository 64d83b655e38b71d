package file

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/w-h-a/lio/extractor"
)

func write(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestExtractText(t *testing.T) {
	path := write(t, "notes.txt", []byte("The sky is blue.\nGrass is green."))

	text, err := NewExtractor(0).Extract(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "The sky is blue.\nGrass is green.", text)
}

func TestExtractDOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.docx")

	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)

	ct, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`))
	require.NoError(t, err)

	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>The sky </w:t></w:r><w:r><w:t>is blue.</w:t></w:r></w:p>
<w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>
</w:body>
</w:document>`))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	text, err := NewExtractor(0).Extract(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "The sky is blue.\nSecond paragraph.", text)
}

func TestExtractNotFound(t *testing.T) {
	_, err := NewExtractor(0).Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	require.ErrorIs(t, err, extractor.ErrNotFound)
}

func TestExtractUnsupported(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	path := write(t, "image.png", png)

	_, err := NewExtractor(0).Extract(context.Background(), path)
	require.ErrorIs(t, err, extractor.ErrUnsupportedFormat)
}

func TestExtractTooLarge(t *testing.T) {
	path := write(t, "big.txt", []byte("0123456789"))

	_, err := NewExtractor(4).Extract(context.Background(), path)
	require.ErrorIs(t, err, extractor.ErrUnsupportedFormat)
}
