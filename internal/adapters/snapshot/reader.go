package snapshot

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	domain "frontporch/internal/domain/snapshot"
)

// FormatAuto picks html or json from the file extension, then the content.
const FormatAuto = "auto"

// Read decodes records in the given format (FormatAuto, domain.FormatHTML or domain.FormatJSON).
func Read(r io.Reader, format string) ([]domain.Record, error) {
	br := bufio.NewReader(r)
	if format == FormatAuto || format == "" {
		format = sniff(br)
	}
	switch format {
	case domain.FormatHTML:
		return ParseHTML(br)
	case domain.FormatJSON:
		return domain.DecodeJSON(br)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFormat, format)
	}
}

// ReadFile opens path and decodes it. A missing file yields an error
// satisfying errors.Is(err, os.ErrNotExist).
func ReadFile(path, format string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if format == FormatAuto || format == "" {
		format = formatFromExt(path)
	}
	return Read(f, format)
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return domain.FormatJSON
	case ".html", ".htm":
		return domain.FormatHTML
	}
	return FormatAuto
}

// sniff looks at the first non-space byte: '{' means JSON, anything else HTML.
func sniff(br *bufio.Reader) string {
	head, _ := br.Peek(512)
	trimmed := bytes.TrimLeft(head, " \t\r\n\ufeff")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return domain.FormatJSON
	}
	return domain.FormatHTML
}
