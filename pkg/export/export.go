package export

import (
	"fmt"
	"strings"
)

// Format identifies a supported export encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat normalises a user supplied format, defaulting to CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

// Document is a rendered export ready to be streamed.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Renderer produces a document body for a dataset.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
}

// Render encodes data in the requested format. baseName is used for the
// suggested download filename.
func Render(format Format, baseName string, data Dataset) (*Document, error) {
	var renderer Renderer
	switch format {
	case FormatCSV:
		renderer = NewCSVExporter()
	case FormatPDF:
		renderer = NewPDFExporter()
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}

	body, err := renderer.Render(data)
	if err != nil {
		return nil, err
	}

	return &Document{
		Filename:    fmt.Sprintf("%s.%s", baseName, format),
		ContentType: format.ContentType(),
		Content:     body,
	}, nil
}
