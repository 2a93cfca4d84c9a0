// Package extract turns uploaded files into plain text.
//
// Plain text files are decoded as UTF-8. PDF files are converted with the
// pdftotext utility from poppler, run as an external command.
package extract

import (
	"context"
	"path/filepath"
	"strings"

	"papertalk/internal/domain"
)

// Supported file extensions, lower case with the leading dot.
const (
	ExtText = ".txt"
	ExtPDF  = ".pdf"
)

// Extractor dispatches on the file extension.
type Extractor struct {
	runner CommandRunner
}

// New creates an extractor. A nil runner uses ExecRunner.
func New(runner CommandRunner) *Extractor {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Extractor{runner: runner}
}

// Supported reports whether filename has an extension this package handles.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ExtText, ExtPDF:
		return true
	}
	return false
}

// Extract returns the text content of data. It fails with
// ErrUnsupportedFileType for unknown extensions and ErrExtractionFailed
// when the file is corrupt or holds no text.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ExtText:
		text = decodeText(data)
	case ExtPDF:
		text, err = e.extractPDF(ctx, data)
		if err != nil {
			return "", domain.Classify(domain.ErrExtractionFailed, "extract", err)
		}
	default:
		return "", domain.Errorf(domain.ErrUnsupportedFileType, "extract", "%q: only %s and %s files are accepted", filename, ExtPDF, ExtText)
	}

	if strings.TrimSpace(text) == "" {
		return "", domain.Errorf(domain.ErrExtractionFailed, "extract", "%q contains no text", filename)
	}
	return text, nil
}
