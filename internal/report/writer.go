package report

import (
	"io"

	"github.com/nao1215/scrapemapper/internal/model"
)

// Writer renders a SiteMap.
type Writer interface {
	// Write outputs the sitemap and returns the number of bytes written.
	Write(sitemap *model.SiteMap) (int, error)
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the sitemap to every Writer and stops at the first error.
func (m *MultiWriter) Write(sitemap *model.SiteMap) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(sitemap)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
