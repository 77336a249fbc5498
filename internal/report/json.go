package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/scrapemapper/internal/model"
)

// DefaultFileName is the sitemap file written to the working directory.
const DefaultFileName = "sitemap.json"

// Schema selects how links are serialized.
type Schema int

const (
	// SchemaFlat writes every link list as an array of URL strings.
	SchemaFlat Schema = 1

	// SchemaLinks writes link objects with target, label and category.
	SchemaLinks Schema = 2
)

// flatPage is the SchemaFlat shape of a page.
type flatPage struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	InternalLinks []string `json:"internalLinks"`
	ExternalLinks []string `json:"externalLinks"`
	PageLinks     []string `json:"pageLinks"`
	MediaSources  []string `json:"mediaSources"`
}

func newFlatPage(p *model.Page) flatPage {
	media := p.MediaSources
	if media == nil {
		media = []string{}
	}
	return flatPage{
		URL:           p.URL,
		Title:         p.Title,
		InternalLinks: targets(p.InternalLinks),
		ExternalLinks: targets(p.ExternalLinks),
		PageLinks:     targets(p.PageLinks),
		MediaSources:  media,
	}
}

func targets(links []model.Link) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.Target)
	}
	return out
}

// JSONWriter writes the pages of a sitemap as a JSON array.
type JSONWriter struct {
	baseWriter

	// schema selects the link representation.
	schema Schema

	// indent enables pretty-printed output.
	indent bool

	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithSchema selects the link representation. Unknown values are ignored.
func WithSchema(schema Schema) JSONWriterOption {
	return func(w *JSONWriter) {
		if schema == SchemaFlat || schema == SchemaLinks {
			w.schema = schema
		}
	}
}

// WithFlatLinks selects SchemaFlat when flat is true.
func WithFlatLinks(flat bool) JSONWriterOption {
	return func(w *JSONWriter) {
		if flat {
			w.schema = SchemaFlat
		}
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
// The default schema is SchemaLinks.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
		schema:     SchemaLinks,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the sitemap pages followed by a newline.
func (w *JSONWriter) Write(sitemap *model.SiteMap) (int, error) {
	data, err := w.Marshal(sitemap.Pages)
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}

// Marshal serializes pages with the writer's settings.
func (w *JSONWriter) Marshal(pages []*model.Page) ([]byte, error) {
	var v any
	if w.schema == SchemaFlat {
		flat := make([]flatPage, 0, len(pages))
		for _, p := range pages {
			flat = append(flat, newFlatPage(p))
		}
		v = flat
	} else {
		if pages == nil {
			pages = []*model.Page{}
		}
		v = pages
	}

	if w.indent {
		return json.MarshalIndent(v, w.indentPrefix, w.indentString)
	}
	return json.Marshal(v)
}

// MarshalPages serializes pages compactly with SchemaLinks.
func MarshalPages(pages []*model.Page) ([]byte, error) {
	return NewJSONWriter(io.Discard).Marshal(pages)
}

// WriteFile writes the sitemap to path, replacing any existing file.
// The data is written to a temporary file in the same directory first so
// a failed run never leaves a truncated sitemap behind.
func WriteFile(path string, sitemap *model.SiteMap, opts ...JSONWriterOption) error {
	data, err := NewJSONWriter(io.Discard, opts...).Marshal(sitemap.Pages)
	if err != nil {
		return fmt.Errorf("failed to serialize sitemap: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".sitemap-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck
		return fmt.Errorf("failed to write sitemap: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write sitemap: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // sitemap is not secret
		return fmt.Errorf("failed to set sitemap permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
