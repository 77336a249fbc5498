package report

import (
	"io"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/scrapemapper/internal/model"
)

// timeRounding is the precision of durations in human readable output.
const timeRounding = 10 * time.Millisecond

// SimpleWriter outputs a plain text crawl summary for the terminal.
type SimpleWriter struct {
	baseWriter

	// verbose lists every page with its link counts.
	verbose bool

	// printer formats numbers for the configured language.
	printer *message.Printer

	// caser title-cases category names.
	caser cases.Caser
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every page in the output.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithLanguage formats numbers for tag, e.g. language.German prints 1.234.
func WithLanguage(tag language.Tag) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.printer = message.NewPrinter(tag)
		w.caser = cases.Title(tag)
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		printer:    message.NewPrinter(language.English),
		caser:      cases.Title(language.English),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary.
func (w *SimpleWriter) Write(sitemap *model.SiteMap) (int, error) {
	var sb strings.Builder
	summary := sitemap.Summarize()

	w.writeHeader(&sb, sitemap)
	w.writeSummary(&sb, summary)
	if w.verbose {
		w.writePages(&sb, sitemap)
	}

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, sitemap *model.SiteMap) {
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString(w.printer.Sprintf("Sitemap: %s\n", sitemap.Root))
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString(w.printer.Sprintf("Pages:     %d\n", len(sitemap.Pages)))
	sb.WriteString(w.printer.Sprintf("Duration:  %s\n", sitemap.Duration().Round(timeRounding)))
	if sitemap.Partial {
		sb.WriteString("Status:    Partial (crawl stopped early)\n")
	} else {
		sb.WriteString("Status:    Complete\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, summary model.Summary) {
	rows := []struct {
		label string
		count int
	}{
		{model.InternalPage.String(), summary.InternalLinks},
		{model.ExternalSite.String(), summary.ExternalLinks},
		{model.InPageAnchor.String(), summary.PageLinks},
		{"media", summary.MediaSources},
	}
	for _, r := range rows {
		sb.WriteString(w.printer.Sprintf("  %-10s %8d\n", w.caser.String(r.label), r.count))
	}
	sb.WriteString(w.printer.Sprintf("  %-10s %8d\n", w.caser.String("distinct external"), summary.UniqueExternal))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writePages(sb *strings.Builder, sitemap *model.SiteMap) {
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	for _, p := range sitemap.Pages {
		title := p.Title
		if title == "" {
			title = "(untitled)"
		}
		sb.WriteString(w.printer.Sprintf("%s\n  %s\n  internal %d, external %d, anchors %d, media %d\n",
			p.URL, title,
			len(p.InternalLinks), len(p.ExternalLinks), len(p.PageLinks), len(p.MediaSources),
		))
	}
}
