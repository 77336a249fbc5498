package report

import (
	"cmp"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/scrapemapper/internal/model"
)

// MarkdownWriter outputs a crawl summary in Markdown.
type MarkdownWriter struct {
	baseWriter

	// maxTitleLen truncates page titles in the pages table.
	maxTitleLen int
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter:  newBaseWriter(output),
		maxTitleLen: 60,
	}
}

// Write outputs the summary.
func (w *MarkdownWriter) Write(sitemap *model.SiteMap) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := sitemap.Summarize()

	w.writeHeader(md, sitemap)
	w.writeLinkSummary(md, summary)
	w.writePages(md, sitemap)
	w.writeExternalHosts(md, sitemap)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, sitemap *model.SiteMap) {
	md.H1("Sitemap Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Root", "`" + sitemap.Root + "`"},
			{"Started", sitemap.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", sitemap.Duration().Round(timeRounding).String()},
			{"Pages", strconv.Itoa(len(sitemap.Pages))},
			{"Status", statusText(sitemap)},
		},
	})
	md.PlainText("")

	switch {
	case sitemap.Partial:
		md.Warningf("The crawl stopped early. %d page(s) were recorded before it ended.", len(sitemap.Pages))
		md.PlainText("")
	case len(sitemap.Pages) == 0:
		md.Note("No pages were retrieved. Check the root URL and the robots rules of the site.")
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeLinkSummary(md *markdown.Markdown, summary model.Summary) {
	md.H2("Links")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Category", "Count"},
		Rows: [][]string{
			{"Internal pages", strconv.Itoa(summary.InternalLinks)},
			{"External sites", strconv.Itoa(summary.ExternalLinks)},
			{"In-page anchors", strconv.Itoa(summary.PageLinks)},
			{"Media sources", strconv.Itoa(summary.MediaSources)},
			{"Distinct external targets", strconv.Itoa(summary.UniqueExternal)},
		},
	})
	md.PlainText("")

	if summary.InternalLinks+summary.ExternalLinks+summary.PageLinks == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Link Categories"),
		piechart.WithShowData(true),
	)
	if summary.InternalLinks > 0 {
		chart.LabelAndIntValue("Internal", uint64(summary.InternalLinks)) //nolint:gosec // count is non-negative
	}
	if summary.ExternalLinks > 0 {
		chart.LabelAndIntValue("External", uint64(summary.ExternalLinks)) //nolint:gosec // count is non-negative
	}
	if summary.PageLinks > 0 {
		chart.LabelAndIntValue("Anchor", uint64(summary.PageLinks)) //nolint:gosec // count is non-negative
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, sitemap *model.SiteMap) {
	md.H2("Pages")
	md.PlainText("")

	if len(sitemap.Pages) == 0 {
		md.PlainText("No pages.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(sitemap.Pages))
	for _, p := range sitemap.Pages {
		title := p.Title
		if title == "" {
			title = "-"
		}
		rows = append(rows, []string{
			p.URL,
			truncateString(title, w.maxTitleLen),
			strconv.Itoa(len(p.InternalLinks)),
			strconv.Itoa(len(p.ExternalLinks)),
			strconv.Itoa(len(p.PageLinks)),
			strconv.Itoa(len(p.MediaSources)),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Title", "Internal", "External", "Anchors", "Media"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeExternalHosts(md *markdown.Markdown, sitemap *model.SiteMap) {
	hosts := externalHosts(sitemap)
	if len(hosts) == 0 {
		return
	}

	md.H2("External Sites")
	md.PlainText("")

	items := make([]string, 0, len(hosts))
	for _, h := range hosts {
		items = append(items, fmt.Sprintf("%s (%d)", h.host, h.count))
	}
	md.BulletList(items...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by scrapemapper*")
}

// hostCount is the number of external links pointing at one host.
type hostCount struct {
	host  string
	count int
}

// externalHosts counts external links per host, most linked first.
func externalHosts(sitemap *model.SiteMap) []hostCount {
	counts := make(map[string]int)
	for _, p := range sitemap.Pages {
		for _, l := range p.ExternalLinks {
			host := l.Target
			if u, err := url.Parse(l.Target); err == nil && u.Host != "" {
				host = u.Host
			}
			counts[host]++
		}
	}

	hosts := make([]hostCount, 0, len(counts))
	for h, n := range counts {
		hosts = append(hosts, hostCount{host: h, count: n})
	}
	slices.SortFunc(hosts, func(a, b hostCount) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.host, b.host)
	})
	return hosts
}

func statusText(sitemap *model.SiteMap) string {
	if sitemap.Partial {
		return "Partial"
	}
	return "Complete"
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
