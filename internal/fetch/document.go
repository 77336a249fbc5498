package fetch

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Anchor is an <a href> element of a document.
type Anchor struct {
	// Href is the href attribute resolved to an absolute URL. When the
	// value cannot be resolved it is kept as written.
	Href string

	// Text is the anchor's text content.
	Text string
}

// Document is a parsed page.
type Document struct {
	// URL is the location the document was retrieved from.
	URL string

	// Title is the text of the <title> element with whitespace collapsed.
	Title string

	// Anchors are the <a href> elements in document order.
	Anchors []Anchor

	// Sources are the resolved src attributes of all elements carrying
	// one (img, script, iframe, source, ...) in document order.
	Sources []string
}

// Parse builds a Document from HTML read from r.
// Relative references are resolved against base, or against the
// document's <base href> when it has one.
func Parse(r io.Reader, base string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			baseURL = baseURL.ResolveReference(ref)
		}
	}

	result := &Document{
		URL:     base,
		Title:   collapseSpace(doc.Find("title").Text()),
		Anchors: make([]Anchor, 0),
		Sources: make([]string, 0),
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		result.Anchors = append(result.Anchors, Anchor{
			Href: resolve(baseURL, href),
			Text: collapseSpace(s.Text()),
		})
	})

	doc.Find("[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if strings.TrimSpace(src) == "" {
			return
		}
		result.Sources = append(result.Sources, resolve(baseURL, src))
	})

	return result, nil
}

// resolve returns ref as an absolute URL relative to base.
// An empty ref resolves to base itself.
func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
