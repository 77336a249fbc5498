package model

// Page is the record produced for one successfully retrieved URL.
//
// A Page is filled in completely by the crawler before it is appended to a
// SiteMap and is not modified afterwards. Within one Page a target appears
// at most once: AddLink and AddSource silently ignore repeats.
type Page struct {
	// URL is the crawled URL and the identity of the record.
	URL string `json:"url"`

	// Title is the document title. Empty when the document has none.
	Title string `json:"title"`

	// InternalLinks are links to other pages of the root site, in discovery order.
	InternalLinks []Link `json:"internalLinks"`

	// ExternalLinks are links leaving the root site, in discovery order.
	ExternalLinks []Link `json:"externalLinks"`

	// PageLinks are in-page anchors of the root page, in discovery order.
	PageLinks []Link `json:"pageLinks"`

	// MediaSources are absolute URLs of referenced resources (images,
	// scripts, frames and so on), in discovery order.
	MediaSources []string `json:"mediaSources"`

	links   map[string]struct{}
	sources map[string]struct{}
}

// NewPage returns an empty Page for url.
func NewPage(url string) *Page {
	return &Page{
		URL:           url,
		InternalLinks: make([]Link, 0),
		ExternalLinks: make([]Link, 0),
		PageLinks:     make([]Link, 0),
		MediaSources:  make([]string, 0),
		links:         make(map[string]struct{}),
		sources:       make(map[string]struct{}),
	}
}

// AddLink appends link to the list matching its category.
// It returns false when the target was already recorded on this page.
func (p *Page) AddLink(link Link) bool {
	p.ensureIndex()
	if _, ok := p.links[link.Target]; ok {
		return false
	}

	switch link.Category {
	case InternalPage:
		p.InternalLinks = append(p.InternalLinks, link)
	case ExternalSite:
		p.ExternalLinks = append(p.ExternalLinks, link)
	case InPageAnchor:
		p.PageLinks = append(p.PageLinks, link)
	default:
		return false
	}
	p.links[link.Target] = struct{}{}
	return true
}

// AddSource appends a media source URL.
// It returns false for an empty src or one already recorded on this page.
func (p *Page) AddSource(src string) bool {
	if src == "" {
		return false
	}
	p.ensureIndex()
	if _, ok := p.sources[src]; ok {
		return false
	}
	p.MediaSources = append(p.MediaSources, src)
	p.sources[src] = struct{}{}
	return true
}

// HasLink reports whether target was recorded on this page in any category.
func (p *Page) HasLink(target string) bool {
	p.ensureIndex()
	_, ok := p.links[target]
	return ok
}

// Targets returns the targets of the internal links in discovery order.
func (p *Page) Targets() []string {
	targets := make([]string, 0, len(p.InternalLinks))
	for _, l := range p.InternalLinks {
		targets = append(targets, l.Target)
	}
	return targets
}

// LinkCount returns the number of links recorded across all categories.
func (p *Page) LinkCount() int {
	return len(p.InternalLinks) + len(p.ExternalLinks) + len(p.PageLinks)
}

// ensureIndex rebuilds the dedup sets for pages that were not created by
// NewPage, such as pages decoded from an archived run.
func (p *Page) ensureIndex() {
	if p.links == nil {
		p.links = make(map[string]struct{}, p.LinkCount())
		for _, list := range [][]Link{p.InternalLinks, p.ExternalLinks, p.PageLinks} {
			for _, l := range list {
				p.links[l.Target] = struct{}{}
			}
		}
	}
	if p.sources == nil {
		p.sources = make(map[string]struct{}, len(p.MediaSources))
		for _, s := range p.MediaSources {
			p.sources[s] = struct{}{}
		}
	}
}
