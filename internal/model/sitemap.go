package model

import "time"

// SiteMap is the result of one crawl run.
// Only Pages is part of the serialized sitemap; the remaining fields are
// run metadata used by reports and the run archive.
type SiteMap struct {
	// Root is the URL the crawl started from.
	Root string `json:"root"`

	// StartedAt is when the crawl started.
	StartedAt time.Time `json:"startedAt"`

	// FinishedAt is when the crawl returned.
	FinishedAt time.Time `json:"finishedAt"`

	// Pages holds one record per crawled URL in the order they were produced.
	Pages []*Page `json:"pages"`

	// Partial is true when the crawl was cut short by a deadline, a
	// signal or the page limit.
	Partial bool `json:"partial,omitempty"`
}

// NewSiteMap returns an empty SiteMap for root.
func NewSiteMap(root string) *SiteMap {
	return &SiteMap{
		Root:      root,
		StartedAt: time.Now(),
		Pages:     make([]*Page, 0),
	}
}

// Duration returns how long the crawl took.
func (s *SiteMap) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Page returns the record for url, or nil.
func (s *SiteMap) Page(url string) *Page {
	for _, p := range s.Pages {
		if p.URL == url {
			return p
		}
	}
	return nil
}

// Summary contains aggregate counts over a SiteMap.
type Summary struct {
	Pages         int `json:"pages"`
	InternalLinks int `json:"internalLinks"`
	ExternalLinks int `json:"externalLinks"`
	PageLinks     int `json:"pageLinks"`
	MediaSources  int `json:"mediaSources"`

	// UniqueExternal counts distinct external targets across all pages.
	UniqueExternal int `json:"uniqueExternal"`
}

// Summarize computes the aggregate counts.
func (s *SiteMap) Summarize() Summary {
	sum := Summary{Pages: len(s.Pages)}
	external := make(map[string]struct{})
	for _, p := range s.Pages {
		sum.InternalLinks += len(p.InternalLinks)
		sum.ExternalLinks += len(p.ExternalLinks)
		sum.PageLinks += len(p.PageLinks)
		sum.MediaSources += len(p.MediaSources)
		for _, l := range p.ExternalLinks {
			external[l.Target] = struct{}{}
		}
	}
	sum.UniqueExternal = len(external)
	return sum
}
