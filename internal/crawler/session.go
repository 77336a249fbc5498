package crawler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/scrapemapper/internal/fetch"
	"github.com/nao1215/scrapemapper/internal/model"
	"github.com/nao1215/scrapemapper/internal/ratelimit"
	"github.com/nao1215/scrapemapper/internal/robots"
)

// session is the state of one crawl run.
type session struct {
	retriever    fetch.Retriever
	classifier   model.Classifier
	rules        robots.Rules
	limiter      *ratelimit.Limiter
	visited      *visitedSet
	fetchTimeout time.Duration
	maxPages     int
	workers      int
	logger       *slog.Logger

	mu        sync.Mutex
	sitemap   *model.SiteMap
	truncated bool
}

func newSession(s *Spider, root string, rules robots.Rules) *session {
	return &session{
		retriever:    s.retriever,
		classifier:   model.NewClassifier(root),
		rules:        rules,
		limiter:      s.limiter,
		visited:      newVisitedSet(),
		fetchTimeout: s.fetchTimeout,
		maxPages:     s.maxPages,
		workers:      s.workers,
		logger:       s.logger,
		sitemap:      model.NewSiteMap(root),
	}
}

// crawl visits rawURL and recurses depth-first into its internal links.
func (c *session) crawl(ctx context.Context, rawURL string) {
	if rawURL == "" {
		c.logger.Warn("skipping link without URL")
		return
	}
	if ctx.Err() != nil {
		return
	}
	if c.full() {
		c.markTruncated()
		return
	}

	c.visited.claim(rawURL)

	page := c.visit(ctx, rawURL)
	if page == nil {
		return
	}

	for _, target := range page.Targets() {
		if c.visited.contains(target) {
			continue
		}
		if c.full() {
			c.markTruncated()
			return
		}
		if err := c.limiter.Acquire(ctx); err != nil {
			return
		}
		c.crawl(ctx, target)
	}
}

// crawlParallel walks the site with a pool of workers.
// The calling goroutine coordinates: it owns the frontier, claims every
// URL before dispatch and acquires a permit before each dispatch after
// the root. Workers only retrieve and build pages.
func (c *session) crawlParallel(ctx context.Context, root string) {
	jobs := make(chan string)
	found := make(chan []string)

	var g errgroup.Group
	for range c.workers {
		g.Go(func() error {
			for rawURL := range jobs {
				var targets []string
				if page := c.visit(ctx, rawURL); page != nil {
					targets = page.Targets()
				}
				found <- targets
			}
			return nil
		})
	}

	c.visited.claim(root)
	frontier := []string{root}
	inflight := 0
	first := true
	paced := false

	receive := func(targets []string) {
		inflight--
		for _, target := range targets {
			if target != "" && c.visited.claim(target) {
				frontier = append(frontier, target)
			}
		}
	}

loop:
	for {
		capped := c.fullWith(inflight)
		if (len(frontier) == 0 || capped) && inflight == 0 {
			if capped && len(frontier) > 0 {
				c.markTruncated()
			}
			break
		}

		if len(frontier) == 0 || capped {
			select {
			case targets := <-found:
				receive(targets)
			case <-ctx.Done():
				break loop
			}
			continue
		}

		if !first && !paced {
			if err := c.limiter.Acquire(ctx); err != nil {
				break loop
			}
			paced = true
		}

		select {
		case jobs <- frontier[0]:
			frontier = frontier[1:]
			inflight++
			first = false
			paced = false
		case targets := <-found:
			receive(targets)
		case <-ctx.Done():
			break loop
		}
	}

	close(jobs)
	go func() {
		_ = g.Wait() //nolint:errcheck // workers never return errors
		close(found)
	}()
	for range found {
	}
}

// visit retrieves rawURL and records its page.
// It returns nil when the URL is disallowed or cannot be retrieved.
func (c *session) visit(ctx context.Context, rawURL string) *model.Page {
	if c.rules != nil && c.rules.Disallowed(rawURL) {
		c.logger.Debug("disallowed by robots rules", "url", rawURL)
		return nil
	}

	fetchCtx := ctx
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}

	doc, err := c.retriever.Retrieve(fetchCtx, rawURL)
	if err != nil {
		c.logRetrieveError(rawURL, err)
		return nil
	}

	page := c.buildPage(rawURL, doc)
	if !c.add(page) {
		return nil
	}
	c.logger.Debug("page crawled",
		"url", rawURL,
		"title", page.Title,
		"links", page.LinkCount(),
		"media", len(page.MediaSources),
	)
	return page
}

// buildPage classifies every anchor of doc against the crawl root.
// Deduplication is page-local and finishes before the page is shared.
func (c *session) buildPage(rawURL string, doc *fetch.Document) *model.Page {
	page := model.NewPage(rawURL)
	page.Title = doc.Title
	for _, a := range doc.Anchors {
		page.AddLink(c.classifier.Link(a.Href, a.Text))
	}
	for _, src := range doc.Sources {
		page.AddSource(src)
	}
	return page
}

// add appends page to the result unless the page limit is reached.
func (c *session) add(page *model.Page) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxPages > 0 && len(c.sitemap.Pages) >= c.maxPages {
		c.truncated = true
		return false
	}
	c.sitemap.Pages = append(c.sitemap.Pages, page)
	return true
}

func (c *session) full() bool {
	return c.fullWith(0)
}

// fullWith reports whether the page limit is reached counting pending
// fetches as pages.
func (c *session) fullWith(pending int) bool {
	if c.maxPages <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sitemap.Pages)+pending >= c.maxPages
}

func (c *session) markTruncated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.truncated = true
}

// finish stamps the sitemap once traversal has returned.
func (c *session) finish(ctx context.Context) *model.SiteMap {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sitemap.FinishedAt = time.Now()
	if ctx.Err() != nil {
		c.logger.Warn("crawl stopped early", "root", c.classifier.Root(), "reason", context.Cause(ctx))
		c.sitemap.Partial = true
	}
	if c.truncated {
		c.logger.Warn("page limit reached", "root", c.classifier.Root(), "max_pages", c.maxPages)
		c.sitemap.Partial = true
	}
	return c.sitemap
}

func (c *session) logRetrieveError(rawURL string, err error) {
	switch {
	case errors.Is(err, fetch.ErrNotDocument):
		c.logger.Debug("skipping non-document", "url", rawURL, "error", err)
	case errors.Is(err, context.Canceled):
		c.logger.Debug("retrieval cancelled", "url", rawURL)
	default:
		c.logger.Warn("failed to retrieve page", "url", rawURL, "error", err)
	}
}
