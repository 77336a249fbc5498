package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/scrapemapper/internal/fetch"
	"github.com/nao1215/scrapemapper/internal/model"
	"github.com/nao1215/scrapemapper/internal/ratelimit"
	"github.com/nao1215/scrapemapper/internal/robots"
)

// fakeRetriever serves documents from memory and records every request.
type fakeRetriever struct {
	mu    sync.Mutex
	docs  map[string]*fetch.Document
	calls []string
	delay time.Duration
}

func newFakeRetriever() *fakeRetriever {
	return &fakeRetriever{docs: make(map[string]*fetch.Document)}
}

// page registers a document at url linking to hrefs.
func (f *fakeRetriever) page(url, title string, hrefs ...string) {
	doc := &fetch.Document{URL: url, Title: title}
	for _, h := range hrefs {
		doc.Anchors = append(doc.Anchors, fetch.Anchor{Href: h})
	}
	f.docs[url] = doc
}

func (f *fakeRetriever) Retrieve(ctx context.Context, rawURL string) (*fetch.Document, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	doc, ok := f.docs[rawURL]
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s returned 404", fetch.ErrStatus, rawURL)
	}
	return doc, nil
}

func (f *fakeRetriever) requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestSpider returns a Spider without pacing or robots retrieval.
func newTestSpider(r fetch.Retriever, opts ...SpiderOption) *Spider {
	base := []SpiderOption{
		WithRateLimiter(ratelimit.Unlimited()),
		WithRules(robots.Build("")),
		WithLogger(discardLogger()),
	}
	return NewSpider(r, append(base, opts...)...)
}

func pageURLs(sm *model.SiteMap) []string {
	urls := make([]string, 0, len(sm.Pages))
	for _, p := range sm.Pages {
		urls = append(urls, p.URL)
	}
	return urls
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestSpiderCrawl tests the sequential traversal.
func TestSpiderCrawl(t *testing.T) {
	t.Parallel()

	t.Run("root with internal, external, anchor and media", func(t *testing.T) {
		t.Parallel()

		r := newFakeRetriever()
		r.docs["http://site.test"] = &fetch.Document{
			URL:   "http://site.test",
			Title: "Home",
			Anchors: []fetch.Anchor{
				{Href: "http://site.test/about", Text: "About"},
				{Href: "http://other.test", Text: "Other"},
				{Href: "http://site.test#top", Text: "Top"},
			},
			Sources: []string{"http://site.test/logo.png"},
		}
		r.page("http://site.test/about", "About")

		sm, err := newTestSpider(r).Crawl(context.Background(), "http://site.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"http://site.test", "http://site.test/about"}
		if got := pageURLs(sm); !equalStrings(got, want) {
			t.Fatalf("expected pages %v, got %v", want, got)
		}

		home := sm.Pages[0]
		if home.Title != "Home" {
			t.Errorf("expected title 'Home', got %q", home.Title)
		}
		if len(home.InternalLinks) != 1 || home.InternalLinks[0].Target != "http://site.test/about" {
			t.Errorf("unexpected internal links %+v", home.InternalLinks)
		}
		if len(home.ExternalLinks) != 1 || home.ExternalLinks[0].Target != "http://other.test" {
			t.Errorf("unexpected external links %+v", home.ExternalLinks)
		}
		if len(home.PageLinks) != 1 || home.PageLinks[0].Target != "http://site.test#top" {
			t.Errorf("unexpected page links %+v", home.PageLinks)
		}
		if len(home.MediaSources) != 1 || home.MediaSources[0] != "http://site.test/logo.png" {
			t.Errorf("unexpected media %v", home.MediaSources)
		}

		about := sm.Pages[1]
		if about.Title != "About" || about.LinkCount() != 0 || len(about.MediaSources) != 0 {
			t.Errorf("unexpected about page %+v", about)
		}
		if sm.Partial {
			t.Error("complete crawl must not be partial")
		}
		if sm.FinishedAt.IsZero() {
			t.Error("expected FinishedAt to be set")
		}
	})

	t.Run("two-cycle terminates with two pages", func(t *testing.T) {
		t.Parallel()

		r := newFakeRetriever()
		r.page("http://x.test/a", "A", "http://x.test/b")
		r.page("http://x.test/b", "B", "http://x.test/a")

		sm, err := newTestSpider(r).Crawl(context.Background(), "http://x.test/a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sm.Pages) != 2 {
			t.Fatalf("expected 2 pages, got %d", len(sm.Pages))
		}
		if calls := r.requested(); len(calls) != 2 {
			t.Errorf("expected 2 retrievals, got %v", calls)
		}
	})

	t.Run("self link is not fetched twice", func(t *testing.T) {
		t.Parallel()

		r := newFakeRetriever()
		r.page("http://x.test", "Root", "http://x.test", "http://x.test/")

		sm, err := newTestSpider(r).Crawl(context.Background(), "http://x.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sm.Pages) != 1 {
			t.Errorf("expected 1 page, got %d", len(sm.Pages))
		}
		if calls := r.requested(); len(calls) != 1 {
			t.Errorf("expected 1 retrieval, got %v", calls)
		}
	})

	t.Run("depth-first pre-order", func(t *testing.T) {
		t.Parallel()

		r := newFakeRetriever()
		r.page("http://x.test", "Root", "http://x.test/a", "http://x.test/b")
		r.page("http://x.test/a", "A", "http://x.test/a/1", "http://x.test/a/2")
		r.page("http://x.test/a/1", "A1", "http://x.test/b")
		r.page("http://x.test/a/2", "A2")
		r.page("http://x.test/b", "B", "http://x.test/c")
		r.page("http://x.test/c", "C")

		sm, err := newTestSpider(r).Crawl(context.Background(), "http://x.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{
			"http://x.test",
			"http://x.test/a",
			"http://x.test/a/1",
			"http://x.test/b",
			"http://x.test/c",
			"http://x.test/a/2",
		}
		if got := pageURLs(sm); !equalStrings(got, want) {
			t.Errorf("expected order %v, got %v", want, got)
		}
	})

	t.Run("trailing slash variants are one page", func(t *testing.T) {
		t.Parallel()

		r := newFakeRetriever()
		r.page("http://x.test", "Root", "http://x.test/a", "http://x.test/a/")
		r.page("http://x.test/a", "A", "http://x.test/a/")
		r.page("http://x.test/a/", "A slash")

		sm, err := newTestSpider(r).Crawl(context.Background(), "http://x.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"http://x.test", "http://x.test/a"}
		if got := pageURLs(sm); !equalStrings(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("failed branch does not stop siblings", func(t *testing.T) {
		t.Parallel()

		r := newFakeRetriever()
		r.page("http://x.test", "Root", "http://x.test/missing", "http://x.test/ok")
		r.page("http://x.test/ok", "OK")

		sm, err := newTestSpider(r).Crawl(context.Background(), "http://x.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"http://x.test", "http://x.test/ok"}
		if got := pageURLs(sm); !equalStrings(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
		if calls := r.requested(); len(calls) != 3 {
			t.Errorf("expected 3 retrievals, got %v", calls)
		}
	})

	t.Run("external links are not followed", func(t *testing.T) {
		t.Parallel()

		r := newFakeRetriever()
		r.page("http://x.test", "Root", "http://other.test/page")
		r.page("http://other.test/page", "Other")

		sm, err := newTestSpider(r).Crawl(context.Background(), "http://x.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sm.Pages) != 1 {
			t.Errorf("expected 1 page, got %v", pageURLs(sm))
		}
	})

	t.Run("links on deep pages classify against the root", func(t *testing.T) {
		t.Parallel()

		r := newFakeRetriever()
		r.page("http://x.test", "Root", "http://x.test/docs/a")
		r.page("http://x.test/docs/a", "A", "http://x.test#top", "http://x.test/docs/b")
		r.page("http://x.test/docs/b", "B")

		sm, err := newTestSpider(r).Crawl(context.Background(), "http://x.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		deep := sm.Page("http://x.test/docs/a")
		if deep == nil {
			t.Fatal("expected deep page")
		}
		if len(deep.PageLinks) != 1 || len(deep.InternalLinks) != 1 {
			t.Errorf("unexpected classification %+v", deep)
		}
	})

	t.Run("duplicate anchors recorded once", func(t *testing.T) {
		t.Parallel()

		r := newFakeRetriever()
		r.page("http://x.test", "Root", "http://other.test", "http://other.test")

		sm, err := newTestSpider(r).Crawl(context.Background(), "http://x.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := len(sm.Pages[0].ExternalLinks); n != 1 {
			t.Errorf("expected 1 external link, got %d", n)
		}
	})

	t.Run("disallowed URLs are skipped", func(t *testing.T) {
		t.Parallel()

		r := newFakeRetriever()
		r.page("http://x.test", "Root", "http://x.test/wp-admin/login", "http://x.test/blog")
		r.page("http://x.test/wp-admin/login", "Login")
		r.page("http://x.test/blog", "Blog")

		rules := robots.Build("User-agent: *\nDisallow: /wp-admin/")
		sm, err := newTestSpider(r, WithRules(rules)).Crawl(context.Background(), "http://x.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"http://x.test", "http://x.test/blog"}
		if got := pageURLs(sm); !equalStrings(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
		for _, call := range r.requested() {
			if strings.Contains(call, "wp-admin") {
				t.Errorf("disallowed URL was retrieved: %s", call)
			}
		}
	})

	t.Run("blank disallow excludes everything", func(t *testing.T) {
		t.Parallel()

		r := newFakeRetriever()
		r.page("http://x.test", "Root")

		sm, err := newTestSpider(r, WithRules(robots.Build("Disallow:"))).Crawl(context.Background(), "http://x.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sm.Pages) != 0 {
			t.Errorf("expected no pages, got %v", pageURLs(sm))
		}
	})

	t.Run("max pages truncates and marks partial", func(t *testing.T) {
		t.Parallel()

		r := newFakeRetriever()
		r.page("http://x.test", "Root", "http://x.test/a", "http://x.test/b", "http://x.test/c")
		r.page("http://x.test/a", "A")
		r.page("http://x.test/b", "B")
		r.page("http://x.test/c", "C")

		sm, err := newTestSpider(r, WithMaxPages(2)).Crawl(context.Background(), "http://x.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sm.Pages) != 2 {
			t.Errorf("expected 2 pages, got %v", pageURLs(sm))
		}
		if !sm.Partial {
			t.Error("expected partial sitemap")
		}
	})

	t.Run("cancelled context returns partial result", func(t *testing.T) {
		t.Parallel()

		r := newFakeRetriever()
		r.page("http://x.test", "Root")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		sm, err := newTestSpider(r).Crawl(ctx, "http://x.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !sm.Partial {
			t.Error("expected partial sitemap")
		}
		if len(sm.Pages) != 0 {
			t.Errorf("expected no pages, got %v", pageURLs(sm))
		}
	})

	t.Run("deadline stops a slow crawl", func(t *testing.T) {
		t.Parallel()

		r := newFakeRetriever()
		r.page("http://x.test", "Root", "http://x.test/slow")
		r.page("http://x.test/slow", "Slow")
		r.delay = 50 * time.Millisecond

		ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
		defer cancel()

		sm, err := newTestSpider(r).Crawl(ctx, "http://x.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !sm.Partial {
			t.Error("expected partial sitemap")
		}
		if len(sm.Pages) != 1 {
			t.Errorf("expected only the root page, got %v", pageURLs(sm))
		}
	})

	t.Run("rate limiter paces requests", func(t *testing.T) {
		t.Parallel()

		r := newFakeRetriever()
		r.page("http://x.test", "Root", "http://x.test/a", "http://x.test/b", "http://x.test/c")
		r.page("http://x.test/a", "A")
		r.page("http://x.test/b", "B")
		r.page("http://x.test/c", "C")

		spider := newTestSpider(r, WithRateLimiter(ratelimit.New(20)))
		start := time.Now()
		sm, err := spider.Crawl(context.Background(), "http://x.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sm.Pages) != 4 {
			t.Fatalf("expected 4 pages, got %d", len(sm.Pages))
		}
		// Three paced dispatches at 50ms spacing; the first permit is free.
		if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
			t.Errorf("expected paced crawl, finished in %v", elapsed)
		}
	})

	t.Run("empty root", func(t *testing.T) {
		t.Parallel()

		_, err := newTestSpider(newFakeRetriever()).Crawl(context.Background(), "")
		if !errors.Is(err, ErrNoRootURL) {
			t.Errorf("expected ErrNoRootURL, got %v", err)
		}
	})

	t.Run("invalid root", func(t *testing.T) {
		t.Parallel()

		for _, root := range []string{"site.test", "ftp://site.test", "http://"} {
			_, err := newTestSpider(newFakeRetriever()).Crawl(context.Background(), root)
			if !errors.Is(err, ErrInvalidRootURL) {
				t.Errorf("%q: expected ErrInvalidRootURL, got %v", root, err)
			}
		}
	})

	t.Run("spider is reusable", func(t *testing.T) {
		t.Parallel()

		r := newFakeRetriever()
		r.page("http://x.test", "Root", "http://x.test/a")
		r.page("http://x.test/a", "A")

		spider := newTestSpider(r)
		for i := range 2 {
			sm, err := spider.Crawl(context.Background(), "http://x.test")
			if err != nil {
				t.Fatalf("run %d: unexpected error: %v", i, err)
			}
			if len(sm.Pages) != 2 {
				t.Errorf("run %d: expected 2 pages, got %d", i, len(sm.Pages))
			}
		}
	})
}

// TestSpiderCrawlParallel tests the worker pool traversal.
func TestSpiderCrawlParallel(t *testing.T) {
	t.Parallel()

	build := func() *fakeRetriever {
		r := newFakeRetriever()
		r.page("http://x.test", "Root", "http://x.test/a", "http://x.test/b", "http://x.test/c")
		r.page("http://x.test/a", "A", "http://x.test/a/1", "http://x.test/b", "http://x.test")
		r.page("http://x.test/b", "B", "http://x.test/b/1", "http://x.test/a/")
		r.page("http://x.test/c", "C", "http://x.test/missing")
		r.page("http://x.test/a/1", "A1", "http://x.test/c")
		r.page("http://x.test/b/1", "B1")
		return r
	}

	t.Run("visits every page exactly once", func(t *testing.T) {
		t.Parallel()

		r := build()
		sm, err := newTestSpider(r, WithWorkers(4)).Crawl(context.Background(), "http://x.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sm.Pages) != 6 {
			t.Fatalf("expected 6 pages, got %v", pageURLs(sm))
		}
		if sm.Pages[0].URL != "http://x.test" {
			t.Errorf("expected root first, got %s", sm.Pages[0].URL)
		}

		seen := make(map[string]int)
		for _, call := range r.requested() {
			seen[visitedKey(call)]++
		}
		for url, n := range seen {
			if n != 1 {
				t.Errorf("%s retrieved %d times", url, n)
			}
		}
		if len(seen) != 7 {
			t.Errorf("expected 7 distinct retrievals, got %d", len(seen))
		}
	})

	t.Run("same pages as sequential mode", func(t *testing.T) {
		t.Parallel()

		seq, err := newTestSpider(build()).Crawl(context.Background(), "http://x.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		par, err := newTestSpider(build(), WithWorkers(3)).Crawl(context.Background(), "http://x.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := make(map[string]bool)
		for _, u := range pageURLs(seq) {
			want[u] = true
		}
		for _, u := range pageURLs(par) {
			if !want[u] {
				t.Errorf("unexpected page %s in parallel result", u)
			}
			delete(want, u)
		}
		if len(want) != 0 {
			t.Errorf("pages missing from parallel result: %v", want)
		}
	})

	t.Run("max pages", func(t *testing.T) {
		t.Parallel()

		sm, err := newTestSpider(build(), WithWorkers(4), WithMaxPages(3)).Crawl(context.Background(), "http://x.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sm.Pages) > 3 {
			t.Errorf("expected at most 3 pages, got %v", pageURLs(sm))
		}
		if !sm.Partial {
			t.Error("expected partial sitemap")
		}
	})

	t.Run("cancellation drains workers", func(t *testing.T) {
		t.Parallel()

		r := build()
		r.delay = 30 * time.Millisecond

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		done := make(chan *model.SiteMap)
		go func() {
			sm, _ := newTestSpider(r, WithWorkers(2)).Crawl(ctx, "http://x.test") //nolint:errcheck
			done <- sm
		}()

		select {
		case sm := <-done:
			if !sm.Partial {
				t.Error("expected partial sitemap")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("crawl did not return after cancellation")
		}
	})
}

// TestSpiderSiteMap tests the serialized entry point.
func TestSpiderSiteMap(t *testing.T) {
	t.Parallel()

	t.Run("empty root returns sentinel", func(t *testing.T) {
		t.Parallel()

		got := newTestSpider(newFakeRetriever()).SiteMap(context.Background(), "")
		if got != URLNotProvided {
			t.Errorf("expected %q, got %q", URLNotProvided, got)
		}
	})

	t.Run("invalid root returns sentinel", func(t *testing.T) {
		t.Parallel()

		got := newTestSpider(newFakeRetriever()).SiteMap(context.Background(), "not a url")
		if got != CouldNotProcess {
			t.Errorf("expected %q, got %q", CouldNotProcess, got)
		}
	})

	t.Run("serialization failure returns sentinel", func(t *testing.T) {
		t.Parallel()

		r := newFakeRetriever()
		r.page("http://x.test", "Root")

		failing := func([]*model.Page) ([]byte, error) {
			return nil, errors.New("encoder broken")
		}
		got := newTestSpider(r, WithEncoder(failing)).SiteMap(context.Background(), "http://x.test")
		if got != CouldNotProcess {
			t.Errorf("expected %q, got %q", CouldNotProcess, got)
		}
	})

	t.Run("returns JSON array of pages", func(t *testing.T) {
		t.Parallel()

		r := newFakeRetriever()
		r.page("http://x.test", "Root", "http://x.test/a")
		r.page("http://x.test/a", "A")

		got := newTestSpider(r).SiteMap(context.Background(), "http://x.test")

		var pages []map[string]any
		if err := json.Unmarshal([]byte(got), &pages); err != nil {
			t.Fatalf("expected JSON array, got %q: %v", got, err)
		}
		if len(pages) != 2 {
			t.Fatalf("expected 2 pages, got %d", len(pages))
		}
		for _, field := range []string{"url", "title", "internalLinks", "externalLinks", "pageLinks", "mediaSources"} {
			if _, ok := pages[0][field]; !ok {
				t.Errorf("missing field %q", field)
			}
		}
	})
}

// TestSpiderOverHTTP runs the crawler against a live test server.
func TestSpiderOverHTTP(t *testing.T) {
	t.Parallel()

	newSite := func(robotsBody string) *httptest.Server {
		mux := http.NewServeMux()
		mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
			if robotsBody == "" {
				http.NotFound(w, nil)
				return
			}
			_, _ = w.Write([]byte(robotsBody)) //nolint:errcheck
		})
		mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><head><title>About</title></head></html>`)) //nolint:errcheck
		})
		mux.HandleFunc("/secret", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><head><title>Secret</title></head></html>`)) //nolint:errcheck
		})
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<html><head><title>Home</title></head><body>
				<a href="/about">About</a>
				<a href="http://other.test">Other</a>
				<a href="#top">Top</a>
				<a href="/secret">Secret</a>
				<img src="/logo.png">
			</body></html>`)) //nolint:errcheck
		})
		return httptest.NewServer(mux)
	}

	newHTTPSpider := func(server *httptest.Server) *Spider {
		retriever := fetch.NewHTTPRetriever(fetch.WithClient(server.Client()))
		return NewSpider(retriever,
			WithRateLimiter(ratelimit.Unlimited()),
			WithRobotsClient(server.Client()),
			WithFetchTimeout(5*time.Second),
			WithLogger(discardLogger()),
		)
	}

	t.Run("missing robots file fails open", func(t *testing.T) {
		t.Parallel()

		server := newSite("")
		defer server.Close()

		sm, err := newHTTPSpider(server).Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{server.URL, server.URL + "/about", server.URL + "/secret"}
		if got := pageURLs(sm); !equalStrings(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}

		home := sm.Pages[0]
		if home.Title != "Home" {
			t.Errorf("expected title 'Home', got %q", home.Title)
		}
		if len(home.InternalLinks) != 2 || len(home.ExternalLinks) != 1 || len(home.PageLinks) != 1 {
			t.Errorf("unexpected classification %+v", home)
		}
		if len(home.MediaSources) != 1 || home.MediaSources[0] != server.URL+"/logo.png" {
			t.Errorf("unexpected media %v", home.MediaSources)
		}
	})

	t.Run("robots disallow is honoured", func(t *testing.T) {
		t.Parallel()

		server := newSite("User-agent: *\nDisallow: /secret\n")
		defer server.Close()

		sm, err := newHTTPSpider(server).Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{server.URL, server.URL + "/about"}
		if got := pageURLs(sm); !equalStrings(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("extra disallow patterns apply", func(t *testing.T) {
		t.Parallel()

		server := newSite("")
		defer server.Close()

		retriever := fetch.NewHTTPRetriever(fetch.WithClient(server.Client()))
		spider := NewSpider(retriever,
			WithRateLimiter(ratelimit.Unlimited()),
			WithRobotsClient(server.Client()),
			WithExtraDisallow([]string{"/about"}),
			WithStrictRobots(true),
			WithLogger(discardLogger()),
		)
		sm, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{server.URL, server.URL + "/secret"}
		if got := pageURLs(sm); !equalStrings(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("unreachable robots host fails open", func(t *testing.T) {
		t.Parallel()

		server := newSite("")
		defer server.Close()

		retriever := fetch.NewHTTPRetriever(fetch.WithClient(server.Client()))
		spider := NewSpider(retriever,
			WithRateLimiter(ratelimit.Unlimited()),
			WithRobotsClient(&http.Client{Transport: failingTransport{}}),
			WithLogger(discardLogger()),
		)

		sm, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sm.Pages) != 3 {
			t.Errorf("expected unrestricted crawl, got %v", pageURLs(sm))
		}
	})
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}
