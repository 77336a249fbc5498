// Package crawler walks a site from its root URL and builds a sitemap.
//
// # Traversal
//
// A Spider runs one crawl session per call to Crawl. The session owns the
// visited set, the robots rules, the shared rate limiter and the result
// accumulator, so a Spider can be reused for several roots.
//
// With one worker (the default) the session performs a depth-first
// pre-order walk over the internal-link graph: the first internal link of
// a page is expanded to exhaustion before the second one is dispatched.
// With more workers a coordinator hands URLs to a bounded pool and the
// pages come back in worklist order instead.
//
// Every URL is marked visited before it is fetched, so cyclic link graphs
// terminate. A URL and the same URL with one trailing slash are the same
// entry.
//
// # Failures
//
// A failed retrieval only ends its own branch. Robots retrieval fails open.
// When the context expires the pages gathered so far are returned and the
// sitemap is flagged as partial.
//
// # Usage
//
//	retriever := fetch.NewHTTPRetriever(fetch.WithTimeout(10 * time.Second))
//	spider := crawler.NewSpider(retriever,
//		crawler.WithRateLimiter(ratelimit.New(2)),
//		crawler.WithRobotsClient(retriever.Client()),
//	)
//	sitemap, err := spider.Crawl(ctx, "http://example.com")
package crawler
