package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/nao1215/scrapemapper/internal/fetch"
	"github.com/nao1215/scrapemapper/internal/model"
	"github.com/nao1215/scrapemapper/internal/ratelimit"
	"github.com/nao1215/scrapemapper/internal/report"
	"github.com/nao1215/scrapemapper/internal/robots"
)

// Spider crawls a site from its root URL.
// Settings are fixed at construction; per-crawl state lives in a session,
// so one Spider may run several crawls one after another.
type Spider struct {
	// retriever fetches and parses documents.
	retriever fetch.Retriever

	// limiter paces every dispatch after the root. Shared by all workers.
	limiter *ratelimit.Limiter

	// rules overrides robots retrieval when set.
	rules robots.Rules

	// robotsClient fetches robots.txt.
	robotsClient *http.Client

	// userAgent selects the robots group in strict mode and is sent
	// with the robots request.
	userAgent string

	// strictRobots evaluates robots.txt by user-agent group instead of
	// collecting every Disallow line.
	strictRobots bool

	// extraDisallow are patterns applied on top of robots.txt.
	extraDisallow []string

	// workers is the number of concurrent fetches. 1 means sequential
	// depth-first traversal.
	workers int

	// fetchTimeout bounds a single retrieval. Zero means no bound.
	fetchTimeout time.Duration

	// maxPages stops dispatching once this many pages exist. 0 is unlimited.
	maxPages int

	// encode serializes pages for SiteMap.
	encode func([]*model.Page) ([]byte, error)

	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithRateLimiter sets the limiter shared by every fetch of a crawl.
func WithRateLimiter(l *ratelimit.Limiter) SpiderOption {
	return func(s *Spider) {
		if l != nil {
			s.limiter = l
		}
	}
}

// WithRules uses rules instead of retrieving robots.txt.
func WithRules(rules robots.Rules) SpiderOption {
	return func(s *Spider) {
		s.rules = rules
	}
}

// WithRobotsClient sets the HTTP client used for robots.txt.
func WithRobotsClient(client *http.Client) SpiderOption {
	return func(s *Spider) {
		if client != nil {
			s.robotsClient = client
		}
	}
}

// WithUserAgent sets the user agent used for robots.txt.
func WithUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithStrictRobots enables user-agent group evaluation of robots.txt.
func WithStrictRobots(strict bool) SpiderOption {
	return func(s *Spider) {
		s.strictRobots = strict
	}
}

// WithExtraDisallow adds disallow patterns on top of robots.txt.
func WithExtraDisallow(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.extraDisallow = append(s.extraDisallow, patterns...)
	}
}

// WithWorkers sets the number of concurrent fetches.
// Values below 1 are treated as 1.
func WithWorkers(n int) SpiderOption {
	return func(s *Spider) {
		if n < 1 {
			n = 1
		}
		s.workers = n
	}
}

// WithFetchTimeout bounds each retrieval.
func WithFetchTimeout(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.fetchTimeout = d
	}
}

// WithMaxPages limits the number of pages in a sitemap. 0 is unlimited.
func WithMaxPages(n int) SpiderOption {
	return func(s *Spider) {
		if n >= 0 {
			s.maxPages = n
		}
	}
}

// WithEncoder sets the serializer used by SiteMap.
func WithEncoder(encode func([]*model.Page) ([]byte, error)) SpiderOption {
	return func(s *Spider) {
		if encode != nil {
			s.encode = encode
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider returns a Spider that retrieves documents with retriever.
func NewSpider(retriever fetch.Retriever, opts ...SpiderOption) *Spider {
	s := &Spider{
		retriever:    retriever,
		limiter:      ratelimit.New(ratelimit.DefaultPerSecond),
		robotsClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:    fetch.DefaultUserAgent,
		workers:      1,
		encode:       report.MarshalPages,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Crawl walks the site under root and returns the pages found.
//
// The error is non-nil only when the crawl cannot start. Failures of
// individual pages are logged and skipped. When ctx expires the pages
// gathered so far are returned with Partial set and a nil error.
func (s *Spider) Crawl(ctx context.Context, root string) (*model.SiteMap, error) {
	if root == "" {
		return nil, ErrNoRootURL
	}
	if err := validateRoot(root); err != nil {
		return nil, err
	}

	sess := newSession(s, root, s.loadRules(ctx, root))
	s.logger.Info("crawl started",
		"root", root,
		"workers", s.workers,
		"rate", s.limiter.PerSecond(),
	)

	if s.workers > 1 {
		sess.crawlParallel(ctx, root)
	} else {
		sess.crawl(ctx, root)
	}

	result := sess.finish(ctx)
	s.logger.Info("crawl finished",
		"root", root,
		"pages", len(result.Pages),
		"visited", sess.visited.len(),
		"partial", result.Partial,
		"duration", result.Duration(),
	)
	return result, nil
}

// SiteMap crawls root and returns the serialized pages.
// It returns URLNotProvided for an empty root and CouldNotProcess when
// the crawl cannot start or serialization fails.
func (s *Spider) SiteMap(ctx context.Context, root string) string {
	if root == "" {
		s.logger.Error("no root URL provided")
		return URLNotProvided
	}

	sitemap, err := s.Crawl(ctx, root)
	if err != nil {
		s.logger.Error("crawl failed", "root", root, "error", err)
		return CouldNotProcess
	}

	data, err := s.encode(sitemap.Pages)
	if err != nil {
		s.logger.Error("failed to serialize sitemap", "root", root, "error", err)
		return CouldNotProcess
	}
	return string(data)
}

// loadRules returns the rules for one crawl.
func (s *Spider) loadRules(ctx context.Context, root string) robots.Rules {
	if s.rules != nil {
		return s.rules
	}

	robotsCtx := ctx
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		robotsCtx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	body := robots.Fetch(robotsCtx, s.robotsClient, s.userAgent, root, s.logger)
	rules := robots.Compile(body, s.userAgent, s.strictRobots, s.extraDisallow)
	if set, ok := rules.(*robots.PatternSet); ok {
		s.logger.Debug("disallow patterns loaded", "root", root, "patterns", set.Len())
	}
	return rules
}

func validateRoot(root string) error {
	u, err := url.Parse(root)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRootURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrInvalidRootURL, root)
	}
	return nil
}
