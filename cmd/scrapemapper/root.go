package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/scrapemapper/internal/config"
	"github.com/nao1215/scrapemapper/internal/crawler"
	"github.com/nao1215/scrapemapper/internal/database"
	"github.com/nao1215/scrapemapper/internal/fetch"
	"github.com/nao1215/scrapemapper/internal/log"
	"github.com/nao1215/scrapemapper/internal/model"
	"github.com/nao1215/scrapemapper/internal/ratelimit"
	"github.com/nao1215/scrapemapper/internal/report"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
)

// NewRootCmd creates the root command. Run with a root URL it crawls the
// site and writes the sitemap.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrapemapper <root-url> [requests-per-second]",
		Short: "Crawl a website and write a sitemap of its pages and links",
		Long: `scrapemapper crawls a website starting at a root URL and records every
reachable page: its title, internal links, external links, in-page anchors
and media sources. Only pages under the root are followed.

The sitemap is written to sitemap.json in the current directory and
replaced on every run. Paths disallowed by the site's robots.txt are
skipped. Requests are paced to the given number per second (default 1).

Each run is archived so it can be compared with later runs of the same
site using 'scrapemapper compare'.

Examples:
  # Crawl a site at one request per second
  scrapemapper https://example.com

  # Crawl at 5 requests per second with 4 workers
  scrapemapper -w 4 https://example.com 5

  # Stop after 10 minutes or 500 pages, also write a Markdown summary
  scrapemapper --deadline 10m --max-pages 500 -m report.md https://example.com`,
		Version:       getVersion(),
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCrawlCmd,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging and list every page")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().String("db-dir", config.XDGDataDir(), "Directory of the run archive")

	// Crawl behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page retrieval")
	cmd.Flags().DurationP("deadline", "d", 0,
		"Stop the crawl after this duration and keep the pages found (0 = no limit)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent fetchers (1 = depth-first)")
	cmd.Flags().IntP("max-pages", "p", 0,
		"Stop after this many pages (0 = no limit)")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Bool("strict-robots", false,
		"Honour robots.txt user-agent groups and Allow lines")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .scrapemapper in current or home directory)")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"Sitemap JSON file, replaced on every run")
	cmd.Flags().StringP("markdown", "m", "",
		"Also write a Markdown summary to this file")
	cmd.Flags().Bool("flat-links", false,
		"Write links as plain URL strings instead of link objects")
	cmd.Flags().Bool("no-archive", false,
		"Do not save this run to the archive")
	cmd.Flags().String("lang", "en",
		"Language used to format numbers in the summary (BCP 47 tag)")

	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runCrawlCmd executes a crawl.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), crawler.URLNotProvided)
		return nil
	}

	rate := config.DefaultRate
	var rateErr error
	if len(args) > 1 {
		rate, rateErr = config.ParseRate(args[1])
	}

	cfg, err := buildConfig(cmd, args[0], rate, len(args) > 1 && rateErr == nil)
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)

	if rateErr != nil {
		logger.Warn("invalid rate, using default", "rate", config.DefaultRate, "error", rateErr)
	} else if len(args) < 2 {
		logger.Info("no rate given, using default", "rate", cfg.Rate)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	langFlag, err := cmd.Flags().GetString("lang")
	if err != nil {
		return err
	}
	tag, err := language.Parse(langFlag)
	if err != nil {
		logger.Warn("unknown language, using English", "lang", langFlag, "error", err)
		tag = language.English
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Deadline)
		defer cancel()
	}

	return runCrawl(ctx, cfg, tag, cmd.OutOrStdout(), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config for root from the flags and the config file.
// rateSet reports whether rate came from a valid positional argument.
func buildConfig(cmd *cobra.Command, root string, rate int, rateSet bool) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Root = root
	cfg.Rate = rate
	cfg.RateSet = rateSet
	cfg.WorkersSet = cmd.Flags().Changed("workers")
	cfg.UserAgentSet = cmd.Flags().Changed("user-agent")

	var err error
	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.LogJSON, err = cmd.Flags().GetBool("log-json"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Deadline, err = cmd.Flags().GetDuration("deadline"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = cmd.Flags().GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = cmd.Flags().GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.StrictRobots, err = cmd.Flags().GetBool("strict-robots"); err != nil {
		return nil, err
	}
	if cfg.OutputFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}
	if cfg.MarkdownFile, err = cmd.Flags().GetString("markdown"); err != nil {
		return nil, err
	}
	if cfg.FlatLinks, err = cmd.Flags().GetBool("flat-links"); err != nil {
		return nil, err
	}
	if cfg.NoArchive, err = cmd.Flags().GetBool("no-archive"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, err
	}

	// An explicit config path must exist. Otherwise a missing file is fine.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplySite()
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	return cfg, nil
}

// newLogger creates the secure logger selected by the configuration.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	return log.New(w, log.Options{Verbose: cfg.Verbose, JSON: cfg.LogJSON})
}

// newSpider wires the retriever, limiter and robots settings of cfg.
func newSpider(cfg *config.Config, logger *slog.Logger) *crawler.Spider {
	retriever := fetch.NewHTTPRetriever(
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithHeaders(cfg.Headers),
		fetch.WithCookie(cfg.Cookie),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithTimeout(cfg.Timeout),
	)

	return crawler.NewSpider(retriever,
		crawler.WithRateLimiter(ratelimit.New(cfg.Rate)),
		crawler.WithRobotsClient(retriever.Client()),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithStrictRobots(cfg.StrictRobots),
		crawler.WithExtraDisallow(cfg.ExtraDisallow),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithFetchTimeout(cfg.Timeout),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithLogger(logger),
	)
}

// runCrawl crawls cfg.Root and writes every output. The sitemap is written
// even when ctx was cancelled, since the pages found so far are kept.
func runCrawl(ctx context.Context, cfg *config.Config, tag language.Tag, out io.Writer, logger *slog.Logger) error {
	logger.Debug("crawl settings",
		"root", cfg.Root,
		"rate", cfg.Rate,
		"workers", cfg.Workers,
		"maxPages", cfg.MaxPages,
		"headers", cfg.Headers,
		"cookie", cfg.Cookie,
	)

	sitemap, err := newSpider(cfg, logger).Crawl(ctx, cfg.Root)
	if err != nil {
		fmt.Fprintln(out, crawler.CouldNotProcess)
		return fmt.Errorf("crawl failed: %w", err)
	}
	if err := report.WriteFile(cfg.OutputFile, sitemap, report.WithFlatLinks(cfg.FlatLinks)); err != nil {
		return err
	}

	if cfg.MarkdownFile != "" {
		if err := writeMarkdown(cfg.MarkdownFile, sitemap); err != nil {
			return err
		}
	}

	if _, err := report.NewSimpleWriter(out,
		report.WithVerbose(cfg.Verbose),
		report.WithLanguage(tag),
	).Write(sitemap); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	fmt.Fprintf(out, "Sitemap written to %s\n", cfg.OutputFile)

	if !cfg.NoArchive {
		// Archive even after an interrupt.
		id, err := archiveRun(context.WithoutCancel(ctx), cfg.DBDir, sitemap)
		if err != nil {
			logger.Warn("failed to archive run", "dir", cfg.DBDir, "error", err)
		} else {
			logger.Info("run archived", "id", id, "dir", cfg.DBDir)
			fmt.Fprintf(out, "Archived as run %d\n", id)
		}
	}

	return nil
}

// writeMarkdown writes the Markdown summary to path.
func writeMarkdown(path string, sitemap *model.SiteMap) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return fmt.Errorf("failed to create markdown file: %w", err)
	}

	_, werr := report.NewMarkdownWriter(f).Write(sitemap)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		return fmt.Errorf("failed to write markdown file: %w", err)
	}
	return nil
}

// archiveRun saves sitemap to the archive in dir.
func archiveRun(ctx context.Context, dir string, sitemap *model.SiteMap) (int64, error) {
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		return 0, err
	}
	defer db.Close()

	return db.SaveRun(ctx, sitemap)
}
