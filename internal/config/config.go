package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/scrapemapper/internal/fetch"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "scrapemapper"

	// DefaultRate is the number of requests per second when none is given.
	DefaultRate = 1

	// DefaultWorkers keeps the crawl sequential.
	DefaultWorkers = 1

	// DefaultTimeout bounds each page retrieval.
	DefaultTimeout = 30 * time.Second

	// DefaultOutputFile is written in the working directory.
	DefaultOutputFile = "sitemap.json"

	// DefaultUserAgent mimics the W3C link checker, which most sites allow.
	DefaultUserAgent = fetch.DefaultUserAgent

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = fetch.DefaultMaxBodySize
)

// Config holds all options of a crawl run. It is populated from CLI flags,
// then merged with the site configuration of the root from the config file.
type Config struct {
	// Root is the crawl root URL.
	Root string

	// Rate is the number of requests per second across all workers.
	Rate int

	// Workers is the number of concurrent fetchers. 1 crawls depth-first.
	Workers int

	// Timeout bounds each page retrieval.
	Timeout time.Duration

	// Deadline bounds the whole crawl. Zero disables it.
	Deadline time.Duration

	// MaxPages stops the crawl after this many pages. Zero means unlimited.
	MaxPages int

	// UserAgent is sent with every request, including robots.txt.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes. Zero uses the default.
	MaxBodySize int64

	// OutputFile is the sitemap JSON path. It is overwritten on every run.
	OutputFile string

	// MarkdownFile, when set, receives a Markdown summary of the crawl.
	MarkdownFile string

	// FlatLinks writes link lists as plain URL strings.
	FlatLinks bool

	// StrictRobots also honours Allow lines and user-agent groups.
	StrictRobots bool

	// NoArchive disables saving the run to the archive database.
	NoArchive bool

	// DBDir is the directory of the archive database.
	DBDir string

	// LogJSON selects JSON log output.
	LogJSON bool

	// Verbose enables debug logs and the per-page summary.
	Verbose bool

	// ConfigFilePath is the explicit config file path. When empty,
	// .scrapemapper is searched in the current and home directories.
	ConfigFilePath string

	// SiteConfigs holds the loaded config file, if any.
	SiteConfigs *File

	// ExtraDisallow are additional disallow patterns for this root.
	ExtraDisallow []string

	// Headers are custom request headers.
	Headers map[string]string

	// Cookie is sent as the Cookie header.
	Cookie string

	// RateSet, WorkersSet and UserAgentSet record values given on the
	// command line. The config file never overrides them.
	RateSet      bool
	WorkersSet   bool
	UserAgentSet bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Rate:        DefaultRate,
		Workers:     DefaultWorkers,
		Timeout:     DefaultTimeout,
		OutputFile:  DefaultOutputFile,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		DBDir:       XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for scrapemapper.
// On Linux: ~/.local/share/scrapemapper
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for scrapemapper.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ParseRate parses the requests-per-second argument. A missing, non-numeric
// or non-positive value yields DefaultRate together with an error the
// caller is expected to log.
func ParseRate(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultRate, fmt.Errorf("%w: empty", ErrInvalidRateArgument)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return DefaultRate, fmt.Errorf("%w: %q", ErrInvalidRateArgument, s)
	}
	return n, nil
}

// ApplySite merges the file settings for the configured root into c.
// Flag values win. Rate, workers and user agent are taken from the file
// unless they were given on the command line, even when the given value
// equals the default.
func (c *Config) ApplySite() {
	if c.SiteConfigs == nil {
		return
	}
	site := c.SiteConfigs.GetSiteConfig(c.Root)

	if site.Cookie != "" && c.Cookie == "" {
		c.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(site.Headers))
		}
		for k, v := range site.Headers {
			if _, ok := c.Headers[k]; !ok {
				c.Headers[k] = v
			}
		}
	}
	c.ExtraDisallow = append(c.ExtraDisallow, site.Disallow...)
	if site.Rate > 0 && !c.RateSet {
		c.Rate = site.Rate
	}
	if site.Workers > 0 && !c.WorkersSet {
		c.Workers = site.Workers
	}
	if site.UserAgent != "" && !c.UserAgentSet {
		c.UserAgent = site.UserAgent
	}
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return ErrNoRoot
	}
	if c.Rate <= 0 {
		return ErrInvalidRate
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Deadline < 0 {
		return ErrInvalidDeadline
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.OutputFile == "" {
		return ErrNoOutputFile
	}
	return nil
}
