package config

import (
	"maps"
	"net/url"
	"strings"
)

// SiteConfig holds the crawl settings for one site.
type SiteConfig struct {
	// Cookie is an HTTP cookie to use when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Disallow are extra robots-style path patterns never to crawl.
	Disallow []string `yaml:"disallow,omitempty"`

	// Rate overrides the requests per second. Zero keeps the CLI value.
	Rate int `yaml:"rate,omitempty"`

	// Workers overrides the number of concurrent fetchers.
	Workers int `yaml:"workers,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`
}

// File represents the structure of the .scrapemapper configuration file.
type File struct {
	// Sites maps a root URL or a bare host name to its configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for root merged over the defaults.
// The root URL itself is looked up first, then its host.
func (cf *File) GetSiteConfig(root string) SiteConfig {
	result := cf.Defaults
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = maps.Clone(cf.Defaults.Headers)
	}
	if len(cf.Defaults.Disallow) > 0 {
		result.Disallow = append([]string(nil), cf.Defaults.Disallow...)
	}

	site, ok := cf.lookup(root)
	if !ok {
		return result
	}

	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(result.Headers, site.Headers)
	}
	// Site disallow patterns add to the defaults.
	result.Disallow = append(result.Disallow, site.Disallow...)
	if site.Rate != 0 {
		result.Rate = site.Rate
	}
	if site.Workers != 0 {
		result.Workers = site.Workers
	}
	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}
	return result
}

func (cf *File) lookup(root string) (SiteConfig, bool) {
	if cf.Sites == nil {
		return SiteConfig{}, false
	}
	if site, ok := cf.Sites[root]; ok {
		return site, true
	}
	if site, ok := cf.Sites[strings.TrimSuffix(root, "/")]; ok {
		return site, true
	}
	u, err := url.Parse(root)
	if err != nil || u.Host == "" {
		return SiteConfig{}, false
	}
	site, ok := cf.Sites[u.Host]
	return site, ok
}
