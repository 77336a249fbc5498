// Package config provides the configuration for scrapemapper: the crawl
// settings assembled from CLI flags, the optional .scrapemapper YAML file
// with per-site overrides, and the XDG locations used for the run archive.
package config
