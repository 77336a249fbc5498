// Package main provides the entry point for the scrapemapper CLI.
//
// scrapemapper crawls a website from a root URL and writes a sitemap of
// every reachable page with its classified links and media sources.
//
// Usage:
//
//	scrapemapper <root-url> [requests-per-second]
//	scrapemapper compare <root-url>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
