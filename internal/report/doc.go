// Package report renders crawl results.
//
// The sitemap itself is written by JSONWriter as an array of page objects.
// MarkdownWriter and SimpleWriter render a human readable summary of the
// same SiteMap. All writers implement Writer so they can be combined with
// MultiWriter.
package report
