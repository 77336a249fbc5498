// Package model defines the data structures shared by the crawler, the
// report writers and the run archive.
//
// This package contains the following main types:
//   - Link: A classified reference discovered on a page
//   - Page: The per-URL record (title, classified links, media sources)
//   - SiteMap: The ordered result of one crawl run
//
// Classify and Classifier sort an href into one of the link categories
// relative to the crawl root.
package model
