// Package database archives finished crawl runs in SQLite.
//
// Every run stores its serialized pages, a SHA3-256 digest of them and one
// row per page with its link counts. The archive is only read by the
// compare command; a crawl never consults it, so each run still starts
// from an empty visited set.
//
// The driver is modernc.org/sqlite, which needs no cgo.
package database
