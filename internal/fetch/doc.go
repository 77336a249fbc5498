// Package fetch retrieves and parses documents for the crawler.
//
// A Retriever turns an absolute URL into a Document: the page title, the
// anchors with their resolved absolute hrefs, and the resolved absolute
// resource references of elements carrying a src attribute. Anything that
// is not a successfully retrieved HTML document is reported as an error.
//
// HTML is parsed with github.com/PuerkitoBio/goquery after the body has
// been decoded to UTF-8 with golang.org/x/net/html/charset.
package fetch
