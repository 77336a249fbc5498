package model

import (
	"fmt"
	"strings"
)

// Category is the classification of a discovered link relative to the
// crawl root.
type Category int

const (
	// InternalPage is a navigable page within the root site.
	InternalPage Category = iota

	// ExternalSite is a reference that leaves the root site.
	ExternalSite

	// InPageAnchor is a fragment or query-string variant of the root page.
	// It is not a distinct navigable page and is never crawled.
	InPageAnchor
)

// String returns the name used for the category in JSON output.
func (c Category) String() string {
	switch c {
	case InternalPage:
		return "internal"
	case ExternalSite:
		return "external"
	case InPageAnchor:
		return "page"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	s := c.String()
	if s == "unknown" {
		return nil, fmt.Errorf("unknown link category %d", int(c))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	switch string(text) {
	case "internal":
		*c = InternalPage
	case "external":
		*c = ExternalSite
	case "page":
		*c = InPageAnchor
	default:
		return fmt.Errorf("unknown link category %q", string(text))
	}
	return nil
}

// Link is a reference discovered on a page.
// A Link is immutable once classified; Classifier.Link is the only
// constructor used by the crawler.
type Link struct {
	// Target is the absolute URL the link points to.
	Target string `json:"target"`

	// Label is the anchor text, if any.
	Label string `json:"label,omitempty"`

	// Category is decided by Classify from Target and the crawl root.
	Category Category `json:"category"`
}

// Classify decides the category of href relative to root.
//
// Rules in precedence order:
//  1. InPageAnchor if href starts with "#", "/#", root+"#", root+"/#",
//     root+"?" or root+"/?"
//  2. InternalPage if href starts with root or with "/"
//  3. ExternalSite otherwise, including the empty string
//
// No normalization is applied; href is expected to be resolved already.
func Classify(href, root string) Category {
	if isInPageAnchor(href, root) {
		return InPageAnchor
	}
	if strings.HasPrefix(href, root) || strings.HasPrefix(href, "/") {
		return InternalPage
	}
	return ExternalSite
}

func isInPageAnchor(href, root string) bool {
	if strings.HasPrefix(href, "#") || strings.HasPrefix(href, "/#") {
		return true
	}
	for _, suffix := range []string{"#", "/#", "?", "/?"} {
		if strings.HasPrefix(href, root+suffix) {
			return true
		}
	}
	return false
}

// Classifier classifies links against a single crawl root.
// The root is fixed for the whole crawl: links found on deep pages are
// still classified relative to the root, never relative to the page they
// were found on.
type Classifier struct {
	root string
}

// NewClassifier returns a Classifier bound to root.
func NewClassifier(root string) Classifier {
	return Classifier{root: root}
}

// Root returns the crawl root the classifier is bound to.
func (c Classifier) Root() string {
	return c.root
}

// Classify returns the category of href.
func (c Classifier) Classify(href string) Category {
	return Classify(href, c.root)
}

// Link builds a classified Link.
func (c Classifier) Link(href, label string) Link {
	return Link{
		Target:   href,
		Label:    strings.TrimSpace(label),
		Category: c.Classify(href),
	}
}
