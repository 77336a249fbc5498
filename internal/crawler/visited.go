package crawler

import (
	"strings"
	"sync"
)

// visitedSet records the URLs a session has claimed for crawling.
// It is safe for concurrent use.
type visitedSet struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

func newVisitedSet() *visitedSet {
	return &visitedSet{urls: make(map[string]struct{})}
}

// visitedKey strips a single trailing slash so ".../a" and ".../a/" collide.
func visitedKey(rawURL string) string {
	return strings.TrimSuffix(rawURL, "/")
}

// claim marks rawURL visited and reports whether it was new.
func (v *visitedSet) claim(rawURL string) bool {
	key := visitedKey(rawURL)

	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.urls[key]; ok {
		return false
	}
	v.urls[key] = struct{}{}
	return true
}

func (v *visitedSet) contains(rawURL string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.urls[visitedKey(rawURL)]
	return ok
}

func (v *visitedSet) len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.urls)
}
