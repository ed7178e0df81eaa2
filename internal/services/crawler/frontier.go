package crawler

import (
	"container/heap"
	"net/url"
	"strings"
)

// FrontierEntry is one queued URL with its BFS depth.
type FrontierEntry struct {
	URL   string
	Depth int
	seq   int
}

type frontierHeap []*FrontierEntry

func (h frontierHeap) Len() int { return len(h) }

// Shallowest first; equal depth falls back to insertion order.
func (h frontierHeap) Less(i, j int) bool {
	if h[i].Depth != h[j].Depth {
		return h[i].Depth < h[j].Depth
	}
	return h[i].seq < h[j].seq
}

func (h frontierHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *frontierHeap) Push(x interface{}) {
	*h = append(*h, x.(*FrontierEntry))
}

func (h *frontierHeap) Pop() interface{} {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}

// Frontier is a deduplicated BFS queue. A normalized URL enters the seen
// set once and stays there after it is popped, so no URL is emitted twice.
type Frontier struct {
	queue    frontierHeap
	seen     map[string]struct{}
	maxDepth int
	crawled  int
	nextSeq  int
}

// NewFrontier builds a frontier seeded at depth 0.
func NewFrontier(seeds []string, maxDepth int) *Frontier {
	f := &Frontier{
		seen:     make(map[string]struct{}),
		maxDepth: maxDepth,
	}
	heap.Init(&f.queue)
	for _, seed := range seeds {
		normalized := NormalizeURL(seed)
		if normalized == "" {
			continue
		}
		if _, ok := f.seen[normalized]; ok {
			continue
		}
		f.seen[normalized] = struct{}{}
		f.push(normalized, 0)
	}
	return f
}

func (f *Frontier) push(url string, depth int) {
	heap.Push(&f.queue, &FrontierEntry{URL: url, Depth: depth, seq: f.nextSeq})
	f.nextSeq++
}

// Next pops the shallowest entry, or returns nil when the queue is empty.
// Each pop increments the crawled counter.
func (f *Frontier) Next() *FrontierEntry {
	if f.queue.Len() == 0 {
		return nil
	}
	entry := heap.Pop(&f.queue).(*FrontierEntry)
	f.crawled++
	return entry
}

// AddDiscovered enqueues unseen URLs at the given depth. Entries past the
// depth cap are ignored entirely.
func (f *Frontier) AddDiscovered(urls []string, depth int) {
	if depth > f.maxDepth {
		return
	}
	for _, raw := range urls {
		normalized := NormalizeURL(raw)
		if normalized == "" {
			continue
		}
		if _, ok := f.seen[normalized]; ok {
			continue
		}
		f.seen[normalized] = struct{}{}
		f.push(normalized, depth)
	}
}

// PendingCount returns the number of queued entries.
func (f *Frontier) PendingCount() int {
	return f.queue.Len()
}

// CrawledCount returns the number of entries popped so far.
func (f *Frontier) CrawledCount() int {
	return f.crawled
}

// NormalizeURL canonicalizes a URL for deduplication: fragment dropped,
// trailing slash stripped unless the path is "/", scheme and host
// lowercased, path and query preserved. Returns "" for unparseable input.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	} else if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	return u.String()
}
