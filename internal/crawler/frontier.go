package crawler

// Frontier is the FIFO of URLs awaiting a visit plus the set of URLs already
// visited. A normalized URL is enqueued at most once and never after it has
// been visited. It is owned by a single goroutine.
type Frontier struct {
	queue   []string
	queued  map[string]struct{}
	visited map[string]struct{}
	order   []string
}

// NewFrontier returns an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		queued:  make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}
}

// Push enqueues url unless it is already queued or visited. It reports
// whether the URL was added.
func (f *Frontier) Push(url string) bool {
	if url == "" {
		return false
	}
	if _, ok := f.visited[url]; ok {
		return false
	}
	if _, ok := f.queued[url]; ok {
		return false
	}
	f.queued[url] = struct{}{}
	f.queue = append(f.queue, url)
	return true
}

// Pop removes the oldest pending URL, skipping any that were marked visited
// while queued.
func (f *Frontier) Pop() (string, bool) {
	for len(f.queue) > 0 {
		next := f.queue[0]
		f.queue[0] = ""
		f.queue = f.queue[1:]
		delete(f.queued, next)
		if _, ok := f.visited[next]; ok {
			continue
		}
		return next, true
	}
	return "", false
}

// MarkVisited records url as visited.
func (f *Frontier) MarkVisited(url string) {
	if _, ok := f.visited[url]; ok {
		return
	}
	f.visited[url] = struct{}{}
	f.order = append(f.order, url)
}

// IsVisited reports whether url has been visited.
func (f *Frontier) IsVisited(url string) bool {
	_, ok := f.visited[url]
	return ok
}

// Len returns the number of pending URLs.
func (f *Frontier) Len() int {
	return len(f.queue)
}

// VisitedCount returns the number of visited URLs.
func (f *Frontier) VisitedCount() int {
	return len(f.visited)
}

// Visited returns visited URLs in visit order.
func (f *Frontier) Visited() []string {
	return append([]string(nil), f.order...)
}

// Pending returns queued URLs in FIFO order.
func (f *Frontier) Pending() []string {
	return append([]string(nil), f.queue...)
}

// Restore replaces the frontier contents with a checkpointed state.
func (f *Frontier) Restore(visited, pending []string) {
	f.queue = nil
	f.order = nil
	f.queued = make(map[string]struct{}, len(pending))
	f.visited = make(map[string]struct{}, len(visited))
	for _, u := range visited {
		f.MarkVisited(u)
	}
	for _, u := range pending {
		f.Push(u)
	}
}
