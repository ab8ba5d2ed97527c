package fetch

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCacheTTL is how long fetched page text is reused.
const DefaultCacheTTL = 30 * time.Minute

type cacheEntry struct {
	text      string
	fetchedAt time.Time
}

// Fetcher fetches pages as text with an in-memory cache.
// A Renderer, when set, is used for pages whose static HTML yields too little text.
type Fetcher struct {
	options  *Options
	renderer Renderer
	ttl      time.Duration
	now      func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewFetcher creates a Fetcher. A nil opts uses DefaultOptions; a nil renderer disables the browser fallback.
func NewFetcher(opts *Options, renderer Renderer, ttl time.Duration) *Fetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Fetcher{
		options:  opts,
		renderer: renderer,
		ttl:      ttl,
		now:      time.Now,
		cache:    make(map[string]cacheEntry),
	}
}

// Text returns the readable text of urlStr.
func (f *Fetcher) Text(ctx context.Context, urlStr string) (string, error) {
	if text, ok := f.cached(urlStr); ok {
		return text, nil
	}

	result, err := URL(ctx, urlStr, f.options)
	if err != nil {
		return "", err
	}

	selectors := SelectorsFor(urlStr)
	text, err := ExtractMainText(result.HTML, selectors)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "failed to extract text", Cause: err}
	}

	if f.renderer != nil && ShouldUseBrowser(text) {
		html, renderErr := f.renderer.Render(ctx, urlStr)
		if renderErr != nil {
			slog.Warn("browser fallback failed, using static text", "url", urlStr, "error", renderErr)
		} else if rendered, extractErr := ExtractMainText(html, selectors); extractErr == nil && len(rendered) > len(text) {
			text = rendered
		}
	}

	f.store(urlStr, text)
	return text, nil
}

func (f *Fetcher) cached(urlStr string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	entry, ok := f.cache[urlStr]
	if !ok || f.now().Sub(entry.fetchedAt) > f.ttl {
		return "", false
	}
	return entry.text, true
}

// store caches text for urlStr and drops entries past the TTL.
func (f *Fetcher) store(urlStr, text string) {
	now := f.now()
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, entry := range f.cache {
		if now.Sub(entry.fetchedAt) > f.ttl {
			delete(f.cache, key)
		}
	}
	f.cache[urlStr] = cacheEntry{text: text, fetchedAt: now}
}
