// Package feed pulls items from RSS and Atom feeds and enqueues their text
// for analysis.
package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"github.com/tsawler/sentiment/internal/queue"
)

// Fetcher downloads and parses feeds.
type Fetcher struct {
	parser *gofeed.Parser
}

// NewFetcher returns a Fetcher using client. A nil client gets a 30 second
// timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	p := gofeed.NewParser()
	p.Client = client
	return &Fetcher{parser: p}
}

// Fetch downloads url and converts its items to jobs.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]queue.Job, error) {
	parsed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("feed: fetch %s: %w", url, err)
	}
	return ItemsFromFeed(url, parsed), nil
}

// Parse reads a feed document from r.
func (f *Fetcher) Parse(source string, r io.Reader) ([]queue.Job, error) {
	parsed, err := f.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("feed: parse %s: %w", source, err)
	}
	return ItemsFromFeed(source, parsed), nil
}

// ItemsFromFeed converts feed items to jobs. The text is the title followed
// by the description with markup removed. Items with no text are dropped.
func ItemsFromFeed(source string, f *gofeed.Feed) []queue.Job {
	if f == nil {
		return nil
	}
	jobs := make([]queue.Job, 0, len(f.Items))
	for _, item := range f.Items {
		if item == nil {
			continue
		}
		body := item.Description
		if body == "" {
			body = item.Content
		}
		text := strings.TrimSpace(StripHTML(item.Title) + " " + StripHTML(body))
		if text == "" {
			continue
		}
		key := item.GUID
		if key == "" {
			key = item.Link
		}
		if key == "" {
			key = text
		}
		jobs = append(jobs, queue.Job{
			ID:     jobID(source, key),
			Text:   text,
			Source: source,
			URL:    item.Link,
		})
	}
	return jobs
}

func jobID(source, key string) string {
	sum := sha256.Sum256([]byte(source + "\x00" + key))
	return "feed:" + hex.EncodeToString(sum[:12])
}

// StripHTML returns the visible text of an HTML fragment with whitespace
// collapsed. Script and style contents are dropped.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawText(name) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawText(name) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isRawText(tag []byte) bool {
	t := string(tag)
	return t == "script" || t == "style"
}

// Pusher accepts jobs.
type Pusher interface {
	Push(ctx context.Context, job queue.Job) error
}

// maxSeen bounds the de-duplication set. When exceeded it is reset, which
// can re-enqueue items still present in a feed; the store ignores repeats.
const maxSeen = 50000

// Poller periodically fetches feeds and pushes items it has not pushed
// before.
type Poller struct {
	Fetcher  *Fetcher
	Pusher   Pusher
	URLs     []string
	Interval time.Duration
	Logger   *slog.Logger

	seen map[string]struct{}
}

// Run polls immediately and then every Interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.PollOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce fetches every feed once and returns the number of new jobs
// pushed. Feed errors are logged and do not stop the other feeds.
func (p *Poller) PollOnce(ctx context.Context) int {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if p.seen == nil || len(p.seen) > maxSeen {
		p.seen = make(map[string]struct{})
	}

	pushed := 0
	for _, url := range p.URLs {
		if ctx.Err() != nil {
			break
		}
		jobs, err := p.Fetcher.Fetch(ctx, url)
		if err != nil {
			logger.Warn("fetch feed", "url", url, "error", err)
			continue
		}
		for _, job := range jobs {
			if _, ok := p.seen[job.ID]; ok {
				continue
			}
			if err := p.Pusher.Push(ctx, job); err != nil {
				logger.Error("push job", "job", job.ID, "error", err)
				continue
			}
			p.seen[job.ID] = struct{}{}
			pushed++
		}
		logger.Info("polled feed", "url", url, "items", len(jobs))
	}
	return pushed
}
