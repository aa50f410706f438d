package actions

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

const (
	defaultPageSize = 8000
	// defaultMaxCached bounds the articles kept between continuations. An
	// evicted article is fetched again when its next part is requested.
	defaultMaxCached = 16
)

// ScraperAction fetches a page and returns its readable text. Long articles
// are delivered page by page through continuation.
type ScraperAction struct {
	UserAgent string
	PageSize  int
	MaxCached int
	Client    *http.Client

	mu    sync.Mutex
	pages map[string]scrapedPage
	order []string // continuation ids, oldest first
}

type scrapedPage struct {
	header  string
	content []rune
}

func NewScraperAction() *ScraperAction {
	return &ScraperAction{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		PageSize:  defaultPageSize,
		MaxCached: defaultMaxCached,
		Client:    &http.Client{Timeout: 30 * time.Second},
		pages:     make(map[string]scrapedPage),
	}
}

func (s *ScraperAction) Name() string {
	return "scraper"
}

func (s *ScraperAction) Description() string {
	return "Fetch a webpage URL and extract the main content as clean, sanitized text. Long pages are returned in several parts."
}

func (s *ScraperAction) Category() string { return "web" }

func (s *ScraperAction) Schema() Schema {
	return JSONSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The full URL of the webpage to scrape (e.g., https://example.com/article)",
			},
		},
		"required": []string{"url"},
	})
}

func (s *ScraperAction) Invoke(ctx context.Context, task Task, args map[string]any, vars map[string]string) Outcome {
	var in struct {
		URL string `json:"url"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return Failure(err, "Could not read scraper arguments")
	}
	if in.URL == "" {
		return Failure(fmt.Errorf("url is required"), "Scrape without a URL")
	}

	page, err := s.fetch(ctx, in.URL)
	if err != nil {
		return Failure(err, fmt.Sprintf("Could not fetch %s", in.URL))
	}

	first := s.slice(page, 0)
	if len(page.content) <= s.pageSize() {
		return Success(first, fmt.Sprintf("Read %s", in.URL))
	}

	out := InProgress(first, fmt.Sprintf("Read part 1 of %s", in.URL), map[string]string{
		"url":    in.URL,
		"offset": strconv.Itoa(s.pageSize()),
		"total":  strconv.Itoa(len(page.content)),
	})
	s.remember(out.ID, page)
	return out
}

func (s *ScraperAction) Continue(ctx context.Context, task Task, id string, state map[string]string, vars map[string]string) Outcome {
	offset, err := strconv.Atoi(state["offset"])
	if err != nil {
		return Failure(fmt.Errorf("invalid continuation offset %q", state["offset"]), "Could not continue reading").WithID(id)
	}

	s.mu.Lock()
	page, ok := s.pages[id]
	s.mu.Unlock()
	if !ok {
		// Cached copy is gone (e.g. after a restart); fetch again.
		page, err = s.fetch(ctx, state["url"])
		if err != nil {
			return Failure(err, fmt.Sprintf("Could not fetch %s", state["url"])).WithID(id)
		}
	}

	part := offset/s.pageSize() + 1
	text := s.slice(page, offset)
	next := offset + s.pageSize()
	if next >= len(page.content) {
		s.forget(id)
		return Success(text, fmt.Sprintf("Read the last part (%d) of %s", part, state["url"])).WithID(id)
	}

	s.remember(id, page)
	return InProgress(text, fmt.Sprintf("Read part %d of %s", part, state["url"]), map[string]string{
		"url":    state["url"],
		"offset": strconv.Itoa(next),
		"total":  strconv.Itoa(len(page.content)),
	}).WithID(id)
}

func (s *ScraperAction) Cancel(ctx context.Context, task Task, id string) Outcome {
	s.forget(id)
	return Success(nil, "Stopped reading the page").WithID(id)
}

func (s *ScraperAction) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drop(id)
}

func (s *ScraperAction) remember(id string, page scrapedPage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pages == nil {
		s.pages = make(map[string]scrapedPage)
	}
	s.drop(id)
	s.pages[id] = page
	s.order = append(s.order, id)

	limit := s.MaxCached
	if limit <= 0 {
		limit = defaultMaxCached
	}
	for len(s.order) > limit {
		delete(s.pages, s.order[0])
		s.order = s.order[1:]
	}
}

// drop removes a cached article; s.mu must be held.
func (s *ScraperAction) drop(id string) {
	if _, ok := s.pages[id]; !ok {
		return
	}
	delete(s.pages, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *ScraperAction) pageSize() int {
	if s.PageSize <= 0 {
		return defaultPageSize
	}
	return s.PageSize
}

func (s *ScraperAction) slice(page scrapedPage, offset int) string {
	end := offset + s.pageSize()
	if end > len(page.content) {
		end = len(page.content)
	}
	if offset > end {
		offset = end
	}
	return page.header + string(page.content[offset:end])
}

func (s *ScraperAction) fetch(ctx context.Context, rawURL string) (scrapedPage, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return scrapedPage{}, fmt.Errorf("failed to parse URL: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return scrapedPage{}, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return scrapedPage{}, fmt.Errorf("failed to fetch URL: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return scrapedPage{}, fmt.Errorf("failed to fetch URL: status code %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return scrapedPage{}, fmt.Errorf("failed to parse article: %v", err)
	}

	// Strip anything readability left behind.
	p := bluemonday.StrictPolicy()
	sanitized := strings.TrimSpace(p.Sanitize(article.TextContent))

	var header strings.Builder
	fmt.Fprintf(&header, "TITLE: %s\n", article.Title)
	if article.Excerpt != "" {
		fmt.Fprintf(&header, "EXCERPT: %s\n", article.Excerpt)
	}
	header.WriteString("\n-- CONTENT --\n")

	return scrapedPage{header: header.String(), content: []rune(sanitized)}, nil
}
