package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/tools/duckduckgo"
)

// Searcher is the subset of a langchaingo tool the search action relies on.
type Searcher interface {
	Call(ctx context.Context, input string) (string, error)
}

type SearchAction struct {
	client Searcher
}

func NewSearchAction() (*SearchAction, error) {
	ddg, err := duckduckgo.New(10, duckduckgo.DefaultUserAgent)
	if err != nil {
		return nil, err
	}
	return &SearchAction{client: ddg}, nil
}

// NewSearchActionWith uses a custom backend.
func NewSearchActionWith(client Searcher) *SearchAction {
	return &SearchAction{client: client}
}

func (s *SearchAction) Name() string {
	return "search"
}

func (s *SearchAction) Description() string {
	return "Search the web using DuckDuckGo for real-time information."
}

func (s *SearchAction) Category() string { return "web" }

func (s *SearchAction) Schema() Schema {
	return Params(Param{Name: "query", Description: "The search query to look up"})
}

func (s *SearchAction) Invoke(ctx context.Context, task Task, args map[string]any, vars map[string]string) Outcome {
	query := strings.TrimSpace(StringArg(args, "query"))
	if query == "" {
		return Failure(fmt.Errorf("query is required"), "Search without a query")
	}

	res, err := s.client.Call(ctx, query)
	if err != nil {
		return Failure(fmt.Errorf("search failed: %w", err), fmt.Sprintf("Search for %q failed", query))
	}
	return Success(res, fmt.Sprintf("Searched the web for %q", query))
}
