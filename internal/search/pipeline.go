package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/dariusai/darius/internal/api"
	"github.com/dariusai/darius/internal/bus"
	"go.uber.org/zap"
)

// Result count bounds enforced before dispatch.
const (
	MinResults = 1
	MaxResults = 10
)

// ResultSet is the aggregate outcome of one search. An empty Results slice
// is a valid outcome, distinct from a failed request.
type ResultSet struct {
	Query      string
	Results    []api.SearchResult
	TotalFound int
}

// searchAPI is the slice of the backend client the pipeline needs.
type searchAPI interface {
	SearchWeb(ctx context.Context, query string, numResults int) (*api.SearchResponse, error)
}

// Pipeline drives a query through remote search and per-result enrichment.
// One search at a time is assumed; callers gate concurrent use.
type Pipeline struct {
	api    searchAPI
	bus    *bus.Bus
	logger *zap.Logger
}

// NewPipeline creates a search pipeline over the backend client.
func NewPipeline(a searchAPI, b *bus.Bus, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{api: a, bus: b, logger: logger}
}

// Run searches for query, clamping numResults to [1,10]. Failures on
// individual results arrive as the Error field of that result; only a
// failed request returns an error, with a zero-result set.
func (p *Pipeline) Run(ctx context.Context, query string, numResults int) (*ResultSet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}
	numResults = Clamp(numResults)

	resp, err := p.api.SearchWeb(ctx, query, numResults)
	if err != nil {
		p.logger.Warn("search failed", zap.String("query", query), zap.Error(err))
		p.emit(bus.KindSearchFailed, query)
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	set := &ResultSet{
		Query:      query,
		Results:    resp.Results,
		TotalFound: resp.TotalFound,
	}
	p.logger.Info("search completed",
		zap.String("query", query),
		zap.Int("results", len(set.Results)),
		zap.Int("errored", set.ErrorCount()))
	p.emit(bus.KindSearchDone, set)
	return set, nil
}

// ErrorCount returns how many individual results carry an error.
func (rs *ResultSet) ErrorCount() int {
	n := 0
	for _, r := range rs.Results {
		if r.Error != "" {
			n++
		}
	}
	return n
}

// Clamp bounds a requested result count to [MinResults, MaxResults].
func Clamp(n int) int {
	if n < MinResults {
		return MinResults
	}
	if n > MaxResults {
		return MaxResults
	}
	return n
}

func (p *Pipeline) emit(kind string, payload any) {
	if p.bus != nil {
		p.bus.Emit(kind, payload)
	}
}
