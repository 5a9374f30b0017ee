package retrieval

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"dkb/internal/errors"
	"dkb/internal/logging"
)

// Config holds the immutable per-engine retrieval parameters. Values are
// constructed once and threaded through every call; neither the engine nor
// the fusion function reads ambient configuration.
type Config struct {
	// RRFK is the fusion damping constant
	RRFK int
	// FetchMultiplier oversamples each source: limit*FetchMultiplier
	// candidates are requested before fusion re-ranks
	FetchMultiplier int
	// TimeoutPerSource bounds one source query; zero means no timeout.
	// A timed-out source behaves exactly like a failed one.
	TimeoutPerSource time.Duration
	// SourceFilter restricts participating sources (ablation mode).
	// Empty means all registered sources.
	SourceFilter []SourceName
	// Weights optionally boosts per-source RRF contributions
	Weights map[SourceName]float64
}

// DefaultConfig returns the standard retrieval parameters.
func DefaultConfig() Config {
	return Config{
		RRFK:            DefaultRRFK,
		FetchMultiplier: 2,
	}
}

// Options are per-query overrides. Zero values fall back to the engine Config.
type Options struct {
	Limit           int
	RRFK            int
	FetchMultiplier int
	SourceFilter    []SourceName
}

// SourceStatus classifies one source's part in a query.
type SourceStatus string

const (
	// StatusOK means the source returned at least one result
	StatusOK SourceStatus = "ok"
	// StatusEmpty means the source answered but found nothing
	StatusEmpty SourceStatus = "empty"
	// StatusUnavailable means the source's backing data does not exist
	StatusUnavailable SourceStatus = "unavailable"
	// StatusFailed means the source errored or timed out
	StatusFailed SourceStatus = "failed"
)

// SourceReport is the per-source diagnostic attached to every response.
// It keeps "source absent" distinguishable from "source found nothing",
// even though fusion treats both as an empty contribution.
type SourceReport struct {
	Source      SourceName   `json:"source"`
	Status      SourceStatus `json:"status"`
	ResultCount int          `json:"resultCount"`
	DurationMs  int64        `json:"durationMs"`
	Error       string       `json:"error,omitempty"`
}

// Response is the fused ranking plus provenance for one query.
type Response struct {
	QueryID         string         `json:"queryId"`
	Query           string         `json:"query"`
	Results         []FusedResult  `json:"results"`
	Reports         []SourceReport `json:"sourceReports"`
	TotalDurationMs int64          `json:"totalDurationMs"`
}

// Engine owns the registered set of retrieval sources, dispatches queries
// to them concurrently, and fuses their ranked lists.
type Engine struct {
	sources []Source
	config  Config
	logger  *logging.Logger
}

// NewEngine creates an engine over the given sources. Registration order is
// the order lists are handed to fusion, which keeps output deterministic
// regardless of goroutine completion order.
func NewEngine(cfg Config, logger *logging.Logger, sources ...Source) *Engine {
	if cfg.RRFK <= 0 {
		cfg.RRFK = DefaultRRFK
	}
	if cfg.FetchMultiplier <= 0 {
		cfg.FetchMultiplier = 2
	}

	return &Engine{
		sources: sources,
		config:  cfg,
		logger:  logger,
	}
}

// Register adds a source. Not safe to call concurrently with Query.
func (e *Engine) Register(s Source) {
	e.sources = append(e.sources, s)
	e.logger.Info("Registered retrieval source", map[string]interface{}{
		"source":    s.Name(),
		"available": s.IsAvailable(),
	})
}

// SourceNames returns every registered source name in registration order.
func (e *Engine) SourceNames() []SourceName {
	names := make([]SourceName, len(e.sources))
	for i, s := range e.sources {
		names[i] = s.Name()
	}
	return names
}

// AvailableSources returns the names of sources whose backing data exists.
func (e *Engine) AvailableSources() []SourceName {
	names := []SourceName{}
	for _, s := range e.sources {
		if s.IsAvailable() {
			names = append(names, s.Name())
		}
	}
	return names
}

// sourceResult is the value a dispatch goroutine hands back.
type sourceResult struct {
	report  SourceReport
	results []Result
}

// Query fans the query text out to every enabled, available source, waits
// for all of them, and fuses the ranked lists. A single source failing or
// timing out degrades to an empty contribution; only the case where no
// source produced a usable answer is an error.
func (e *Engine) Query(ctx context.Context, text string, opts Options) (*Response, error) {
	start := time.Now()
	queryID := uuid.New().String()

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	rrfK := opts.RRFK
	if rrfK <= 0 {
		rrfK = e.config.RRFK
	}
	multiplier := opts.FetchMultiplier
	if multiplier <= 0 {
		multiplier = e.config.FetchMultiplier
	}
	filter := opts.SourceFilter
	if len(filter) == 0 {
		filter = e.config.SourceFilter
	}

	enabled := e.filterSources(filter)
	if len(enabled) == 0 {
		return nil, errors.New(errors.NoSourcesAvailable,
			"no retrieval sources match the requested filter", nil)
	}

	e.logger.Debug("Dispatching query", map[string]interface{}{
		"queryId": queryID,
		"sources": len(enabled),
		"limit":   limit,
	})

	fetchLimit := limit * multiplier

	// Structured fan-out: one goroutine per source writing its own slot,
	// joined before fusion. No shared mutable state between tasks.
	outcomes := make([]sourceResult, len(enabled))
	var wg sync.WaitGroup

	for i, src := range enabled {
		wg.Add(1)
		go func(idx int, s Source) {
			defer wg.Done()
			outcomes[idx] = e.querySource(ctx, s, text, fetchLimit)
		}(i, src)
	}

	wg.Wait()

	reports := make([]SourceReport, len(outcomes))
	lists := make([][]Result, 0, len(outcomes))
	usable := 0
	for i, out := range outcomes {
		reports[i] = out.report
		switch out.report.Status {
		case StatusOK:
			usable++
			lists = append(lists, out.results)
		case StatusEmpty:
			usable++
		case StatusFailed:
			e.logger.Warn("Source query failed", map[string]interface{}{
				"queryId": queryID,
				"source":  out.report.Source,
				"error":   out.report.Error,
			})
		}
	}

	if usable == 0 {
		return nil, errors.New(errors.NoSourcesAvailable,
			"no retrieval sources available", nil).WithDetails(reports)
	}

	results := FuseWeighted(lists, rrfK, limit, e.config.Weights)

	resp := &Response{
		QueryID:         queryID,
		Query:           text,
		Results:         results,
		Reports:         reports,
		TotalDurationMs: time.Since(start).Milliseconds(),
	}

	e.logger.Debug("Query completed", map[string]interface{}{
		"queryId":    queryID,
		"results":    len(results),
		"durationMs": resp.TotalDurationMs,
	})

	return resp, nil
}

// querySource runs one source with the configured timeout and classifies
// the outcome. Sources must not mutate shared state on the query path, so
// an abandoned context cannot corrupt anything.
func (e *Engine) querySource(ctx context.Context, s Source, text string, limit int) sourceResult {
	report := SourceReport{Source: s.Name()}
	start := time.Now()

	if !s.IsAvailable() {
		report.Status = StatusUnavailable
		report.DurationMs = time.Since(start).Milliseconds()
		return sourceResult{report: report}
	}

	queryCtx := ctx
	if e.config.TimeoutPerSource > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, e.config.TimeoutPerSource)
		defer cancel()
	}

	results, err := s.Query(queryCtx, text, limit)
	report.DurationMs = time.Since(start).Milliseconds()

	if err != nil {
		report.Status = StatusFailed
		report.Error = err.Error()
		return sourceResult{report: report}
	}

	report.ResultCount = len(results)
	if len(results) == 0 {
		report.Status = StatusEmpty
		return sourceResult{report: report}
	}

	report.Status = StatusOK
	return sourceResult{report: report, results: results}
}

// filterSources applies the ablation filter to the registered set.
func (e *Engine) filterSources(filter []SourceName) []Source {
	if len(filter) == 0 {
		return e.sources
	}

	allowed := make(map[SourceName]struct{}, len(filter))
	for _, name := range filter {
		allowed[name] = struct{}{}
	}

	selected := make([]Source, 0, len(e.sources))
	for _, s := range e.sources {
		if _, ok := allowed[s.Name()]; ok {
			selected = append(selected, s)
		}
	}
	return selected
}
