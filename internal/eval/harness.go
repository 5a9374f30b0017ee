package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"dkb/internal/logging"
	"dkb/internal/retrieval"
)

// QueryOutcome is the scored result of running one labeled query.
type QueryOutcome struct {
	ID            string  `json:"id,omitempty"`
	Query         string  `json:"query"`
	PrecisionAt5  float64 `json:"precisionAt5"`
	PrecisionAt10 float64 `json:"precisionAt10"`
	Returned      int     `json:"returned"`
	Error         string  `json:"error,omitempty"`
}

// DimensionResult aggregates outcomes for one query dimension within a
// configuration.
type DimensionResult struct {
	Queries       int     `json:"queries"`
	PrecisionAt5  float64 `json:"precisionAt5"`
	PrecisionAt10 float64 `json:"precisionAt10"`
}

// ConfigResult aggregates outcomes for one source configuration.
type ConfigResult struct {
	Name          string                 `json:"name"`
	Sources       []retrieval.SourceName `json:"sources,omitempty"`
	Queries       int                    `json:"queries"`
	Failures      int                    `json:"failures"`
	PrecisionAt5  float64                `json:"precisionAt5"`
	PrecisionAt10 float64                `json:"precisionAt10"`
	// Dimensions breaks the scores down by query dimension, for sets
	// whose records are labeled with one
	Dimensions map[string]DimensionResult `json:"dimensions,omitempty"`
	Outcomes   []QueryOutcome             `json:"outcomes,omitempty"`
}

// Report is a full evaluation run: the unified configuration plus one
// ablation per source, against a shared random baseline.
type Report struct {
	QuerySet       string         `json:"querySet"`
	PoolSize       int            `json:"poolSize"`
	RandomBaseline float64        `json:"randomBaseline"`
	GeneratedAt    time.Time      `json:"generatedAt"`
	Configs        []ConfigResult `json:"configs"`
}

// Harness runs labeled query sets through the query engine.
type Harness struct {
	engine *retrieval.Engine
	logger *logging.Logger
}

// NewHarness creates an evaluation harness around an engine.
func NewHarness(engine *retrieval.Engine, logger *logging.Logger) *Harness {
	return &Harness{engine: engine, logger: logger}
}

// Run evaluates the query set under the unified configuration and one
// single-source ablation per registered source. poolSize is the number
// of candidate documents, used for the random baseline.
func (h *Harness) Run(ctx context.Context, qs *QuerySet, poolSize int) (*Report, error) {
	report := &Report{
		QuerySet:       qs.Name,
		PoolSize:       poolSize,
		RandomBaseline: randomBaseline(qs, poolSize),
		GeneratedAt:    time.Now().UTC(),
	}

	unified, err := h.runConfig(ctx, "unified", nil, qs)
	if err != nil {
		return nil, err
	}
	report.Configs = append(report.Configs, unified)

	names := h.engine.SourceNames()
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, name := range names {
		cfg, err := h.runConfig(ctx, string(name), []retrieval.SourceName{name}, qs)
		if err != nil {
			return nil, err
		}
		report.Configs = append(report.Configs, cfg)
	}

	return report, nil
}

func (h *Harness) runConfig(ctx context.Context, name string, filter []retrieval.SourceName, qs *QuerySet) (ConfigResult, error) {
	result := ConfigResult{Name: name, Sources: filter, Queries: len(qs.Queries)}

	var sum5, sum10 float64
	dimSums := make(map[string]*DimensionResult)
	for _, record := range qs.Queries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome := QueryOutcome{ID: record.ID, Query: record.Query}
		resp, err := h.engine.Query(ctx, record.Query, retrieval.Options{
			Limit:        10,
			SourceFilter: filter,
		})
		if err != nil {
			// A failed query scores zero rather than aborting the run;
			// single-source ablations routinely hit unavailable sources
			outcome.Error = err.Error()
			result.Failures++
			h.logger.Debug("eval query failed", map[string]interface{}{
				"config": name,
				"query":  record.Query,
				"error":  err.Error(),
			})
		} else {
			ranked := make([]string, len(resp.Results))
			for i, r := range resp.Results {
				ranked[i] = r.DocID
			}
			outcome.Returned = len(ranked)
			outcome.PrecisionAt5 = PrecisionAtK(ranked, record.Expected, 5)
			outcome.PrecisionAt10 = PrecisionAtK(ranked, record.Expected, 10)
		}

		sum5 += outcome.PrecisionAt5
		sum10 += outcome.PrecisionAt10
		if record.Dimension != "" {
			dim := dimSums[record.Dimension]
			if dim == nil {
				dim = &DimensionResult{}
				dimSums[record.Dimension] = dim
			}
			dim.Queries++
			dim.PrecisionAt5 += outcome.PrecisionAt5
			dim.PrecisionAt10 += outcome.PrecisionAt10
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	if result.Queries > 0 {
		result.PrecisionAt5 = sum5 / float64(result.Queries)
		result.PrecisionAt10 = sum10 / float64(result.Queries)
	}
	if len(dimSums) > 0 {
		result.Dimensions = make(map[string]DimensionResult, len(dimSums))
		for name, dim := range dimSums {
			result.Dimensions[name] = DimensionResult{
				Queries:       dim.Queries,
				PrecisionAt5:  dim.PrecisionAt5 / float64(dim.Queries),
				PrecisionAt10: dim.PrecisionAt10 / float64(dim.Queries),
			}
		}
	}
	return result, nil
}

// PrecisionAtK scores how many of the top k ranked ids are relevant,
// normalized by min(k, len(truth)) so short truth sets can still reach
// a perfect score.
func PrecisionAtK(ranked, truth []string, k int) float64 {
	if k <= 0 || len(truth) == 0 {
		return 0
	}

	relevant := make(map[string]struct{}, len(truth))
	for _, id := range truth {
		relevant[id] = struct{}{}
	}

	if k > len(ranked) {
		k = len(ranked)
	}
	hits := 0
	for _, id := range ranked[:k] {
		if _, ok := relevant[id]; ok {
			hits++
		}
	}

	denom := len(truth)
	if denom > k {
		denom = k
	}
	if denom == 0 {
		return 0
	}
	return float64(hits) / float64(denom)
}

// randomBaseline is the expected precision of ranking the candidate
// pool uniformly at random: the average truth-set share of the pool.
func randomBaseline(qs *QuerySet, poolSize int) float64 {
	if poolSize <= 0 || len(qs.Queries) == 0 {
		return 0
	}
	var total float64
	for _, q := range qs.Queries {
		total += float64(len(q.Expected))
	}
	avg := total / float64(len(qs.Queries))
	baseline := avg / float64(poolSize)
	if baseline > 1 {
		baseline = 1
	}
	return baseline
}

// FormatReport renders a report as an aligned text table.
func FormatReport(report *Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Evaluation: %s\n", report.QuerySet))
	sb.WriteString(fmt.Sprintf("Candidate pool: %d documents, random baseline P=%.4f\n\n",
		report.PoolSize, report.RandomBaseline))

	sb.WriteString(fmt.Sprintf("%-12s %8s %8s %10s %10s %10s\n",
		"Config", "P@5", "P@10", "vs Random", "Queries", "Failures"))
	sb.WriteString(strings.Repeat("-", 64) + "\n")

	for _, cfg := range report.Configs {
		vsRandom := "-"
		if report.RandomBaseline > 0 {
			vsRandom = fmt.Sprintf("%.1fx", cfg.PrecisionAt5/report.RandomBaseline)
		}
		sb.WriteString(fmt.Sprintf("%-12s %8.4f %8.4f %10s %10d %10d\n",
			cfg.Name, cfg.PrecisionAt5, cfg.PrecisionAt10, vsRandom,
			cfg.Queries, cfg.Failures))
	}

	return sb.String()
}

// MarshalReport renders a report as indented JSON.
func MarshalReport(report *Report) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}
