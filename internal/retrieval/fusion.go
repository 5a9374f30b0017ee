package retrieval

import "sort"

// DefaultRRFK is the standard damping constant from Cormack et al. (2009).
// Larger k flattens the influence of top ranks.
const DefaultRRFK = 60

// Contribution records one source's share of a fused result.
type Contribution struct {
	// Rank is the zero-based position within that source's list
	Rank int `json:"rank"`
	// RRFScore is this source's 1/(k+rank+1) term (after weighting)
	RRFScore float64 `json:"rrfScore"`
	// RawScore is the source's own score, if it reported one
	RawScore float64 `json:"rawScore,omitempty"`
}

// FusedResult is one entry in the final ranking, with provenance.
type FusedResult struct {
	DocID      string                      `json:"docId"`
	Content    string                      `json:"content"`
	FusedScore float64                     `json:"fusedScore"`
	// Sources lists every source that produced this doc, in the order
	// encountered across the input lists.
	Sources       []SourceName                `json:"sources"`
	Contributions map[SourceName]Contribution `json:"contributions,omitempty"`
	Metadata      Metadata                    `json:"metadata,omitempty"`
}

// Fuse merges ranked lists with reciprocal rank fusion: the score of a
// document is the sum over lists of 1/(k+rank+1). Rank position is all that
// matters, so sources with incommensurable score scales need no calibration,
// and a document several sources agree on is rewarded additively.
//
// Output is sorted by fused score descending; exact ties break by DocID
// ascending so repeated runs are byte-identical. If one list contains the
// same DocID twice the first occurrence wins and later ones are ignored.
func Fuse(lists [][]Result, k, limit int) []FusedResult {
	return FuseWeighted(lists, k, limit, nil)
}

// FuseWeighted is Fuse with per-source multiplicative weights. A missing
// entry means weight 1.0; nil weights is plain RRF.
func FuseWeighted(lists [][]Result, k, limit int, weights map[SourceName]float64) []FusedResult {
	if k <= 0 {
		k = DefaultRRFK
	}

	fused := make(map[string]*FusedResult)

	for _, list := range lists {
		// Dedup within a single list: first occurrence wins, later ranks
		// for the same id in the same list contribute nothing.
		seen := make(map[string]struct{}, len(list))

		for rank, r := range list {
			if _, dup := seen[r.DocID]; dup {
				continue
			}
			seen[r.DocID] = struct{}{}

			weight := 1.0
			if weights != nil {
				if w, ok := weights[r.Source]; ok {
					weight = w
				}
			}
			score := weight / float64(k+rank+1)

			f, ok := fused[r.DocID]
			if !ok {
				f = &FusedResult{
					DocID:         r.DocID,
					Content:       r.Content,
					Metadata:      r.Metadata,
					Contributions: make(map[SourceName]Contribution),
				}
				fused[r.DocID] = f
			}

			f.FusedScore += score
			f.Sources = append(f.Sources, r.Source)
			f.Contributions[r.Source] = Contribution{
				Rank:     rank,
				RRFScore: score,
				RawScore: r.RawScore,
			}
		}
	}

	out := make([]FusedResult, 0, len(fused))
	for _, f := range fused {
		out = append(out, *f)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		return out[i].DocID < out[j].DocID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
