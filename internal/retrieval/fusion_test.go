package retrieval

import (
	"math"
	"testing"
)

func makeResult(docID string, source SourceName) Result {
	return Result{
		DocID:   docID,
		Content: "Content for " + docID,
		Source:  source,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFuseSingleListScores(t *testing.T) {
	list := []Result{
		makeResult("a", SourceSemantic),
		makeResult("b", SourceSemantic),
		makeResult("c", SourceSemantic),
	}

	fused := Fuse([][]Result{list}, 60, 10)

	if len(fused) != 3 {
		t.Fatalf("got %d results, want 3", len(fused))
	}
	// Exact single-list scores: 1/(k+rank+1)
	for i, want := range []float64{1.0 / 61, 1.0 / 62, 1.0 / 63} {
		if !almostEqual(fused[i].FusedScore, want) {
			t.Errorf("rank %d score = %v, want %v", i, fused[i].FusedScore, want)
		}
	}
	if fused[0].DocID != "a" || fused[1].DocID != "b" || fused[2].DocID != "c" {
		t.Errorf("order = %v %v %v", fused[0].DocID, fused[1].DocID, fused[2].DocID)
	}
}

func TestFuseDisjointListsNoCrossContamination(t *testing.T) {
	listA := []Result{makeResult("a", SourceSemantic), makeResult("b", SourceSemantic)}
	listB := []Result{makeResult("c", SourceLexical), makeResult("d", SourceLexical)}

	fused := Fuse([][]Result{listA, listB}, 60, 10)

	scores := map[string]float64{}
	for _, f := range fused {
		scores[f.DocID] = f.FusedScore
	}
	if !almostEqual(scores["a"], 1.0/61) || !almostEqual(scores["c"], 1.0/61) {
		t.Errorf("disjoint docs should keep single-list scores: %v", scores)
	}
}

func TestFuseAgreementBoost(t *testing.T) {
	listA := []Result{makeResult("x", SourceSemantic), makeResult("y", SourceSemantic)}
	listB := []Result{makeResult("y", SourceLexical), makeResult("z", SourceLexical)}

	fused := Fuse([][]Result{listA, listB}, 60, 10)

	// y appears at rank 1 in A and rank 0 in B: 1/62 + 1/61
	if fused[0].DocID != "y" {
		t.Fatalf("top doc = %s, want y", fused[0].DocID)
	}
	want := 1.0/62 + 1.0/61
	if !almostEqual(fused[0].FusedScore, want) {
		t.Errorf("y score = %v, want %v", fused[0].FusedScore, want)
	}
	if !almostEqual(fused[0].FusedScore, fused[0].Contributions[SourceSemantic].RRFScore+fused[0].Contributions[SourceLexical].RRFScore) {
		t.Error("fused score should equal sum of contributions")
	}
	if len(fused[0].Sources) != 2 {
		t.Errorf("y sources = %v, want both", fused[0].Sources)
	}
	// Spec scenario: y > x > z
	if fused[1].DocID != "x" || fused[2].DocID != "z" {
		t.Errorf("order = %v, want y,x,z", []string{fused[0].DocID, fused[1].DocID, fused[2].DocID})
	}
}

func TestFuseFirstSeenContentWins(t *testing.T) {
	listA := []Result{{DocID: "d", Content: "first", Source: SourceSemantic}}
	listB := []Result{{DocID: "d", Content: "second", Source: SourceLexical, Metadata: Metadata{FilePath: "x.go"}}}

	fused := Fuse([][]Result{listA, listB}, 60, 10)

	if fused[0].Content != "first" {
		t.Errorf("content = %q, later duplicates must not overwrite", fused[0].Content)
	}
	if fused[0].Metadata.FilePath != "" {
		t.Error("metadata should come from first occurrence")
	}
}

func TestFuseDedupWithinOneList(t *testing.T) {
	// Defensive dedup: the same id twice in one list counts once, first
	// occurrence wins.
	list := []Result{
		makeResult("dup", SourceLexical),
		makeResult("other", SourceLexical),
		makeResult("dup", SourceLexical),
	}

	fused := Fuse([][]Result{list}, 60, 10)

	if len(fused) != 2 {
		t.Fatalf("got %d results, want 2", len(fused))
	}
	for _, f := range fused {
		if f.DocID == "dup" && !almostEqual(f.FusedScore, 1.0/61) {
			t.Errorf("dup score = %v, want rank-0 term only", f.FusedScore)
		}
	}
}

func TestFuseTruncatesToLimit(t *testing.T) {
	list := []Result{
		makeResult("a", SourceSemantic),
		makeResult("b", SourceSemantic),
		makeResult("c", SourceSemantic),
	}

	fused := Fuse([][]Result{list}, 60, 2)

	if len(fused) != 2 {
		t.Fatalf("got %d results, want exactly 2", len(fused))
	}
}

func TestFuseTieBreakByDocID(t *testing.T) {
	// Equal ranks in separate lists produce identical scores; order must
	// still be deterministic across runs.
	listA := []Result{makeResult("zulu", SourceSemantic)}
	listB := []Result{makeResult("alpha", SourceLexical)}

	for i := 0; i < 20; i++ {
		fused := Fuse([][]Result{listA, listB}, 60, 10)
		if fused[0].DocID != "alpha" || fused[1].DocID != "zulu" {
			t.Fatalf("run %d: tie not broken by doc id: %v, %v", i, fused[0].DocID, fused[1].DocID)
		}
	}
}

func TestFuseEmptyInput(t *testing.T) {
	if got := Fuse(nil, 60, 10); len(got) != 0 {
		t.Errorf("nil input produced %d results", len(got))
	}
	if got := Fuse([][]Result{{}, {}}, 60, 10); len(got) != 0 {
		t.Errorf("empty lists produced %d results", len(got))
	}
}

func TestFuseCommutative(t *testing.T) {
	listA := []Result{makeResult("x", SourceSemantic), makeResult("y", SourceSemantic)}
	listB := []Result{makeResult("y", SourceLexical), makeResult("z", SourceLexical)}

	ab := Fuse([][]Result{listA, listB}, 60, 10)
	ba := Fuse([][]Result{listB, listA}, 60, 10)

	if len(ab) != len(ba) {
		t.Fatalf("lengths differ: %d vs %d", len(ab), len(ba))
	}
	for i := range ab {
		if ab[i].DocID != ba[i].DocID || !almostEqual(ab[i].FusedScore, ba[i].FusedScore) {
			t.Errorf("position %d differs: %+v vs %+v", i, ab[i], ba[i])
		}
	}
}

func TestFuseWeighted(t *testing.T) {
	listA := []Result{makeResult("a", SourceSemantic)}
	listB := []Result{makeResult("b", SourceTemporal)}

	weights := map[SourceName]float64{SourceTemporal: 2.0}
	fused := FuseWeighted([][]Result{listA, listB}, 60, 10, weights)

	if fused[0].DocID != "b" {
		t.Fatalf("weighted source should rank first, got %s", fused[0].DocID)
	}
	if !almostEqual(fused[0].FusedScore, 2.0/61) {
		t.Errorf("weighted score = %v, want %v", fused[0].FusedScore, 2.0/61)
	}
}

func TestFuseContributionRanks(t *testing.T) {
	list := []Result{
		{DocID: "a", Source: SourceLexical, RawScore: 3.5},
		{DocID: "b", Source: SourceLexical, RawScore: 1.2},
	}

	fused := Fuse([][]Result{list}, 60, 10)

	for _, f := range fused {
		c, ok := f.Contributions[SourceLexical]
		if !ok {
			t.Fatalf("missing contribution for %s", f.DocID)
		}
		switch f.DocID {
		case "a":
			if c.Rank != 0 || !almostEqual(c.RawScore, 3.5) {
				t.Errorf("a contribution = %+v", c)
			}
		case "b":
			if c.Rank != 1 || !almostEqual(c.RawScore, 1.2) {
				t.Errorf("b contribution = %+v", c)
			}
		}
	}
}
