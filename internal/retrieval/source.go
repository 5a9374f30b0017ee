// Package retrieval implements multi-source knowledge retrieval for dkb.
// Independent retrieval strategies are queried behind the Source interface,
// and their ranked lists are merged with reciprocal rank fusion.
package retrieval

import "context"

// SourceName identifies a retrieval source. The set is closed: the engine
// registers sources explicitly and the ablation filter enumerates them.
type SourceName string

const (
	// SourceSemantic retrieves by embedding similarity
	SourceSemantic SourceName = "semantic"
	// SourceLexical retrieves by full-text match
	SourceLexical SourceName = "lexical"
	// SourceTemporal retrieves by git co-change signal
	SourceTemporal SourceName = "temporal"
	// SourceBelief retrieves verified claims by confidence
	SourceBelief SourceName = "belief"
	// SourcePersona retrieves cross-project user knowledge
	SourcePersona SourceName = "persona"
)

// AllSourceNames lists every known source in registration order.
func AllSourceNames() []SourceName {
	return []SourceName{SourceSemantic, SourceLexical, SourceTemporal, SourceBelief, SourcePersona}
}

// ValidSourceName reports whether name is one of the known sources.
func ValidSourceName(name SourceName) bool {
	switch name {
	case SourceSemantic, SourceLexical, SourceTemporal, SourceBelief, SourcePersona:
		return true
	}
	return false
}

// Metadata carries optional, source-specific context. Fusion treats it as
// opaque and copies it from the first source that produced a document.
type Metadata struct {
	FilePath  string `json:"filePath,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	EventType string `json:"eventType,omitempty"`
}

// Result is one hit from one source. DocID is the fusion join key: two
// sources returning the same DocID refer to the same logical document.
type Result struct {
	DocID   string     `json:"docId"`
	Content string     `json:"content"`
	Source  SourceName `json:"source"`
	// RawScore is the source's own score (cosine, bm25, co-change count).
	// Scales differ per source; fusion only uses rank position.
	RawScore float64  `json:"rawScore,omitempty"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// Source is one independent retrieval strategy. Implementations own their
// backing storage and timeout policy; the engine depends on nothing else.
type Source interface {
	// Name returns the stable identifier used for provenance and filtering.
	Name() SourceName

	// Query returns ranked results, best first. Failures are returned as
	// errors, never panics; the engine degrades a failed source to an
	// empty contribution.
	Query(ctx context.Context, text string, limit int) ([]Result, error)

	// IsAvailable is a cheap, side-effect-free check for whether the
	// backing index/table exists and has rows. An unavailable source is
	// skipped, not treated as an error.
	IsAvailable() bool
}
