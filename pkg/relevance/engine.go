// Package relevance provides the memory relevance-ranking and retention engine.
//
// The engine scores stored memories against a query context, ranks and
// truncates results deterministically, and computes the eviction set that
// keeps a character's memory bounded. It performs no I/O: callers load
// records through a storage.Store and hand them in as slices.
package relevance

import (
	"reflect"
	"sort"
	"time"

	"github.com/Arnaud58/LlamaKeeper/pkg/storage"
)

const (
	// ContextMatchBonus is the score added for each query context key whose
	// value exactly equals the memory's stored value for the same key.
	ContextMatchBonus = 0.5

	// DefaultDecayWindow is the age at which a memory's relevance decays to
	// zero. Linear decay over 30 days.
	DefaultDecayWindow = 30 * 24 * time.Hour

	// DefaultTopK is the default number of memories returned by ranking.
	DefaultTopK = 5
)

// ScoredRecord pairs a memory record with its computed relevance score.
//
// Score is the raw composite score used as the sort key. It can exceed 1.0
// when multiple context keys match; use Clamp01 for display.
type ScoredRecord struct {
	// Record is the underlying memory record.
	Record *storage.Record

	// Score is the raw, time-decayed composite relevance score.
	Score float64
}

// Engine computes relevance scores for memories and ranks them.
//
// Scoring combines three terms:
//   - Context overlap: ContextMatchBonus per exactly-matching key/value pair
//     between the query context and the memory's stored context.
//   - Importance: the memory's importance weight, already in [0,1].
//   - Time decay: linear decay reaching zero at the decay window; memories
//     without a creation time skip decay entirely.
//
// The engine is stateless apart from its configuration and is safe for
// concurrent use.
//
// Example:
//
//	engine := relevance.NewEngine()
//	top := engine.Rank(records, map[string]interface{}{"loc": "forest"}, 5)
type Engine struct {
	// decayWindow is the age at which relevance decays to zero.
	decayWindow time.Duration

	// now returns the current time. Injectable for deterministic tests.
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithDecayWindow sets the age at which a memory's relevance reaches zero.
//
// Example:
//
//	engine := relevance.NewEngine(relevance.WithDecayWindow(7 * 24 * time.Hour))
func WithDecayWindow(window time.Duration) Option {
	return func(e *Engine) {
		e.decayWindow = window
	}
}

// WithClock sets the time source used for decay calculation.
//
// Intended for tests that need deterministic scoring.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a new relevance engine with the default 30-day decay
// window and the system clock.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		decayWindow: DefaultDecayWindow,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score computes the raw composite relevance score for a single memory
// against the query context.
//
// The returned value is the sort key: it is deliberately not clamped, since
// multiple context-key matches plus importance can legitimately exceed 1.0
// before decay. Missing or mismatched context keys contribute nothing and
// never cause an error.
func (e *Engine) Score(record *storage.Record, queryContext map[string]interface{}) float64 {
	contextScore := 0.0
	for key, value := range queryContext {
		stored, ok := record.Context[key]
		if ok && scalarEqual(stored, value) {
			contextScore += ContextMatchBonus
		}
	}

	raw := contextScore + record.Importance

	// Memories without a creation time skip decay.
	if record.CreatedAt.IsZero() {
		return raw
	}

	age := e.now().Sub(record.CreatedAt)
	decay := 1 - age.Seconds()/e.decayWindow.Seconds()
	if decay < 0 {
		decay = 0
	}

	return raw * decay
}

// Rank scores every record against the query context, sorts descending by
// score with descending importance as the tie-break, and returns the first
// topK entries (all entries when fewer exist, defaults to DefaultTopK when
// topK <= 0).
//
// The input slice is not modified. Rank never mutates the records.
func (e *Engine) Rank(records []*storage.Record, queryContext map[string]interface{}, topK int) []ScoredRecord {
	if topK <= 0 {
		topK = DefaultTopK
	}

	scored := make([]ScoredRecord, len(records))
	for i, record := range records {
		scored[i] = ScoredRecord{
			Record: record,
			Score:  e.Score(record, queryContext),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Record.Importance > scored[j].Record.Importance
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}

	return scored
}

// scalarEqual reports exact equality between two context values.
//
// Context tags are meant to be flat scalars, but callers own the payload:
// uncomparable values (maps, slices) count as non-matches instead of
// panicking.
func scalarEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

// Clamp01 clamps a raw relevance score into [0, 1] for external display.
//
// Comparison and ranking always use the unclamped score; only the reported
// relevance field is clamped.
func Clamp01(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
