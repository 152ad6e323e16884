package relevance

import (
	"sort"

	"github.com/Arnaud58/LlamaKeeper/pkg/storage"
)

const (
	// DefaultMaxMemories is the default per-character memory cap.
	DefaultMaxMemories = 100

	// DefaultForgetThreshold is the default importance below which a memory
	// is forgotten regardless of the cap.
	DefaultForgetThreshold = 0.2
)

// EvictionSet computes the ids of memories to forget for a character.
//
// The policy is a union of two independent rules:
//   - Threshold rule: every memory with importance below forgetThreshold is
//     evicted, regardless of how many memories the character holds.
//   - Capacity rule: if the total count still exceeds maxMemories after the
//     threshold rule, additional memories are evicted from the remainder,
//     least important and oldest first, until the count is at or under the cap.
//
// maxMemories <= 0 falls back to DefaultMaxMemories; a negative
// forgetThreshold disables the threshold rule (nothing has negative
// importance after clamping). An empty input yields an empty result: a
// character with zero memories is not an error.
//
// EvictionSet only decides; the caller performs the deletion. It must never
// be invoked from a read path.
func EvictionSet(records []*storage.Record, maxMemories int, forgetThreshold float64) []int64 {
	if maxMemories <= 0 {
		maxMemories = DefaultMaxMemories
	}

	// Least important first, oldest first among equals.
	sorted := make([]*storage.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Importance != sorted[j].Importance {
			return sorted[i].Importance < sorted[j].Importance
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	evicted := []int64{}
	survivors := make([]*storage.Record, 0, len(sorted))
	for _, record := range sorted {
		if record.Importance < forgetThreshold {
			evicted = append(evicted, record.ID)
		} else {
			survivors = append(survivors, record)
		}
	}

	// Capacity rule applies to what the threshold rule left behind.
	excess := len(survivors) - maxMemories
	for i := 0; i < excess; i++ {
		evicted = append(evicted, survivors[i].ID)
	}

	return evicted
}
