package match

import "sort"

// DefaultTopK bounds result lists when the caller does not specify a limit.
const DefaultTopK = 10

// Rank orders scored candidates descending by composite score, deduplicates
// by consultant id and truncates to topK. Ties break by insertion order
// (never by identity hashing), so identical input always yields identical
// output. When duplicates arise the highest score wins; equal scores keep
// the earliest occurrence.
func Rank(candidates []ScoredCandidate, topK int) []ScoredCandidate {
	if topK <= 0 {
		topK = DefaultTopK
	}

	best := make(map[string]int, len(candidates)) // consultant id → index into deduped
	deduped := make([]ScoredCandidate, 0, len(candidates))
	for _, cand := range candidates {
		idx, seen := best[cand.Consultant.ID]
		if !seen {
			best[cand.Consultant.ID] = len(deduped)
			deduped = append(deduped, cand)
			continue
		}
		if cand.Score > deduped[idx].Score {
			deduped[idx] = cand
		}
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Score > deduped[j].Score
	})

	if len(deduped) > topK {
		deduped = deduped[:topK]
	}
	return deduped
}
