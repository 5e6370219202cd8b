package extractor

import "watchface-scraper/internal/types"

// Deduplicate keeps the first record for each (name, imageUrl) pair and
// preserves first-seen order.
func Deduplicate(candidates []*types.CandidateRecord) []*types.CandidateRecord {
	seen := make(map[types.DedupKey]bool, len(candidates))
	unique := make([]*types.CandidateRecord, 0, len(candidates))

	for _, c := range candidates {
		if c == nil {
			continue
		}
		key := c.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, c)
	}

	return unique
}
