package internal

import (
	"slices"
	"strings"
)

// Suggestion limits
const (
	SuggestionMinDistance = 2
	SuggestionPrefix      = ". Did you mean "
)

// FindSimilarStrings returns up to maxSuggestions candidates close to target,
// closest first. Candidates equal to target are skipped.
func FindSimilarStrings(target string, candidates []string, maxSuggestions int) []string {
	if target == "" || len(candidates) == 0 || maxSuggestions <= 0 {
		return nil
	}

	maxDistance := max(len(target)/2, SuggestionMinDistance)

	type scored struct {
		str      string
		distance int
	}

	var similar []scored
	targetLower := strings.ToLower(target)
	for _, candidate := range candidates {
		candidateLower := strings.ToLower(candidate)
		if candidateLower == targetLower {
			continue
		}
		if dist := levenshteinDistance(targetLower, candidateLower); dist <= maxDistance {
			similar = append(similar, scored{str: candidate, distance: dist})
		}
	}

	slices.SortStableFunc(similar, func(a, b scored) int {
		return a.distance - b.distance
	})

	result := make([]string, 0, min(len(similar), maxSuggestions))
	for i := 0; i < len(similar) && i < maxSuggestions; i++ {
		result = append(result, similar[i].str)
	}
	return result
}

// levenshteinDistance counts the single-byte edits turning a into b
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// FormatSuggestions renders suggestions as a message suffix, for example
// ". Did you mean 'if' or 'unless'?"
func FormatSuggestions(suggestions []string) string {
	if len(suggestions) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(SuggestionPrefix)
	for i, s := range suggestions {
		if i > 0 {
			if i == len(suggestions)-1 {
				sb.WriteString(" or ")
			} else {
				sb.WriteString(", ")
			}
		}
		sb.WriteByte('\'')
		sb.WriteString(s)
		sb.WriteByte('\'')
	}
	sb.WriteByte('?')
	return sb.String()
}
