// Completion: 100% - Name suggestions complete
package engine

import (
	"sort"
)

// maxSuggestDistance is the largest edit distance still offered as a suggestion
const maxSuggestDistance = 3

// LevenshteinDistance returns the edit distance between two names. Register
// names are ASCII, so it works on bytes and folds case.
func LevenshteinDistance(a, b string) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if lower(a[i-1]) == lower(b[j-1]) {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func lower(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

// FindSimilar returns up to maxSuggestions names within edit distance 3 of name,
// closest first, then alphabetically. An exact match is not a suggestion.
func FindSimilar(name string, available []string, maxSuggestions int) []string {
	type scored struct {
		name string
		dist int
	}
	var found []scored
	for _, candidate := range available {
		if candidate == name {
			continue
		}
		// lengths alone can rule a candidate out
		if d := len(candidate) - len(name); d > maxSuggestDistance || -d > maxSuggestDistance {
			continue
		}
		if dist := LevenshteinDistance(name, candidate); dist <= maxSuggestDistance {
			found = append(found, scored{candidate, dist})
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].dist != found[j].dist {
			return found[i].dist < found[j].dist
		}
		return found[i].name < found[j].name
	})
	if len(found) > maxSuggestions {
		found = found[:maxSuggestions]
	}
	out := make([]string, len(found))
	for i, s := range found {
		out[i] = s.name
	}
	return out
}
