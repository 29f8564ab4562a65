// Package similarity provides the string-distance scoring used to validate
// that a search result actually matches what the caller asked for.
package similarity

// Score returns how similar two strings are, from 0 (nothing in common) to
// 1 (identical). It is symmetric and treats two empty strings as identical.
// Callers are expected to lowercase their inputs if they want a
// case-insensitive comparison.
func Score(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}
	if longer == 0 {
		return 1.0
	}
	return float64(longer-levenshtein(ra, rb)) / float64(longer)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(b); i++ {
		curr[0] = i
		for j := 1; j <= len(a); j++ {
			if b[i-1] == a[j-1] {
				curr[j] = prev[j-1]
			} else {
				curr[j] = min(prev[j-1], min(curr[j-1], prev[j])) + 1
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(a)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
