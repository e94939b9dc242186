package match

import "strings"

// DefaultThreshold is the fuzzy-window similarity cutoff. Tuned against
// the provider corpus; 0.82 absorbs plural/spelling drift ("Toitures" vs
// "Toiture") without over-matching short names.
const DefaultThreshold = 0.82

// IsMentioned decides whether the target business is referenced in text.
// Four graduated checks, cheapest first:
//
//  1. exact: normalized name is a substring of the normalized text
//  2. word subset: every normalized name word longer than 2 chars appears
//     individually in the normalized text
//  3. fuzzy: a sliding token window of the normalized text is similar to
//     the normalized name at or above threshold
//  4. domain: the website's domain token appears in the normalized text
//     (catches citation-by-URL instead of by name)
//
// A name that normalizes to "" is never mentioned.
func IsMentioned(text, name, website string, threshold float64) bool {
	normText := Normalize(text)
	normName := Normalize(name)
	if normName == "" {
		return false
	}

	if strings.Contains(normText, normName) {
		return true
	}

	words := longWords(normName)
	if len(words) > 0 && allContained(normText, words) {
		return true
	}

	textTokens := strings.Fields(normText)
	nameTokens := strings.Fields(normName)
	for i := range textTokens {
		for size := len(nameTokens); size <= len(nameTokens)+3; size++ {
			end := i + size
			if end > len(textTokens) {
				end = len(textTokens)
			}
			window := strings.Join(textTokens[i:end], " ")
			if similarity(normName, window) >= threshold {
				return true
			}
			if end == len(textTokens) {
				break
			}
		}
	}

	if website != "" {
		if d := domainToken(website); len(d) > 2 && strings.Contains(normText, d) {
			return true
		}
	}
	return false
}

func longWords(normName string) []string {
	var out []string
	for _, w := range strings.Fields(normName) {
		if len(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}

func allContained(normText string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(normText, w) {
			return false
		}
	}
	return true
}

// similarity is a symmetric 0-1 ratio based on the longest common
// subsequence: 2*LCS/(len(a)+len(b)). It is 1.0 only when a == b and
// grows monotonically with shared substrings.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	lcs := prev[len(rb)]
	return 2.0 * float64(lcs) / float64(len(ra)+len(rb))
}
