package cluster

import "unicode"

// Title similarity for the candidate prefilter: Dice-Sørensen coefficient
// over 2-character intra-word bigrams. Bigrams never span word boundaries,
// so "new york" and "newyork" stay distinguishable. Punctuation is stripped
// before bigram extraction: "gpt-5:" and "gpt5" emit the same grams.

// bigrams collects the multiset of 2-char bigrams from each word, keeping
// only letters and digits.
func bigrams(s string) map[string]int {
	grams := make(map[string]int)
	word := make([]rune, 0, 32)

	flush := func() {
		for i := 0; i+1 < len(word); i++ {
			grams[string(word[i:i+2])]++
		}
		word = word[:0]
	}

	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word = append(word, unicode.ToLower(r))
		}
	}
	flush()

	return grams
}

// Similarity returns the Dice-Sørensen coefficient between two normalized
// titles, in [0,1]. Symmetric; identical titles score 1.
func Similarity(a, b string) float64 {
	ga := bigrams(a)
	gb := bigrams(b)

	totalA := 0
	for _, n := range ga {
		totalA += n
	}
	totalB := 0
	for _, n := range gb {
		totalB += n
	}
	if totalA+totalB == 0 {
		return 0
	}

	overlap := 0
	for gram, n := range ga {
		if m, ok := gb[gram]; ok {
			if m < n {
				overlap += m
			} else {
				overlap += n
			}
		}
	}

	return 2 * float64(overlap) / float64(totalA+totalB)
}
