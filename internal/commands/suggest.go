package commands

// suggestionThreshold is the similarity a candidate must exceed for a
// "did you mean".
const suggestionThreshold = 0.6

// SuggestCommand returns the candidate most similar to the attempted name,
// or "" when nothing clears the threshold. Similarity is Jaccard overlap of
// the rune sets, which is cheap and good enough for short command names.
func SuggestCommand(attempted string, names []string) string {
	best := ""
	bestScore := suggestionThreshold
	for _, name := range names {
		if score := jaccard(attempted, name); score > bestScore {
			best = name
			bestScore = score
		}
	}
	return best
}

func jaccard(a, b string) float64 {
	if a == b {
		return 1
	}
	setA := runeSet(a)
	setB := runeSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for r := range setA {
		if setB[r] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func runeSet(s string) map[rune]bool {
	set := make(map[rune]bool, len(s))
	for _, r := range s {
		set[r] = true
	}
	return set
}
