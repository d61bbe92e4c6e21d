package templates

import "strings"

// matchKeywords splits keywords into those found in the answer and
// those missed, using case-insensitive substring containment.
func matchKeywords(answer string, keywords []string) (found, missed []string) {
	lower := strings.ToLower(answer)
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			found = append(found, k)
		} else {
			missed = append(missed, k)
		}
	}
	return found, missed
}

// coverage returns found/total, or 0 when there are no keywords.
func coverage(found, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(found) / float64(total)
}

// countSentences counts terminal punctuation runs, a rough sentence
// count used only for conciseness feedback.
func countSentences(s string) int {
	count := 0
	inRun := false
	for _, r := range s {
		switch r {
		case '.', '!', '?':
			if !inRun {
				count++
				inRun = true
			}
		default:
			inRun = false
		}
	}
	return count
}
