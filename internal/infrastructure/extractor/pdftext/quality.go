package pdftext

import (
	"strings"
	"unicode"
)

const (
	maxSpecialRatio   = 0.3
	maxShortLineRatio = 0.5
	minTextLength     = 50
)

// Quality scores extracted text in [0,1]. Garbled output (many symbols,
// fragmented lines, very little text) scores low.
func Quality(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	var total, special int
	for _, r := range trimmed {
		total++
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			special++
		}
	}

	lines := strings.Split(trimmed, "\n")
	short := 0
	for _, line := range lines {
		if len([]rune(strings.TrimSpace(line))) < 3 {
			short++
		}
	}

	score := 1.0
	if float64(special)/float64(total) > maxSpecialRatio {
		score -= 0.4
	}
	if float64(short) > float64(len(lines))*maxShortLineRatio {
		score -= 0.3
	}
	if total < minTextLength {
		score -= 0.3
	}
	return max(score, 0)
}
