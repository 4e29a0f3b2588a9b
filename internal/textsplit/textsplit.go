// Package textsplit cuts extracted text into overlapping, size-bounded
// segments for embedding. Splitting is a pure function of its inputs so the
// same document always chunks identically.
package textsplit

import (
	"strings"
	"unicode"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// Split cuts text into segments of at most size runes, preferring to end a
// segment at a sentence terminator found in the trailing half of the window,
// then at whitespace, then at the raw rune boundary. Each window restarts
// overlap runes before the previous cut. Whitespace-only segments are
// dropped; empty input yields nil.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var segments []string
	start := 0
	for start < n {
		end := start + size
		if end >= n {
			end = n
		} else {
			end = cutPoint(runes, start, end)
		}

		segment := strings.TrimSpace(string(runes[start:end]))
		if segment != "" {
			segments = append(segments, segment)
		}
		if end >= n {
			break
		}

		next := end - overlap
		if next <= start {
			// Guarantee forward progress on pathological size/overlap pairs.
			next = end
		}
		start = next
	}
	return segments
}

// cutPoint scans the trailing half of the window backward for a sentence
// terminator, then for whitespace. With neither present the raw boundary
// stands.
func cutPoint(runes []rune, start, end int) int {
	half := start + (end-start)/2

	for i := end - 1; i >= half; i-- {
		switch runes[i] {
		case '.', '!', '?':
			return i + 1
		}
	}
	for i := end - 1; i >= half; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}
