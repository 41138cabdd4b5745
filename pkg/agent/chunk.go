package agent

import (
	"strings"
	"unicode"
)

const (
	singleChunkMaxLen = 44
	twoChunkMaxLen    = 92
	splitWindow       = 10
	minChunkLen       = 6
)

var sentencePunct = ".?!,;:。！？"

// ChunkForTTS splits text into the chunk sequence the TTS pipeline
// synthesizes independently, per SPEC_FULL.md §4.8 step 1. Short text
// never splits; otherwise a target chunk count is chosen by length and
// capped by maxChunks, split points are chosen greedily preferring
// sentence punctuation over whitespace within a window around each
// equal-length target, and any resulting chunk under minChunkLen runes is
// merged into its predecessor.
func ChunkForTTS(text string, maxChunks int) []string {
	runes := []rune(text)
	if maxChunks <= 0 {
		maxChunks = 3
	}
	if len(runes) <= singleChunkMaxLen || maxChunks == 1 {
		return []string{text}
	}

	target := 2
	if len(runes) > twoChunkMaxLen {
		target = 3
	}
	if target > maxChunks {
		target = maxChunks
	}
	if target <= 1 {
		return []string{text}
	}

	splitPoints := chooseSplitPoints(runes, target)
	chunks := splitAt(runes, splitPoints)
	return mergeShortChunks(chunks)
}

func chooseSplitPoints(runes []rune, target int) []int {
	n := len(runes)
	equalLen := n / target

	points := make([]int, 0, target-1)
	for i := 1; i < target; i++ {
		idealTarget := i * equalLen
		lo := idealTarget - splitWindow
		if lo < 0 {
			lo = 0
		}
		hi := idealTarget + splitWindow
		if hi > n-1 {
			hi = n - 1
		}

		point := findSplitInWindow(runes, lo, hi, idealTarget)
		points = append(points, point)
	}
	return points
}

// findSplitInWindow scans right-to-left within [lo, hi] for a preferred
// split position: sentence punctuation first (splitting just after it),
// whitespace second (splitting at it), falling back to idealTarget itself.
func findSplitInWindow(runes []rune, lo, hi, idealTarget int) int {
	for j := hi; j >= lo; j-- {
		if strings.ContainsRune(sentencePunct, runes[j]) {
			if j+1 <= len(runes) {
				return j + 1
			}
		}
	}
	for j := hi; j >= lo; j-- {
		if unicode.IsSpace(runes[j]) {
			return j
		}
	}
	return idealTarget
}

func splitAt(runes []rune, points []int) []string {
	chunks := make([]string, 0, len(points)+1)
	prev := 0
	for _, p := range points {
		if p < prev {
			p = prev
		}
		if p > len(runes) {
			p = len(runes)
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[prev:p])))
		prev = p
	}
	chunks = append(chunks, strings.TrimSpace(string(runes[prev:])))
	return nonEmpty(chunks)
}

func nonEmpty(chunks []string) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}

func mergeShortChunks(chunks []string) []string {
	if len(chunks) <= 1 {
		return chunks
	}
	out := []string{chunks[0]}
	for _, c := range chunks[1:] {
		if len([]rune(c)) < minChunkLen {
			out[len(out)-1] = strings.TrimSpace(out[len(out)-1] + " " + c)
			continue
		}
		out = append(out, c)
	}
	return out
}
