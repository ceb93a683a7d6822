package index

import (
	"regexp"
	"strings"
)

// sentenceSplitter matches greedy sentence-shaped runs ending in
// terminal punctuation.
var sentenceSplitter = regexp.MustCompile(`[^.!?]+[.!?]+`)

// Chunk splits text deterministically into bounded-size chunks: it is a
// pure function of (text, maxSize, overlap), so re-chunking identical
// text always yields identical chunks and regeneration stays idempotent.
//
// Paragraph boundaries are preferred, then sentence boundaries. A single
// unit longer than maxSize falls back to fixed-width rune slices of
// maxSize advancing by maxSize-overlap. maxSize and overlap are counted
// in runes.
func Chunk(text string, maxSize, overlap int) []string {
	if maxSize <= 0 {
		maxSize = 500
	}
	if overlap < 0 || overlap >= maxSize {
		overlap = 0
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var pieces []string
	for _, para := range splitParagraphs(text) {
		if runeLen(para) <= maxSize {
			pieces = append(pieces, para)
			continue
		}
		for _, sentence := range splitSentences(para) {
			if runeLen(sentence) <= maxSize {
				pieces = append(pieces, sentence)
				continue
			}
			pieces = append(pieces, sliceFixed(sentence, maxSize, overlap)...)
		}
	}

	// greedy packing: join adjacent pieces while they fit the budget.
	var chunks []string
	var current strings.Builder
	currentLen := 0
	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}
	for _, piece := range pieces {
		pl := runeLen(piece)
		if currentLen > 0 && currentLen+1+pl > maxSize {
			flush()
		}
		if currentLen > 0 {
			current.WriteString(" ")
			currentLen++
		}
		current.WriteString(piece)
		currentLen += pl
	}
	flush()
	return chunks
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitSentences(text string) []string {
	spans := sentenceSplitter.FindAllStringIndex(text, -1)
	if len(spans) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	out := make([]string, 0, len(spans)+1)
	for _, span := range spans {
		if s := strings.TrimSpace(text[span[0]:span[1]]); s != "" {
			out = append(out, s)
		}
	}
	// trailing run without terminal punctuation
	if rest := strings.TrimSpace(text[spans[len(spans)-1][1]:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// sliceFixed cuts text into windows of maxSize runes advancing by
// maxSize-overlap, the documented fallback when no boundary fits.
func sliceFixed(text string, maxSize, overlap int) []string {
	runes := []rune(text)
	step := maxSize - overlap
	if step <= 0 {
		step = maxSize
	}
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + maxSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, strings.TrimSpace(string(runes[start:end])))
		if end == len(runes) {
			break
		}
	}
	return out
}

func runeLen(s string) int {
	return len([]rune(s))
}
