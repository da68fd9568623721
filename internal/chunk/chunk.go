// Package chunk splits document text into sentence-aligned spans sized for a
// speech engine.
package chunk

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultBudget is the chunk size, in runes, used when Split is given a
// non-positive budget.
const DefaultBudget = 200

// Chunk is a contiguous span of the chunked text. Start and End are byte
// offsets with End-Start == len(Text).
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// span is a half-open byte range of the source text.
type span struct {
	start, end int
}

// Split partitions text into chunks. Sentences end after a run of '.', '!'
// or '?'; consecutive sentences are packed greedily while the accumulated
// length stays within budget runes. A sentence longer than the budget becomes
// a chunk of its own and is never split.
func Split(text string, budget int) []Chunk {
	if budget <= 0 {
		budget = DefaultBudget
	}

	var chunks []Chunk
	flush := func(s span) {
		start, end := trimSpan(text, s)
		if start >= end {
			return
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  text[start:end],
			Start: start,
			End:   end,
		})
	}

	var (
		current      span
		currentRunes int
		open         bool
	)
	for _, cand := range sentences(text) {
		n := utf8.RuneCountInString(text[cand.start:cand.end])
		if open && currentRunes+n <= budget {
			current.end = cand.end
			currentRunes += n
			continue
		}
		if open {
			flush(current)
		}
		current, currentRunes, open = cand, n, true
	}
	if open {
		flush(current)
	}
	return chunks
}

// sentences returns contiguous candidate spans covering all of text. Each
// span ends after a run of terminators; the remainder after the last
// terminator is the final span.
func sentences(text string) []span {
	var out []span
	start := 0
	for i := 0; i < len(text); {
		if !isTerminator(text[i]) {
			i++
			continue
		}
		for i < len(text) && isTerminator(text[i]) {
			i++
		}
		out = append(out, span{start, i})
		start = i
	}
	if start < len(text) {
		out = append(out, span{start, len(text)})
	}
	return out
}

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

// trimSpan narrows s to exclude leading and trailing Unicode whitespace.
func trimSpan(text string, s span) (int, int) {
	seg := text[s.start:s.end]
	left := strings.TrimLeftFunc(seg, unicode.IsSpace)
	start := s.start + len(seg) - len(left)
	trimmed := strings.TrimRightFunc(left, unicode.IsSpace)
	return start, start + len(trimmed)
}

// SpokenOffset returns the offset of chunk i within Join(chunks): the sum of
// the preceding chunk lengths plus one separator each.
func SpokenOffset(chunks []Chunk, i int) int {
	if i > len(chunks) {
		i = len(chunks)
	}
	offset := 0
	for k := 0; k < i; k++ {
		offset += len(chunks[k].Text) + 1
	}
	return offset
}

// Join concatenates chunk texts separated by single spaces.
func Join(chunks []Chunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, " ")
}
