// Package chunker splits unit text into translatable chunks and
// reassembles translated chunks in source order.
//
// Text is split on paragraph breaks first; paragraphs that still exceed
// the budget are split on sentence boundaries. Fragments are packed
// greedily into chunks, and each chunk records the separator that
// preceded it, so reassembly reproduces the source text exactly.
package chunker

import (
	"strings"
	"unicode/utf8"

	"pdf-translator/internal/types"
)

const (
	// DefaultMaxChars is the default chunk budget in characters.
	DefaultMaxChars = 4500

	paragraphSep = "\n\n"
	sentenceSep  = ". "
)

// Chunker splits text into chunks no longer than its character budget.
type Chunker struct {
	maxChars int
}

// New returns a Chunker with the given character budget per chunk.
// Non-positive budgets fall back to DefaultMaxChars.
func New(maxChars int) *Chunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Chunker{maxChars: maxChars}
}

// fragment is one splittable piece of text together with the separator
// that preceded it in the source.
type fragment struct {
	join string
	text string
}

// fragments splits text on paragraph breaks, then splits oversized
// paragraphs on sentence boundaries.
func (c *Chunker) fragments(text string) []fragment {
	var frags []fragment
	for i, p := range strings.Split(text, paragraphSep) {
		join := ""
		if i > 0 {
			join = paragraphSep
		}
		if utf8.RuneCountInString(p) <= c.maxChars {
			frags = append(frags, fragment{join: join, text: p})
			continue
		}
		for j, s := range strings.Split(p, sentenceSep) {
			sj := join
			if j > 0 {
				sj = sentenceSep
			}
			frags = append(frags, fragment{join: sj, text: s})
		}
	}
	return frags
}

// Split breaks the text of the unit at unitIndex into ordered chunks.
// Whitespace-only fragments are dropped; ordinals stay consecutive.
// A single sentence above the budget passes through as one oversized
// chunk rather than being cut mid-sentence.
func (c *Chunker) Split(unitIndex int, text string) []types.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= c.maxChars {
		return []types.Chunk{{UnitIndex: unitIndex, Text: text}}
	}

	var chunks []types.Chunk
	var buf strings.Builder
	bufLen := 0   // runes in buf
	bufJoin := "" // separator that preceded the buffer's first fragment

	flush := func() {
		if strings.TrimSpace(buf.String()) != "" {
			chunks = append(chunks, types.Chunk{
				UnitIndex: unitIndex,
				Ordinal:   len(chunks),
				Text:      buf.String(),
				Join:      bufJoin,
			})
		}
		buf.Reset()
		bufLen = 0
	}

	for _, f := range c.fragments(text) {
		if strings.TrimSpace(f.text) == "" {
			continue
		}
		fLen := utf8.RuneCountInString(f.text)
		jLen := utf8.RuneCountInString(f.join)
		if bufLen > 0 && bufLen+jLen+fLen > c.maxChars {
			flush()
		}
		if bufLen == 0 {
			bufJoin = f.join
		} else {
			buf.WriteString(f.join)
			bufLen += jLen
		}
		buf.WriteString(f.text)
		bufLen += fLen
	}
	flush()

	return chunks
}

// Reassemble merges translated chunk texts back into unit text, restoring
// each chunk's source joiner. texts must be aligned with chunks and in
// ordinal order; passing nil texts reassembles the source chunks themselves.
func Reassemble(chunks []types.Chunk, texts []string) string {
	var sb strings.Builder
	for i, ch := range chunks {
		sb.WriteString(ch.Join)
		if texts == nil {
			sb.WriteString(ch.Text)
		} else {
			sb.WriteString(texts[i])
		}
	}
	return sb.String()
}
