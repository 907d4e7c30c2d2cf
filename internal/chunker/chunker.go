// Package chunker splits derived text into overlapping token-bounded
// segments for vector indexing.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/lifedex/lifedex/internal/core/domain"
)

// DefaultTargetTokens is the default target tokens per chunk.
const DefaultTargetTokens = 900

// DefaultOverlapPercent is the default overlap as a fraction of the target.
const DefaultOverlapPercent = 0.15

// charsPerToken is the token estimate: roughly 4 characters per token.
// A deliberate simplification, not an approximation of any model's BPE.
const charsPerToken = 4

// boundaryWindow is how far around the candidate split position the
// boundary search looks, in characters.
const boundaryWindow = 200

var (
	headingPattern    = regexp.MustCompile(`\n#{1,6}\s+`)
	paragraphPattern  = regexp.MustCompile(`\n\n+`)
	sentencePattern   = regexp.MustCompile(`[.!?]\s+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Chunker splits text into overlapping chunks at natural boundaries.
type Chunker struct {
	targetTokens   int
	overlapPercent float64
}

// Option configures the chunker.
type Option func(*Chunker)

// WithTargetTokens sets the target tokens per chunk.
func WithTargetTokens(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.targetTokens = n
		}
	}
}

// WithOverlapPercent sets the overlap as a fraction of the target.
func WithOverlapPercent(p float64) Option {
	return func(c *Chunker) {
		if p > 0 {
			c.overlapPercent = p
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		targetTokens:   DefaultTargetTokens,
		overlapPercent: DefaultOverlapPercent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Split chunks the text, filling each chunk's identity from filePath and
// sourceType. The same text and options always produce the same chunks.
func (c *Chunker) Split(filePath, sourceType, text string) []domain.Chunk {
	overlapTokens := int(float64(c.targetTokens) * c.overlapPercent)
	targetChars := c.targetTokens * charsPerToken
	overlapChars := overlapTokens * charsPerToken

	if len(text) <= targetChars {
		return []domain.Chunk{{
			FilePath:      filePath,
			SourceType:    sourceType,
			Index:         0,
			Count:         1,
			Text:          text,
			SpanStart:     0,
			SpanEnd:       len(text),
			OverlapTokens: 0,
			WordCount:     countWords(text),
			TokenCount:    estimateTokens(text),
			ContentHash:   hashText(text),
		}}
	}

	var chunks []domain.Chunk
	position := 0
	index := 0

	for position < len(text) {
		last := position+targetChars >= len(text)

		var end int
		if last {
			end = len(text)
		} else {
			end = findBoundary(text, position+targetChars)
		}

		chunkText := text[position:end]
		chunks = append(chunks, domain.Chunk{
			FilePath:    filePath,
			SourceType:  sourceType,
			Index:       index,
			Text:        chunkText,
			SpanStart:   position,
			SpanEnd:     end,
			WordCount:   countWords(chunkText),
			TokenCount:  estimateTokens(chunkText),
			ContentHash: hashText(chunkText),
		})

		if last {
			break
		}

		position = end - overlapChars
		if position <= chunks[index].SpanStart {
			// Guarantee forward progress on pathological inputs.
			position = chunks[index].SpanStart + 1
		}
		index++
	}

	// Count and overlap are only known once the pass completes.
	for i := range chunks {
		chunks[i].Count = len(chunks)
		if i > 0 {
			chunks[i].OverlapTokens = overlapTokens
		}
	}

	return chunks
}

// findBoundary adjusts a split position to the best nearby boundary.
// Priority: markdown heading > paragraph break > sentence end > whitespace.
// A candidate is accepted only in the latter half of the search window so a
// retreat never produces a near-empty trailing chunk; with nothing in range
// the text is split hard at the target.
func findBoundary(text string, target int) int {
	start := maxInt(0, target-boundaryWindow)
	end := minInt(len(text), target+boundaryWindow)
	window := text[start:end]

	patterns := []struct {
		re   *regexp.Regexp
		skip int // characters to advance past the match start
	}{
		{headingPattern, 1},
		{paragraphPattern, 2},
		{sentencePattern, 2},
		{whitespacePattern, 1},
	}

	for _, p := range patterns {
		matches := p.re.FindAllStringIndex(window, -1)
		if len(matches) == 0 {
			continue
		}
		last := matches[len(matches)-1]
		if last[0] > boundaryWindow/2 {
			return start + last[0] + p.skip
		}
	}

	return target
}

// countWords counts whitespace-delimited words.
func countWords(text string) int {
	return len(strings.Fields(text))
}

// estimateTokens estimates the token count, rounding up.
func estimateTokens(text string) int {
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// hashText returns the hex SHA-256 of the text.
func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
