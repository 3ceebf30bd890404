package chunker

import (
	"strings"
	"unicode"

	"github.com/voltlab/askds/internal/domain"
)

// SentenceChunker splits raw document text into bounded-size chunks
// for embedding. It first packs whole sentences greedily; if that
// produces no chunks, or any chunk larger than maxSize (a single
// sentence can exceed the bound), it falls back to a fixed-size
// sliding window with overlap.
type SentenceChunker struct {
	maxSize int
	overlap int
}

// NewSentenceChunker creates a chunker with the given bounds.
func NewSentenceChunker(maxSize, overlap int) *SentenceChunker {
	if maxSize <= 0 {
		maxSize = 500
	}
	if overlap < 0 || overlap >= maxSize {
		// Keep the fallback window's step positive for any maxSize.
		overlap = maxSize / 10
	}
	return &SentenceChunker{maxSize: maxSize, overlap: overlap}
}

// Chunk splits text into chunks in document order. Empty input yields
// no chunks; input shorter than maxSize yields exactly one.
func (c *SentenceChunker) Chunk(text, sourceID string) []domain.TextChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len([]rune(text)) <= c.maxSize {
		return []domain.TextChunk{{Content: text, SourceID: sourceID}}
	}

	pieces := c.packSentences(text)
	if len(pieces) == 0 || c.anyOversized(pieces) {
		pieces = c.slideWindow(text)
	}

	chunks := make([]domain.TextChunk, 0, len(pieces))
	for _, p := range pieces {
		chunks = append(chunks, domain.TextChunk{Content: p, SourceID: sourceID})
	}
	return chunks
}

// packSentences greedily packs whole sentences into chunks of at most
// maxSize runes.
func (c *SentenceChunker) packSentences(text string) []string {
	sentences := splitSentences(text)

	var chunks []string
	var current strings.Builder
	currentLen := 0
	for _, sentence := range sentences {
		sLen := len([]rune(sentence))
		sep := 0
		if currentLen > 0 {
			sep = 1
		}
		if currentLen+sep+sLen <= c.maxSize {
			if currentLen > 0 {
				current.WriteByte(' ')
				currentLen++
			}
			current.WriteString(sentence)
			currentLen += sLen
			continue
		}
		if currentLen > 0 {
			chunks = append(chunks, current.String())
		}
		current.Reset()
		current.WriteString(sentence)
		currentLen = sLen
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func (c *SentenceChunker) anyOversized(chunks []string) bool {
	for _, ch := range chunks {
		if len([]rune(ch)) > c.maxSize {
			return true
		}
	}
	return false
}

// slideWindow advances a window of maxSize runes across the text,
// stepping by maxSize-overlap. Each window is trimmed back to its
// last whitespace boundary when the trim point falls within overlap
// runes of the window's end; the dropped tail is re-covered by the
// next window.
func (c *SentenceChunker) slideWindow(text string) []string {
	runes := []rune(text)
	step := c.maxSize - c.overlap

	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := i + c.maxSize
		if end > len(runes) {
			end = len(runes)
		}
		window := runes[i:end]
		if end < len(runes) {
			if cut := lastSpace(window); cut > -1 && end-(i+cut) < c.overlap {
				window = window[:cut]
			}
		}
		chunk := strings.TrimSpace(string(window))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

// splitSentences splits text on sentence-terminal punctuation followed
// by whitespace. Text without a terminal boundary comes back as a
// single sentence.
func splitSentences(text string) []string {
	runes := []rune(text)

	var sentences []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		// consume a run of terminals, e.g. "..." or "?!"
		j := i
		for j+1 < len(runes) && isTerminal(runes[j+1]) {
			j++
		}
		if j+1 < len(runes) && !unicode.IsSpace(runes[j+1]) {
			i = j
			continue
		}
		if s := strings.TrimSpace(string(runes[start : j+1])); s != "" {
			sentences = append(sentences, s)
		}
		i = j
		start = j + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}
