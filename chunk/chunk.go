// Package chunk splits arbitrary-length text into overlapping fixed-size
// windows so embedding inputs stay within provider limits while preserving
// context across window boundaries.
package chunk

import "errors"

// ErrInvalidWindow is returned when size or overlap parameters cannot
// produce a valid windowing (size <= 0, overlap < 0, or overlap >= size).
var ErrInvalidWindow = errors.New("chunk: overlap must be smaller than size and both non-negative")

// Chunk is one window of the source text with its character offsets.
type Chunk struct {
	Index int    // zero-based position in the sequence
	Start int    // inclusive offset into the source text
	End   int    // exclusive offset into the source text
	Text  string // text[Start:End]
}

// Split windows text into chunks of exactly size characters advancing by
// size-overlap. If the text fits in a single window, one chunk equal to the
// input is returned. The union of chunk spans always covers the full input,
// and no chunk is ever shorter than overlap: the loop stops while at least
// one full window remains, which leaves the tail strictly longer than
// overlap.
func Split(text string, size, overlap int) ([]Chunk, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, ErrInvalidWindow
	}

	if len(text) <= size {
		return []Chunk{{Index: 0, Start: 0, End: len(text), Text: text}}, nil
	}

	step := size - overlap
	var chunks []Chunk

	start := 0
	for start+size < len(text) {
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: start,
			End:   start + size,
			Text:  text[start : start+size],
		})
		start += step
	}

	// Tail window: len(text)-start > overlap holds here, because the last
	// loop iteration had start+size < len(text) and advanced by size-overlap.
	chunks = append(chunks, Chunk{
		Index: len(chunks),
		Start: start,
		End:   len(text),
		Text:  text[start:],
	})

	return chunks, nil
}
