package chunker

import (
	"regexp"
	"strings"

	appErr "github.com/documind-io/documind/internal/pkg/errors"
)

const (
	DefaultChunkSize = 450
	DefaultOverlap   = 50
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize collapses whitespace runs to a single space and trims both ends.
// Applied exactly once, before windowing, so chunk offsets refer to the
// normalized text.
func Normalize(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// Window is a chunk before it is bound to a document identity.
type Window struct {
	Seq   int
	Start int
	Text  string
}

// Split walks the normalized text with a sliding window of length size,
// advancing the start by size-overlap per step. Size, overlap and offsets
// count runes, never bytes, so multi-byte text is never cut mid-character.
// The final window takes the remainder and may be shorter; an empty
// remainder produces no window. Identical (text, size, overlap) always
// yields identical windows.
func Split(text string, size, overlap int) ([]Window, error) {
	if size <= 0 {
		return nil, appErr.Configuration("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, appErr.Configuration("overlap must satisfy 0 <= overlap < size, got overlap=%d size=%d", overlap, size)
	}
	normalized := []rune(Normalize(text))
	if len(normalized) == 0 {
		return nil, nil
	}
	step := size - overlap
	var windows []Window
	for start, seq := 0, 0; start < len(normalized); start, seq = start+step, seq+1 {
		end := start + size
		if end > len(normalized) {
			end = len(normalized)
		}
		windows = append(windows, Window{
			Seq:   seq,
			Start: start,
			Text:  string(normalized[start:end]),
		})
	}
	return windows, nil
}
