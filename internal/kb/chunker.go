// File path: internal/kb/chunker.go
package kb

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const defaultChunkSize = 15000

// SplitChunks splits legacy source into completion-sized chunks. Splits
// prefer line boundaries so COBOL statements stay intact; chunks never
// overlap because the extraction aggregate appends list keys per chunk.
func SplitChunks(source string, size int) ([]string, error) {
	if strings.TrimSpace(source) == "" {
		return nil, nil
	}
	if size <= 0 {
		size = defaultChunkSize
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(0),
		textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
	)
	return splitter.SplitText(source)
}
