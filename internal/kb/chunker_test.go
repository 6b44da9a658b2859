// File path: internal/kb/chunker_test.go
package kb

import (
	"strings"
	"testing"
)

func TestSplitChunksEmptySource(t *testing.T) {
	chunks, err := SplitChunks("   \n\t", 100)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestSplitChunksSmallSourceSingleChunk(t *testing.T) {
	source := "IDENTIFICATION DIVISION.\nPROGRAM-ID. ACCTUPD."
	chunks, err := SplitChunks(source, 15000)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected a single chunk, got %d", len(chunks))
	}
}

func TestSplitChunksRespectsSize(t *testing.T) {
	var lines []string
	for i := 0; i < 200; i++ {
		lines = append(lines, "MOVE WS-AMOUNT TO WS-TOTAL-AMOUNT.")
	}
	source := strings.Join(lines, "\n")
	size := 500
	chunks, err := SplitChunks(source, size)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > size {
			t.Fatalf("chunk %d exceeds size: %d > %d", i, len(chunk), size)
		}
		if strings.TrimSpace(chunk) == "" {
			t.Fatalf("chunk %d is empty", i)
		}
	}
}

func TestSplitChunksDefaultSize(t *testing.T) {
	chunks, err := SplitChunks("PERFORM UNTIL DONE", 0)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected a single chunk with default size, got %d", len(chunks))
	}
}
