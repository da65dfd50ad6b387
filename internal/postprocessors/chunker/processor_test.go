package chunker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
)

// wordTokenizer counts whitespace-separated words as tokens.
type wordTokenizer struct{}

func (wordTokenizer) CountTokens(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

type failingTokenizer struct{}

func (failingTokenizer) CountTokens(string) (int, error) {
	return 0, errors.New("encoding not loaded")
}

func syntheticLines(n, wordsPerLine int) string {
	lines := make([]string, n)
	for i := range lines {
		words := make([]string, wordsPerLine)
		for j := range words {
			words[j] = fmt.Sprintf("w%d_%d", i, j)
		}
		lines[i] = strings.Join(words, " ")
	}
	return strings.Join(lines, "\n")
}

func checkInvariants(t *testing.T, spans []domain.ChunkSpan, lineCount, maxTokens, overlap int) {
	t.Helper()

	if len(spans) == 0 {
		t.Fatal("expected at least one chunk")
	}
	if spans[0].LineStart != 1 {
		t.Errorf("first chunk starts at line %d, want 1", spans[0].LineStart)
	}
	if last := spans[len(spans)-1]; last.LineEnd != lineCount {
		t.Errorf("last chunk ends at line %d, want %d", last.LineEnd, lineCount)
	}

	for i, s := range spans {
		if s.LineEnd < s.LineStart {
			t.Errorf("chunk %d: lineEnd %d < lineStart %d", i, s.LineEnd, s.LineStart)
		}
		if s.Tokens() > maxTokens && s.LineStart != s.LineEnd {
			t.Errorf("chunk %d: %d tokens exceeds budget %d over %d lines",
				i, s.Tokens(), maxTokens, s.LineEnd-s.LineStart+1)
		}
		if i == 0 {
			continue
		}
		prev := spans[i-1]
		if s.LineStart <= prev.LineStart {
			t.Errorf("chunk %d: start line %d does not advance past %d", i, s.LineStart, prev.LineStart)
		}
		if s.LineEnd <= prev.LineEnd {
			t.Errorf("chunk %d: end line %d does not advance past %d", i, s.LineEnd, prev.LineEnd)
		}
		if s.TokenStart < prev.TokenEnd-overlap {
			t.Errorf("chunk %d: token start %d before %d", i, s.TokenStart, prev.TokenEnd-overlap)
		}
		if overlap == 0 && s.LineStart != prev.LineEnd+1 {
			t.Errorf("chunk %d: starts at line %d, want %d with no overlap", i, s.LineStart, prev.LineEnd+1)
		}
	}
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New(wordTokenizer{})
		if p.maxTokens != domain.DefaultChunkMaxTokens {
			t.Errorf("expected maxTokens %d, got %d", domain.DefaultChunkMaxTokens, p.maxTokens)
		}
		if p.overlap != domain.DefaultChunkOverlapTokens {
			t.Errorf("expected overlap %d, got %d", domain.DefaultChunkOverlapTokens, p.overlap)
		}
	})

	t.Run("custom values", func(t *testing.T) {
		p := New(wordTokenizer{}, WithMaxTokens(512), WithOverlap(0))
		if p.maxTokens != 512 {
			t.Errorf("expected maxTokens 512, got %d", p.maxTokens)
		}
		if p.overlap != 0 {
			t.Errorf("expected overlap 0, got %d", p.overlap)
		}
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		p := New(wordTokenizer{}, WithMaxTokens(0), WithOverlap(-1))
		if p.maxTokens != domain.DefaultChunkMaxTokens {
			t.Errorf("expected default maxTokens, got %d", p.maxTokens)
		}
		if p.overlap != domain.DefaultChunkOverlapTokens {
			t.Errorf("expected default overlap, got %d", p.overlap)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	p := New(wordTokenizer{})
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func TestChunk_EmptyContent(t *testing.T) {
	p := New(wordTokenizer{})
	if spans := p.Chunk(context.Background(), "", 1024, 256); spans != nil {
		t.Errorf("expected nil, got %d chunks", len(spans))
	}
}

func TestChunk_SmallDocumentSingleChunk(t *testing.T) {
	p := New(wordTokenizer{})
	spans := p.Chunk(context.Background(), "line1\nline2\nline3", 1024, 256)

	if len(spans) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(spans))
	}
	s := spans[0]
	if s.LineStart != 1 || s.LineEnd != 3 {
		t.Errorf("expected lines 1-3, got %d-%d", s.LineStart, s.LineEnd)
	}
	if s.Text != "line1\nline2\nline3" {
		t.Errorf("unexpected text %q", s.Text)
	}
	if s.TokenStart != 0 || s.TokenEnd != 3 {
		t.Errorf("expected tokens 0-3, got %d-%d", s.TokenStart, s.TokenEnd)
	}
}

func TestChunk_SyntheticLargeFile(t *testing.T) {
	p := New(wordTokenizer{})
	content := syntheticLines(500, 5)

	spans := p.Chunk(context.Background(), content, 512, 64)

	if len(spans) <= 1 {
		t.Fatalf("expected more than 1 chunk, got %d", len(spans))
	}
	checkInvariants(t, spans, 500, 512, 64)

	// Overlap is realised: consecutive chunks share lines.
	for i := 1; i < len(spans); i++ {
		if spans[i].LineStart > spans[i-1].LineEnd {
			t.Errorf("chunk %d: expected overlap with previous chunk", i)
		}
	}
}

func TestChunk_NoOverlap(t *testing.T) {
	p := New(wordTokenizer{})
	content := syntheticLines(300, 4)

	spans := p.Chunk(context.Background(), content, 256, 0)

	checkInvariants(t, spans, 300, 256, 0)
	lines := strings.Split(content, "\n")
	var rebuilt []string
	for _, s := range spans {
		rebuilt = append(rebuilt, s.Text)
	}
	if strings.Join(rebuilt, "\n") != strings.Join(lines, "\n") {
		t.Error("chunks without overlap should reassemble the document")
	}
}

func TestChunk_ClampsBudget(t *testing.T) {
	p := New(wordTokenizer{})
	content := syntheticLines(600, 1)

	spans := p.Chunk(context.Background(), content, 10, 5000)

	checkInvariants(t, spans, 600, domain.MinChunkTokens, domain.MinChunkTokens-1)
	if spans[0].Tokens() != domain.MinChunkTokens {
		t.Errorf("expected first chunk of %d tokens, got %d", domain.MinChunkTokens, spans[0].Tokens())
	}
}

func TestChunk_MaximumOverlapStillProgresses(t *testing.T) {
	p := New(wordTokenizer{})
	content := syntheticLines(400, 1)

	spans := p.Chunk(context.Background(), content, 256, 255)

	checkInvariants(t, spans, 400, 256, 255)
}

func TestChunk_OversizedLine(t *testing.T) {
	p := New(wordTokenizer{})
	huge := strings.TrimSpace(strings.Repeat("x ", 3000))
	content := "a b\n" + huge + "\nc"

	spans := p.Chunk(context.Background(), content, 256, 64)

	checkInvariants(t, spans, 3, 256, 64)
	found := false
	for _, s := range spans {
		if s.LineStart == 2 && s.LineEnd == 2 {
			found = true
			if s.Tokens() != 3000 {
				t.Errorf("expected oversized chunk of 3000 tokens, got %d", s.Tokens())
			}
		}
	}
	if !found {
		t.Error("expected the oversized line as its own chunk")
	}
}

func TestChunk_DefaultsFromOptions(t *testing.T) {
	p := New(wordTokenizer{}, WithMaxTokens(300), WithOverlap(0))
	content := syntheticLines(900, 1)

	spans := p.Chunk(context.Background(), content, 0, -1)

	if len(spans) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(spans))
	}
	checkInvariants(t, spans, 900, 300, 0)
}

func TestChunk_TokenizerFailure(t *testing.T) {
	content := syntheticLines(2000, 5)

	for name, p := range map[string]*Processor{
		"failing tokenizer": New(failingTokenizer{}),
		"nil tokenizer":     New(nil),
	} {
		t.Run(name, func(t *testing.T) {
			spans := p.Chunk(context.Background(), content, 512, 64)
			if len(spans) != 1 {
				t.Fatalf("expected whole document as 1 chunk, got %d", len(spans))
			}
			if spans[0].Text != content {
				t.Error("expected chunk text to be the whole document")
			}
			if spans[0].LineStart != 1 || spans[0].LineEnd != 2000 {
				t.Errorf("expected lines 1-2000, got %d-%d", spans[0].LineStart, spans[0].LineEnd)
			}
		})
	}
}

func TestChunk_IdenticalContentIdenticalSpans(t *testing.T) {
	p := New(wordTokenizer{})
	content := syntheticLines(200, 6)

	a := p.Chunk(context.Background(), content, 256, 32)
	b := p.Chunk(context.Background(), content, 256, 32)

	if len(a) != len(b) {
		t.Fatalf("expected equal chunk counts, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		max, overlap         int
		wantMax, wantOverlap int
	}{
		{100, 10, 256, 10},
		{5000, 10, 2048, 10},
		{512, -5, 512, 0},
		{512, 512, 512, 511},
		{1024, 256, 1024, 256},
	}

	for _, tt := range tests {
		gotMax := ClampMaxTokens(tt.max)
		gotOverlap := ClampOverlap(tt.overlap, gotMax)
		if gotMax != tt.wantMax || gotOverlap != tt.wantOverlap {
			t.Errorf("Clamp(%d, %d) = (%d, %d), want (%d, %d)",
				tt.max, tt.overlap, gotMax, gotOverlap, tt.wantMax, tt.wantOverlap)
		}
	}
}
