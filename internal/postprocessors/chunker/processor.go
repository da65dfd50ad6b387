// Package chunker provides a token-bounded, line-aligned chunking processor.
package chunker

import (
	"context"
	"strings"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driven"
)

// Ensure Processor implements the Chunker interface.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits file content into windows of whole lines whose token
// count stays within a budget, with a configurable token overlap between
// consecutive windows.
type Processor struct {
	tokenizer driven.Tokenizer
	maxTokens int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxTokens sets the default token budget used when Chunk is called
// with a non-positive maxTokens.
func WithMaxTokens(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithOverlap sets the default overlap used when Chunk is called with a
// negative overlap.
func WithOverlap(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.overlap = n
		}
	}
}

// New creates a chunker backed by the given tokenizer. A nil tokenizer
// makes every call return the whole document as one chunk.
func New(tokenizer driven.Tokenizer, opts ...Option) *Processor {
	p := &Processor{
		tokenizer: tokenizer,
		maxTokens: domain.DefaultChunkMaxTokens,
		overlap:   domain.DefaultChunkOverlapTokens,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Chunk splits content into spans. maxTokens is clamped to [256, 2048] and
// overlapTokens to [0, maxTokens-1].
//
// A line that alone exceeds the budget becomes its own chunk. Each chunk
// after the first starts on a strictly later line than its predecessor and
// reaches past the predecessor's last line.
func (p *Processor) Chunk(ctx context.Context, content string, maxTokens, overlapTokens int) []domain.ChunkSpan {
	if content == "" {
		return nil
	}

	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}
	if overlapTokens < 0 {
		overlapTokens = p.overlap
	}
	maxTokens = ClampMaxTokens(maxTokens)
	overlapTokens = ClampOverlap(overlapTokens, maxTokens)

	lines := strings.Split(content, "\n")
	starts, ends, ok := p.lineOffsets(lines)
	if !ok {
		return []domain.ChunkSpan{{
			Text:      content,
			LineStart: 1,
			LineEnd:   len(lines),
		}}
	}

	n := len(lines)
	if ends[n-1] <= maxTokens {
		return []domain.ChunkSpan{window(lines, starts, ends, 0, n-1)}
	}

	var spans []domain.ChunkSpan
	start := 0
	for {
		end := start
		for end+1 < n && ends[end+1]-starts[start] <= maxTokens {
			end++
		}
		spans = append(spans, window(lines, starts, ends, start, end))

		if end >= n-1 {
			break
		}

		next := end + 1
		if overlapTokens > 0 {
			target := ends[end] - overlapTokens
			for i := start + 1; i <= end; i++ {
				// The next window must still be able to take line end+1,
				// otherwise it would repeat a subset of this one.
				if starts[i] >= target && ends[end+1]-starts[i] <= maxTokens {
					next = i
					break
				}
			}
		}
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return spans
}

// lineOffsets returns cumulative token offsets per line. ok is false when
// no tokenizer is configured or it fails on any line.
func (p *Processor) lineOffsets(lines []string) (starts, ends []int, ok bool) {
	if p.tokenizer == nil {
		return nil, nil, false
	}

	starts = make([]int, len(lines))
	ends = make([]int, len(lines))
	offset := 0
	for i, line := range lines {
		count, err := p.tokenizer.CountTokens(line)
		if err != nil {
			return nil, nil, false
		}
		starts[i] = offset
		offset += count
		ends[i] = offset
	}
	return starts, ends, true
}

func window(lines []string, starts, ends []int, from, to int) domain.ChunkSpan {
	return domain.ChunkSpan{
		Text:       strings.Join(lines[from:to+1], "\n"),
		LineStart:  from + 1,
		LineEnd:    to + 1,
		TokenStart: starts[from],
		TokenEnd:   ends[to],
	}
}

// ClampMaxTokens bounds a token budget to [256, 2048].
func ClampMaxTokens(n int) int {
	return domain.ClampChunkMaxTokens(n)
}

// ClampOverlap bounds an overlap to [0, maxTokens-1].
func ClampOverlap(overlap, maxTokens int) int {
	return domain.ClampChunkOverlap(overlap, maxTokens)
}
