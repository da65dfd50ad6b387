package tiktoken

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
)

func loadOrSkip(t *testing.T) *Tokenizer {
	t.Helper()
	tok := New("")
	if _, err := tok.CountTokens("probe"); err != nil {
		t.Skipf("encoding unavailable in this environment: %v", err)
	}
	return tok
}

func TestNew_DefaultEncoding(t *testing.T) {
	assert.Equal(t, DefaultEncoding, New("").Encoding())
	assert.Equal(t, "p50k_base", New("p50k_base").Encoding())
}

func TestCountTokens(t *testing.T) {
	tok := loadOrSkip(t)

	n, err := tok.CountTokens("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	short, err := tok.CountTokens("func main() {}")
	require.NoError(t, err)
	assert.Positive(t, short)

	long, err := tok.CountTokens("func main() { fmt.Println(\"hello, world\") }")
	require.NoError(t, err)
	assert.Greater(t, long, short)

	again, err := tok.CountTokens("func main() {}")
	require.NoError(t, err)
	assert.Equal(t, short, again)
}

func TestCountTokens_UnknownEncoding(t *testing.T) {
	tok := New("no_such_encoding")

	_, err := tok.CountTokens("text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTokenizerUnavailable))

	// The failure is cached.
	_, err2 := tok.CountTokens("text")
	assert.Equal(t, err, err2)
}
