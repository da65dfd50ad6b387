package driven

// Tokenizer counts model tokens in a piece of text.
// Counts must be deterministic for identical input.
type Tokenizer interface {
	// CountTokens returns the number of tokens in text.
	CountTokens(text string) (int, error)
}
