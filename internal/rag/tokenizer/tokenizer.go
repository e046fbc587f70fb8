package tokenizer

// Tokenizer counts model tokens in text. Implementations must be safe for
// concurrent use.
type Tokenizer interface {
	CountTokens(text string) (int, error)
}

// Func adapts a plain function to Tokenizer.
type Func func(text string) (int, error)

func (f Func) CountTokens(text string) (int, error) {
	return f(text)
}
