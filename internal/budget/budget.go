// Package budget rejects prompts that exceed the agent's input token
// limit before a network call is wasted on them.
package budget

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// ErrPromptTooLarge is returned by Check when the prompt's token count
// exceeds the configured maximum.
var ErrPromptTooLarge = fmt.Errorf("prompt exceeds input token budget")

// Guard counts prompt tokens and enforces a hard input ceiling.
type Guard struct {
	tokenizer *tiktoken.Tiktoken
	maxInput  int
}

// New creates a Guard for the given model's tokenizer with the specified
// input token ceiling. A ceiling of zero or below disables the check.
func New(model string, maxInput int) (*Guard, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Fallback to cl100k_base for unknown models
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Guard{tokenizer: enc, maxInput: maxInput}, nil
}

// Count returns the token count for a prompt.
func (g *Guard) Count(text string) int {
	return len(g.tokenizer.Encode(text, nil, nil))
}

// Check returns ErrPromptTooLarge (wrapped with the counts) when the
// prompt exceeds the ceiling, nil otherwise.
func (g *Guard) Check(text string) error {
	if g.maxInput <= 0 {
		return nil
	}
	if n := g.Count(text); n > g.maxInput {
		return fmt.Errorf("%w: %d tokens, limit %d", ErrPromptTooLarge, n, g.maxInput)
	}
	return nil
}
