package tokens

// Budget hands out a fixed number of tokens to successive pieces of text.
type Budget struct {
	remaining int
}

func NewBudget(max int) *Budget {
	return &Budget{remaining: max}
}

func (b *Budget) Remaining() int {
	return b.remaining
}

// Take returns text, trimmed to what is left, and charges it to the budget.
// An exhausted budget yields "".
func (b *Budget) Take(text string) string {
	if b.remaining <= 0 || text == "" {
		return ""
	}
	n := Count(text)
	if n <= b.remaining {
		b.remaining -= n
		return text
	}
	trimmed := Trim(text, b.remaining)
	b.remaining = 0
	return trimmed
}
