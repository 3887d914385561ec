package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CategoryAll is the filter value that selects every quote.
const CategoryAll = "all"

// Quote is a text/category pair, the only entity the application stores.
// JSON field names are part of the persisted and exported format.
type Quote struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// NewQuote trims both fields and validates the result.
func NewQuote(text, category string) (Quote, error) {
	q := Quote{Text: strings.TrimSpace(text), Category: strings.TrimSpace(category)}
	if err := q.Validate(); err != nil {
		return Quote{}, err
	}

	return q, nil
}

// Validate reports the first empty field.
func (q Quote) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return NewValidationError("text", "must not be empty")
	}

	if strings.TrimSpace(q.Category) == "" {
		return NewValidationError("category", "must not be empty")
	}

	return nil
}

// Key is the composite identity used for import de-duplication.
func (q Quote) Key() string {
	return q.Text + "\x00" + q.Category
}

// Render formats the quote the way the page shows it.
func (q Quote) Render() string {
	return `"` + q.Text + `" - ` + q.Category
}

// CategoryLabel upper-cases the first letter of a category for display.
func CategoryLabel(category string) string {
	r, size := utf8.DecodeRuneInString(category)
	if r == utf8.RuneError {
		return category
	}

	return string(unicode.ToUpper(r)) + category[size:]
}

// SeedQuotes returns the collection used when nothing usable is persisted.
func SeedQuotes() []Quote {
	return []Quote{
		{Text: "The best way to predict the future is to create it.", Category: "Motivation"},
		{Text: "Code is like humor. When you have to explain it, it’s bad.", Category: "Programming"},
		{Text: "Dream big and dare to fail.", Category: "Inspiration"},
	}
}

// StandInServerQuotes returns the fixed records a sync merges in place of the
// remote payload.
func StandInServerQuotes() []Quote {
	return []Quote{
		{Text: "Success is not in what you have, but who you are.", Category: "Success"},
		{Text: "Programming is thinking, not typing.", Category: "Programming"},
	}
}
