package models

import "strings"

// Filter selects items for display. The zero value matches everything.
type Filter struct {
	Kind          Kind
	ImportantOnly bool
	// Query is matched case-insensitively against note content and file name.
	Query string
}

func (f Filter) Match(it Item) bool {
	if f.Kind != "" && it.Kind != f.Kind {
		return false
	}
	if f.ImportantOnly && !it.IsImportant {
		return false
	}
	if f.Query == "" {
		return true
	}
	q := strings.ToLower(f.Query)
	return strings.Contains(strings.ToLower(it.Content), q) ||
		strings.Contains(strings.ToLower(it.Name), q)
}

// Apply returns the matching items in their original order.
func (f Filter) Apply(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	return out
}
