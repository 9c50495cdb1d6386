// Package normalize trims and canonicalises user-supplied text before it is
// stored.
package normalize

import "strings"

// Name trims surrounding whitespace and collapses internal runs of
// whitespace to a single space. Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Title is Name for proposal and fund titles.
func Title(s string) string {
	return Name(s)
}

// Message trims a free-text body but keeps its line breaks.
func Message(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}

// Token lowercases and trims an enum-like value such as an action type,
// vote choice, or audit filter.
func Token(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
