// Package tokenizer splits raw document and query text into terms.
// Terms are delimited by the ASCII space character only: runs of spaces
// collapse, leading and trailing spaces are ignored, and case is
// preserved exactly as supplied. No stemming, no lowercasing.
package tokenizer

import "strings"

// Split breaks text into its space-delimited terms, in input order.
// Empty input yields an empty slice.
func Split(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ' '
	})
}
