package normalize

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldAccents strips combining diacritical marks so "mês" and "mes" compare
// equal. Period tokens arrive in whatever shape the user typed them; the
// NLU collaborator passes Portuguese accents through verbatim.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
