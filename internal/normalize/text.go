// Package normalize – free-text search predicates.
package normalize

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyTerm is returned when a search term contains no usable tokens.
var ErrEmptyTerm = errors.New("empty search term")

// TextPredicate turns a free-text term into a SQL predicate over the given
// columns. The term is split into tokens; within a column every token must
// match (AND) as a case-insensitive substring, and the per-column clauses
// are ORed together. Every token×column pair gets a uniquely named bound
// parameter derived from prefix; caller values never appear in the clause
// text itself.
//
// For term "mineral water" over columns {description, brand} and prefix
// "prod" the clause is:
//
//	((LOWER(description) LIKE @prod_0_0 AND LOWER(description) LIKE @prod_0_1)
//	 OR (LOWER(brand) LIKE @prod_1_0 AND LOWER(brand) LIKE @prod_1_1))
func TextPredicate(term string, columns []string, prefix string) (string, map[string]any, error) {
	tokens := strings.Fields(term)
	if len(tokens) == 0 || len(columns) == 0 {
		return "", nil, ErrEmptyTerm
	}

	params := make(map[string]any, len(tokens)*len(columns))
	colClauses := make([]string, 0, len(columns))
	for i, col := range columns {
		tokClauses := make([]string, 0, len(tokens))
		for j, tok := range tokens {
			key := fmt.Sprintf("%s_%d_%d", prefix, i, j)
			tokClauses = append(tokClauses, fmt.Sprintf("LOWER(%s) LIKE @%s", col, key))
			params[key] = "%" + strings.ToLower(tok) + "%"
		}
		colClauses = append(colClauses, "("+strings.Join(tokClauses, " AND ")+")")
	}
	return "(" + strings.Join(colClauses, " OR ") + ")", params, nil
}
