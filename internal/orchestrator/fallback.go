package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/varejolabs/salesbot/internal/domain"
)

// fallbackRows caps how many rows the deterministic rendering includes.
const fallbackRows = 3

var titleCaser = cases.Title(language.English)

// renderFallback produces a minimal deterministic answer from raw rows,
// used when the summarizer is down. Columns are sorted so the output is
// stable regardless of map iteration order.
func renderFallback(rows []domain.Row) string {
	var b strings.Builder
	if len(rows) == 1 {
		b.WriteString("I found 1 result:\n")
	} else {
		fmt.Fprintf(&b, "I found %d results. Here are the first ones:\n", len(rows))
	}

	shown := rows
	if len(shown) > fallbackRows {
		shown = shown[:fallbackRows]
	}
	for i, row := range shown {
		if i > 0 {
			b.WriteString("\n")
		}
		cols := make([]string, 0, len(row))
		for col := range row {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		for _, col := range cols {
			label := titleCaser.String(strings.ReplaceAll(col, "_", " "))
			fmt.Fprintf(&b, "%s: %v\n", label, row[col])
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
