// Package repo – generic SELECT execution for catalog queries.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/varejolabs/salesbot/internal/catalog"
	"github.com/varejolabs/salesbot/internal/domain"
)

// Executor runs catalog queries against the store. It satisfies the
// orchestrator's SelectExecutor contract.
type Executor struct {
	DB *gorm.DB
}

// ExecuteSelect runs the query with every value bound as a named parameter
// and returns the rows as lowercase column → scalar maps. An empty result
// set returns an empty (non-nil) slice; it is never an error.
func (x *Executor) ExecuteSelect(ctx context.Context, q catalog.Query) ([]domain.Row, error) {
	rows, err := x.DB.WithContext(ctx).Raw(q.SQL, q.Params).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]domain.Row, 0, 8)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(domain.Row, len(cols))
		for i, col := range cols {
			v := vals[i]
			// Drivers hand back []byte for TEXT; normalize to string so
			// rows serialize cleanly for the summarizer.
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[lower(col)] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// lower is an ASCII-only lowercase; column identifiers never carry
// multibyte runes.
func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
