// Package resolver turns the customer reference extracted from a message
// (a numeric code or a free-text name) into a concrete customer record.
//
// A numeric code is trusted as-is and never triggers a lookup; the query
// itself will simply return no rows if the code does not exist. A name goes
// through a fuzzy search and must land on exactly one customer, otherwise
// the caller gets ErrNotFound or an AmbiguousError listing the candidates.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/varejolabs/salesbot/internal/catalog"
	"github.com/varejolabs/salesbot/internal/domain"
)

// ErrMissingIdentifier indicates the message carried neither a customer
// code nor a usable customer name.
var ErrMissingIdentifier = errors.New("resolver: no customer code or name")

// ErrNotFound indicates the name search matched no customer.
var ErrNotFound = errors.New("resolver: customer not found")

// AmbiguousError reports a name search that matched more than one customer.
// Candidates are ordered the way the search returned them (best match first).
type AmbiguousError struct {
	Term       string
	Candidates []domain.Candidate
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("resolver: %d customers match %q", len(e.Candidates), e.Term)
}

// Prompt renders a user-facing disambiguation question listing each
// candidate with its code so the user can answer with a number.
func (e *AmbiguousError) Prompt() string {
	var b strings.Builder
	b.WriteString("I found more than one customer with that name. Which one did you mean?\n")
	for _, c := range e.Candidates {
		fmt.Fprintf(&b, "- %s (code %d)\n", c.Name, c.ID)
	}
	b.WriteString("Please reply with the customer code.")
	return b.String()
}

// SelectExecutor is the slice of the data layer the resolver needs.
type SelectExecutor interface {
	ExecuteSelect(ctx context.Context, q catalog.Query) ([]domain.Row, error)
}

// Resolver resolves customer references against the store.
type Resolver struct {
	Exec SelectExecutor
}

// Resolve maps the entities' customer reference to a single customer.
func (r *Resolver) Resolve(ctx context.Context, e domain.Entities) (domain.ResolvedCustomer, error) {
	if e.CustomerCode != nil {
		return domain.ResolvedCustomer{ID: *e.CustomerCode}, nil
	}
	name := strings.TrimSpace(e.CustomerName)
	if name == "" {
		return domain.ResolvedCustomer{}, ErrMissingIdentifier
	}

	q, err := catalog.SearchCustomers(nil, name)
	if err != nil {
		return domain.ResolvedCustomer{}, ErrMissingIdentifier
	}
	rows, err := r.Exec.ExecuteSelect(ctx, q)
	if err != nil {
		return domain.ResolvedCustomer{}, err
	}

	switch len(rows) {
	case 0:
		return domain.ResolvedCustomer{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	case 1:
		c, err := candidateFromRow(rows[0])
		if err != nil {
			return domain.ResolvedCustomer{}, err
		}
		return domain.ResolvedCustomer{ID: c.ID, Name: c.Name}, nil
	default:
		cands := make([]domain.Candidate, 0, len(rows))
		for _, row := range rows {
			c, err := candidateFromRow(row)
			if err != nil {
				return domain.ResolvedCustomer{}, err
			}
			cands = append(cands, c)
		}
		return domain.ResolvedCustomer{}, &AmbiguousError{Term: name, Candidates: cands}
	}
}

func candidateFromRow(row domain.Row) (domain.Candidate, error) {
	id, ok := asInt64(row["id"])
	if !ok {
		return domain.Candidate{}, fmt.Errorf("resolver: row without numeric id: %v", row)
	}
	name, _ := row["name"].(string)
	return domain.Candidate{ID: id, Name: name}, nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
