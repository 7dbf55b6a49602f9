// Package catalog – query builders.
//
// Every builder validates its required entities, delegates period handling
// to the normalize package (time-bounded intents refuse to build without a
// valid window), and returns a SQL template plus a named-parameter map.
// Caller-controlled values never appear in the template text, and every
// statement carries a builder-fixed LIMIT bound as @limit regardless of what
// the caller asked for.
//
// Ordering policy is fixed per intent: rankings order by the aggregated
// metric ("most" descending, "least" ascending); listings are
// most-recent-first unless inherently non-temporal (brand listing is
// alphabetical).
package catalog

import (
	"fmt"
	"time"

	"github.com/varejolabs/salesbot/internal/domain"
	"github.com/varejolabs/salesbot/internal/normalize"
)

// Query is a ready-to-execute SELECT: template text with @name placeholders
// and the values bound to them.
type Query struct {
	SQL    string
	Params map[string]any
}

// Builder constructs the query for one intent from its validated entities.
// now anchors period resolution so builds are deterministic under test.
type Builder func(e domain.Entities, now time.Time) (Query, error)

// Result caps. Applied server-side via @limit; caller requests are clamped,
// never trusted.
const (
	defaultRankingLimit = 10
	defaultListLimit    = 20
	historyLimit        = 50
	maxLimit            = 50
	productDetailLimit  = 5
	orderItemsLimit     = 100
	customerSearchLimit = 10
)

const periodClarification = "I need a specific period for that: today, yesterday, this week, last week, this month, or last month."

// productRankingOrder maps product ranking criteria onto ORDER BY clauses.
// Only fixed, known strings ever reach the template.
var productRankingOrder = map[string]string{
	"best_selling":   "total_sold DESC",
	"least_selling":  "total_sold ASC",
	"most_expensive": "p.price DESC",
	"cheapest":       "p.price ASC",
	"heaviest":       "p.net_weight DESC",
	"lightest":       "p.net_weight ASC",
}

func clampLimit(requested, fallback int) int {
	if requested <= 0 {
		return fallback
	}
	if requested > maxLimit {
		return maxLimit
	}
	return requested
}

// requireWindow resolves the period entity or fails with a validation error
// the user can act on. Time-bounded builders must not proceed without it.
func requireWindow(period string, now time.Time) (normalize.TimeWindow, error) {
	w, err := normalize.ResolvePeriod(period, now)
	if err != nil {
		return normalize.TimeWindow{}, validationErr(normalize.ErrInvalidPeriod, periodClarification)
	}
	return w, nil
}

func missing(what string) error {
	return validationErr(ErrMissingEntity, fmt.Sprintf("Please tell me the %s for this query.", what))
}

// RankedProducts builds the product ranking query. The period is mandatory
// for every criterion; sales-derived criteria additionally bind it onto the
// order date, attribute criteria (price, weight) have no date column to
// filter but still refuse an unbounded request.
func RankedProducts(e domain.Entities, now time.Time) (Query, error) {
	order, ok := productRankingOrder[e.Criterion]
	if !ok {
		return Query{}, validationErr(ErrInvalidCriterion,
			"I can rank products by: best selling, least selling, most expensive, cheapest, heaviest, or lightest.")
	}
	w, err := requireWindow(e.Period, now)
	if err != nil {
		return Query{}, err
	}

	params := map[string]any{"limit": clampLimit(e.Limit, defaultRankingLimit)}
	where := "p.discontinued_at IS NULL"
	if e.ProductName != "" {
		clause, p, perr := normalize.TextPredicate(e.ProductName, []string{"p.description"}, "prod")
		if perr == nil {
			where += " AND " + clause
			mergeParams(params, p)
		}
	}
	if e.Brand != "" {
		clause, p, perr := normalize.TextPredicate(e.Brand, []string{"p.brand", "p.description"}, "brand")
		if perr == nil {
			where += " AND " + clause
			mergeParams(params, p)
		}
	}

	if e.Criterion == "best_selling" || e.Criterion == "least_selling" {
		params["period_start"] = w.Start
		params["period_end"] = w.End
		sql := `
SELECT p.id, p.description, p.price, p.net_weight, SUM(oi.qty) AS total_sold
FROM products p
JOIN order_items oi ON oi.product_id = p.id
JOIN orders o ON o.id = oi.order_id
WHERE ` + where + `
  AND o.placed_at >= @period_start AND o.placed_at < @period_end
GROUP BY p.id, p.description, p.price, p.net_weight
ORDER BY ` + order + `
LIMIT @limit`
		return Query{SQL: sql, Params: params}, nil
	}

	sql := `
SELECT p.id, p.description, p.price, p.net_weight
FROM products p
WHERE ` + where + `
ORDER BY ` + order + `
LIMIT @limit`
	return Query{SQL: sql, Params: params}, nil
}

// RankedCustomers builds the customer spend ranking. Only the top_spenders
// criterion exists today; the window is mandatory.
func RankedCustomers(e domain.Entities, now time.Time) (Query, error) {
	if e.Criterion != "top_spenders" {
		return Query{}, validationErr(ErrInvalidCriterion,
			"I can rank customers by total spend (top spenders) only.")
	}
	w, err := requireWindow(e.Period, now)
	if err != nil {
		return Query{}, err
	}
	sql := `
SELECT c.id, c.name, SUM(o.total) AS total_spent
FROM customers c
JOIN orders o ON o.customer_id = c.id
WHERE o.placed_at >= @period_start AND o.placed_at < @period_end
GROUP BY c.id, c.name
ORDER BY total_spent DESC
LIMIT @limit`
	return Query{SQL: sql, Params: map[string]any{
		"period_start": w.Start,
		"period_end":   w.End,
		"limit":        clampLimit(e.Limit, defaultRankingLimit),
	}}, nil
}

// SalesHistory lists a resolved customer's orders inside the window,
// most recent first.
func SalesHistory(e domain.Entities, now time.Time) (Query, error) {
	if e.CustomerCode == nil {
		return Query{}, missing("customer's name or code")
	}
	w, err := requireWindow(e.Period, now)
	if err != nil {
		return Query{}, err
	}
	sql := `
SELECT o.id, o.total, o.status, o.placed_at
FROM orders o
WHERE o.customer_id = @customer_id
  AND o.placed_at >= @period_start AND o.placed_at < @period_end
ORDER BY o.placed_at DESC
LIMIT @limit`
	return Query{SQL: sql, Params: map[string]any{
		"customer_id":  *e.CustomerCode,
		"period_start": w.Start,
		"period_end":   w.End,
		"limit":        clampLimit(e.Limit, historyLimit),
	}}, nil
}

// RecentCustomers lists customers registered inside the window.
func RecentCustomers(e domain.Entities, now time.Time) (Query, error) {
	w, err := requireWindow(e.Period, now)
	if err != nil {
		return Query{}, err
	}
	sql := `
SELECT c.id, c.name, c.city, c.created_at
FROM customers c
WHERE c.created_at >= @period_start AND c.created_at < @period_end
ORDER BY c.created_at DESC
LIMIT @limit`
	return Query{SQL: sql, Params: map[string]any{
		"period_start": w.Start,
		"period_end":   w.End,
		"limit":        clampLimit(e.Limit, defaultListLimit),
	}}, nil
}

// customerField builds the single-row customer lookups (credit limit,
// status, contact, address) which differ only in the selected columns.
func customerField(columns string) Builder {
	sql := `
SELECT ` + columns + `
FROM customers c
WHERE c.id = @customer_id
LIMIT @limit`
	return func(e domain.Entities, _ time.Time) (Query, error) {
		if e.CustomerCode == nil {
			return Query{}, missing("customer's name or code")
		}
		return Query{SQL: sql, Params: map[string]any{
			"customer_id": *e.CustomerCode,
			"limit":       1,
		}}, nil
	}
}

// CustomersByCity lists customers whose city matches the extracted term.
func CustomersByCity(e domain.Entities, _ time.Time) (Query, error) {
	if e.City == "" {
		return Query{}, missing("city")
	}
	clause, params, err := normalize.TextPredicate(e.City, []string{"c.city"}, "city")
	if err != nil {
		return Query{}, missing("city")
	}
	params["limit"] = clampLimit(e.Limit, defaultListLimit)
	sql := `
SELECT c.id, c.name, c.city, c.phone
FROM customers c
WHERE ` + clause + `
ORDER BY c.name ASC
LIMIT @limit`
	return Query{SQL: sql, Params: params}, nil
}

// ProductDetail fetches up to a handful of products matching a description
// term.
func ProductDetail(e domain.Entities, _ time.Time) (Query, error) {
	if e.ProductName == "" {
		return Query{}, missing("product name")
	}
	clause, params, err := normalize.TextPredicate(e.ProductName, []string{"p.description"}, "prod")
	if err != nil {
		return Query{}, missing("product name")
	}
	params["limit"] = productDetailLimit
	sql := `
SELECT p.id, p.description, p.brand, p.unit, p.price, p.net_weight
FROM products p
WHERE p.discontinued_at IS NULL AND ` + clause + `
ORDER BY p.description ASC
LIMIT @limit`
	return Query{SQL: sql, Params: params}, nil
}

// ProductsByBrand lists the active assortment of one brand, alphabetically
// (the one inherently non-temporal listing).
func ProductsByBrand(e domain.Entities, _ time.Time) (Query, error) {
	if e.Brand == "" {
		return Query{}, missing("brand")
	}
	clause, params, err := normalize.TextPredicate(e.Brand, []string{"p.brand", "p.description"}, "brand")
	if err != nil {
		return Query{}, missing("brand")
	}
	params["limit"] = clampLimit(e.Limit, defaultListLimit)
	sql := `
SELECT p.id, p.description, p.brand, p.price
FROM products p
WHERE p.discontinued_at IS NULL AND ` + clause + `
ORDER BY p.description ASC
LIMIT @limit`
	return Query{SQL: sql, Params: params}, nil
}

// DiscontinuedProducts lists items that left the assortment, most recent
// first.
func DiscontinuedProducts(e domain.Entities, _ time.Time) (Query, error) {
	sql := `
SELECT p.id, p.description, p.brand, p.discontinued_at
FROM products p
WHERE p.discontinued_at IS NOT NULL
ORDER BY p.discontinued_at DESC
LIMIT @limit`
	return Query{SQL: sql, Params: map[string]any{
		"limit": clampLimit(e.Limit, defaultListLimit),
	}}, nil
}

// OrderItems lists the lines of one order.
func OrderItems(e domain.Entities, _ time.Time) (Query, error) {
	if e.OrderID == nil {
		return Query{}, missing("order number")
	}
	sql := `
SELECT oi.product_id, p.description, oi.qty, oi.unit_price, oi.qty * oi.unit_price AS line_total
FROM order_items oi
JOIN products p ON p.id = oi.product_id
WHERE oi.order_id = @order_id
ORDER BY p.description ASC
LIMIT @limit`
	return Query{SQL: sql, Params: map[string]any{
		"order_id": *e.OrderID,
		"limit":    orderItemsLimit,
	}}, nil
}

// orderField builds the single-row order lookups (status, total, delivery
// date).
func orderField(columns string) Builder {
	sql := `
SELECT ` + columns + `
FROM orders o
WHERE o.id = @order_id
LIMIT @limit`
	return func(e domain.Entities, _ time.Time) (Query, error) {
		if e.OrderID == nil {
			return Query{}, missing("order number")
		}
		return Query{SQL: sql, Params: map[string]any{
			"order_id": *e.OrderID,
			"limit":    1,
		}}, nil
	}
}

// OrdersByStatus lists orders currently in a given position, most recent
// first. The status value is bound, not validated against a fixed set: the
// ERP grows positions over time.
func OrdersByStatus(e domain.Entities, _ time.Time) (Query, error) {
	if e.OrderStatus == "" {
		return Query{}, missing("order status")
	}
	sql := `
SELECT o.id, o.customer_id, o.total, o.status, o.placed_at
FROM orders o
WHERE LOWER(o.status) = LOWER(@status)
ORDER BY o.placed_at DESC
LIMIT @limit`
	return Query{SQL: sql, Params: map[string]any{
		"status": e.OrderStatus,
		"limit":  clampLimit(e.Limit, defaultListLimit),
	}}, nil
}

// SearchCustomers builds the resolver's lookup: exact id when a code is
// given, fuzzy name/trade-name match otherwise. Capped small so ambiguity
// lists stay readable.
func SearchCustomers(code *int64, name string) (Query, error) {
	if code != nil {
		return Query{SQL: `
SELECT c.id, c.name
FROM customers c
WHERE c.id = @code
LIMIT @limit`, Params: map[string]any{"code": *code, "limit": customerSearchLimit}}, nil
	}
	clause, params, err := normalize.TextPredicate(name, []string{"c.name", "c.trade_name"}, "cust")
	if err != nil {
		return Query{}, missing("customer's name or code")
	}
	params["limit"] = customerSearchLimit
	return Query{SQL: `
SELECT c.id, c.name
FROM customers c
WHERE ` + clause + `
ORDER BY c.name ASC
LIMIT @limit`, Params: params}, nil
}

func mergeParams(dst map[string]any, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}
