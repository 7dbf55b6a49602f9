// Package domain defines the conversational contract shared by the NLU
// boundary, the query catalog, and the orchestrator: the closed set of
// intents, the typed entity payload extracted from user text, and the
// relational models the catalog queries against.
//
// The intent set is deliberately closed. The NLU collaborator is free-form,
// so every tag it produces is checked against this set at the boundary and
// anything unrecognized degrades to IntentUnknown instead of reaching the
// dispatch table.
package domain

// Intent is a recognized high-level request category.
type Intent string

// Query intents. Each of these maps to exactly one catalog builder; the
// orchestrator verifies that mapping at construction time.
const (
	// Rankings (time-bounded).
	IntentRankedProducts  Intent = "ranked_products"
	IntentRankedCustomers Intent = "ranked_customers"

	// History (time-bounded).
	IntentSalesHistory    Intent = "sales_history"
	IntentRecentCustomers Intent = "recent_customers"

	// Customer-scoped lookups.
	IntentCreditLimit     Intent = "credit_limit"
	IntentCustomerStatus  Intent = "customer_status"
	IntentCustomerContact Intent = "customer_contact"
	IntentCustomerAddress Intent = "customer_address"

	// Customer listings.
	IntentCustomersByCity Intent = "customers_by_city"

	// Products.
	IntentProductDetail        Intent = "product_detail"
	IntentProductsByBrand      Intent = "products_by_brand"
	IntentDiscontinuedProducts Intent = "discontinued_products"

	// Orders.
	IntentOrderItems        Intent = "order_items"
	IntentOrderStatus       Intent = "order_status"
	IntentOrderTotal        Intent = "order_total"
	IntentOrderDeliveryDate Intent = "order_delivery_date"
	IntentOrdersByStatus    Intent = "orders_by_status"
)

// Control intents. These never reach the dispatch table.
const (
	IntentNeedsClarification Intent = "needs_clarification"
	IntentUnknown            Intent = "unknown"
)

// queryIntents lists every dispatchable intent in a fixed order.
var queryIntents = []Intent{
	IntentRankedProducts,
	IntentRankedCustomers,
	IntentSalesHistory,
	IntentRecentCustomers,
	IntentCreditLimit,
	IntentCustomerStatus,
	IntentCustomerContact,
	IntentCustomerAddress,
	IntentCustomersByCity,
	IntentProductDetail,
	IntentProductsByBrand,
	IntentDiscontinuedProducts,
	IntentOrderItems,
	IntentOrderStatus,
	IntentOrderTotal,
	IntentOrderDeliveryDate,
	IntentOrdersByStatus,
}

// QueryIntents returns every intent that must have a catalog builder.
// The slice is a copy; callers may mutate it freely.
func QueryIntents() []Intent {
	out := make([]Intent, len(queryIntents))
	copy(out, queryIntents)
	return out
}

// Known reports whether i is a member of the closed intent set
// (query or control).
func (i Intent) Known() bool {
	if i == IntentNeedsClarification || i == IntentUnknown {
		return true
	}
	for _, q := range queryIntents {
		if i == q {
			return true
		}
	}
	return false
}

// NeedsPeriod reports whether i is time-bounded: rankings and history
// listings must carry a valid period before any query is built.
func (i Intent) NeedsPeriod() bool {
	switch i {
	case IntentRankedProducts, IntentRankedCustomers, IntentSalesHistory, IntentRecentCustomers:
		return true
	}
	return false
}

// CustomerScoped reports whether i requires a resolved customer before the
// catalog builder may run.
func (i Intent) CustomerScoped() bool {
	switch i {
	case IntentSalesHistory, IntentCreditLimit, IntentCustomerStatus,
		IntentCustomerContact, IntentCustomerAddress:
		return true
	}
	return false
}

// Entities is the typed bag of values the NLU collaborator extracts from the
// user's question. Absent values are zero; numeric identifiers use pointers
// so that "absent" and "zero" stay distinguishable.
type Entities struct {
	CustomerCode *int64 `json:"customer_code,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	ProductName  string `json:"product_name,omitempty"`
	Brand        string `json:"brand,omitempty"`
	City         string `json:"city,omitempty"`
	OrderID      *int64 `json:"order_id,omitempty"`
	OrderStatus  string `json:"order_status,omitempty"`
	Criterion    string `json:"criterion,omitempty"`
	Period       string `json:"period,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// Empty reports whether no entity was extracted at all.
func (e Entities) Empty() bool {
	return e.CustomerCode == nil && e.CustomerName == "" && e.ProductName == "" &&
		e.Brand == "" && e.City == "" && e.OrderID == nil && e.OrderStatus == "" &&
		e.Criterion == "" && e.Period == "" && e.Limit == 0
}

// IntentPayload is the structured classification result produced by the NLU
// collaborator for one user question.
//
// Invariant: IntentNeedsClarification implies empty Entities and a non-empty
// Clarification message. The orchestrator enforces this at the boundary and
// degrades violations to IntentUnknown.
type IntentPayload struct {
	Intent        Intent   `json:"intent"`
	Entities      Entities `json:"entities"`
	Clarification string   `json:"clarification,omitempty"`
}
