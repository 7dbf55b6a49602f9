// Package catalog – intent → builder registry.
package catalog

import (
	"github.com/varejolabs/salesbot/internal/domain"
)

// Registry returns the complete intent → Builder table. The orchestrator
// checks it against domain.QueryIntents() at construction so a missing
// builder is a startup failure, never a runtime one.
func Registry() map[domain.Intent]Builder {
	return map[domain.Intent]Builder{
		domain.IntentRankedProducts:       RankedProducts,
		domain.IntentRankedCustomers:      RankedCustomers,
		domain.IntentSalesHistory:         SalesHistory,
		domain.IntentRecentCustomers:      RecentCustomers,
		domain.IntentCreditLimit:          customerField("c.id, c.name, c.credit_limit"),
		domain.IntentCustomerStatus:       customerField("c.id, c.name, c.blocked"),
		domain.IntentCustomerContact:      customerField("c.id, c.name, c.phone, c.email"),
		domain.IntentCustomerAddress:      customerField("c.id, c.name, c.address, c.city"),
		domain.IntentCustomersByCity:      CustomersByCity,
		domain.IntentProductDetail:        ProductDetail,
		domain.IntentProductsByBrand:      ProductsByBrand,
		domain.IntentDiscontinuedProducts: DiscontinuedProducts,
		domain.IntentOrderItems:           OrderItems,
		domain.IntentOrderStatus:          orderField("o.id, o.status, o.placed_at"),
		domain.IntentOrderTotal:           orderField("o.id, o.total"),
		domain.IntentOrderDeliveryDate:    orderField("o.id, o.delivery_date"),
		domain.IntentOrdersByStatus:       OrdersByStatus,
	}
}
