// Package domain – relational models and result types.
//
// The retail tables (customers, products, orders, order_items) mirror the
// ERP store the assistant answers questions about. The service only ever
// SELECTs from them; the GORM mappings exist so that local and test
// databases can be migrated and seeded. ProcessedMessage is the one table
// the service writes: webhook message-id deduplication with a TTL.
package domain

import "time"

// Row is one result row of a catalog query: column name → scalar value.
// Column names are lowercase. An empty slice of rows is a valid outcome,
// not an error.
type Row map[string]any

// Candidate is one possible match for a fuzzy customer lookup, surfaced to
// the user when resolution is ambiguous.
type Candidate struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ResolvedCustomer is the outcome of successful entity resolution: a single
// numeric identifier plus display name. Name may be empty when the user
// supplied an explicit code and no lookup was performed.
type ResolvedCustomer struct {
	ID   int64
	Name string
}

// Customer is a buyer account in the retail store.
type Customer struct {
	ID          int64     `json:"id"           gorm:"primaryKey"`
	Name        string    `json:"name"         gorm:"type:varchar(120);not null;index"`
	TradeName   string    `json:"trade_name"   gorm:"type:varchar(120)"`
	City        string    `json:"city"         gorm:"type:varchar(80);index"`
	Phone       string    `json:"phone"        gorm:"type:varchar(32)"`
	Email       string    `json:"email"        gorm:"type:varchar(120)"`
	Address     string    `json:"address"      gorm:"type:varchar(255)"`
	CreditLimit float64   `json:"credit_limit"`
	Blocked     bool      `json:"blocked"`
	CreatedAt   time.Time `json:"created_at"   gorm:"index"`
}

// TableName returns the database table name for Customer.
func (Customer) TableName() string { return "customers" }

// Product is a sellable item. DiscontinuedAt is set when the item leaves the
// assortment; active-listing queries filter on it being NULL.
type Product struct {
	ID             int64      `json:"id"              gorm:"primaryKey"`
	Description    string     `json:"description"     gorm:"type:varchar(200);not null;index"`
	Brand          string     `json:"brand"           gorm:"type:varchar(80);index"`
	Unit           string     `json:"unit"            gorm:"type:varchar(16)"`
	Price          float64    `json:"price"`
	NetWeight      float64    `json:"net_weight"`
	DiscontinuedAt *time.Time `json:"discontinued_at,omitempty"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// Order is one sale header. Status carries the ERP position of the order
// (e.g. "billed", "blocked", "pending").
type Order struct {
	ID           int64      `json:"id"            gorm:"primaryKey"`
	CustomerID   int64      `json:"customer_id"   gorm:"not null;index"`
	Total        float64    `json:"total"`
	Status       string     `json:"status"        gorm:"type:varchar(32);index"`
	PlacedAt     time.Time  `json:"placed_at"     gorm:"index"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }

// OrderItem is one line of an order.
type OrderItem struct {
	OrderID   int64   `json:"order_id"   gorm:"primaryKey;autoIncrement:false"`
	ProductID int64   `json:"product_id" gorm:"primaryKey;autoIncrement:false"`
	Qty       float64 `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
}

// TableName returns the database table name for OrderItem.
func (OrderItem) TableName() string { return "order_items" }

// ProcessedMessage records a webhook message id that has already been
// handled, so transport redeliveries do not trigger duplicate replies.
// Rows are purged once they age past the dedup TTL.
type ProcessedMessage struct {
	ID             string    `gorm:"type:varchar(128);primaryKey"`
	ConversationID string    `gorm:"type:varchar(64);not null;index"`
	SeenAt         time.Time `gorm:"not null;index"`
}

// TableName returns the database table name for ProcessedMessage.
func (ProcessedMessage) TableName() string { return "processed_messages" }
