package models

// Order is the narrow view of the order aggregate the orchestrator needs:
// enough to check structural validity at workflow start. Pricing, tax and
// the rest of the aggregate live with the order service.
type Order struct {
	ID         string      `json:"id"`
	CustomerID string      `json:"customer_id"`
	VendorID   string      `json:"vendor_id,omitempty"`
	Items      []OrderItem `json:"items"`
	Total      float64     `json:"total"`
}

// OrderItem is a single line item on an order.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Valid reports whether the order is structurally fit for processing.
func (o Order) Valid() bool {
	return o.ID != "" && len(o.Items) > 0
}
