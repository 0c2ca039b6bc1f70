package storeapi

// Order is the submission payload sent to the store API. Amounts
// mirror a pricing result rounded to two decimals; the backend
// recomputes them authoritatively.
type Order struct {
	IdempotencyKey string      `json:"idempotency_key"`
	SessionID      string      `json:"session_id"`
	Subtotal       float64     `json:"subtotal"`
	ShippingFee    float64     `json:"shipping_fee"`
	TaxAmount      float64     `json:"tax_amount"`
	DiscountAmount float64     `json:"discount_amount"`
	TotalAmount    float64     `json:"total_amount"`
	Items          []OrderItem `json:"items"`
	Payment        Payment     `json:"payment"`
	Shipping       Address     `json:"shipping_address"`
	Notes          string      `json:"notes,omitempty"`
}

// OrderItem is one submitted line.
type OrderItem struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

// Payment describes the chosen payment channel. Capture happens
// entirely upstream.
type Payment struct {
	Method  string `json:"method"`
	Channel string `json:"channel,omitempty"`
}

// Address is the delivery address block.
type Address struct {
	ReceiverName string `json:"receiver_name"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
}

// OrderAck is the upstream acknowledgement of a submitted order.
type OrderAck struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}
