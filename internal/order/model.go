package order

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/storefleet/storefleet/internal/database"
)

// Order status values. New orders start in StatusProcessing.
const (
	StatusProcessing     = "Processing"
	StatusShipped        = "Shipped"
	StatusDelivered      = "Delivered"
	StatusCancelled      = "Cancelled"
	StatusPaymentPending = "Payment Pending"
)

// priceTolerance absorbs floating point drift when checking the client's
// total against the server-side sum.
const priceTolerance = 0.01

// defaultCountry is filled in when the shipping address omits the country.
const defaultCountry = "IN"

// Order is a placed order as exposed through the API.
type Order struct {
	ID            uuid.UUID              `json:"id"`
	UserID        uuid.UUID              `json:"user_id"`
	ShippingInfo  database.ShippingInfo  `json:"shipping_info"`
	OrderedItems  []database.OrderedItem `json:"ordered_items"`
	PaymentInfo   database.PaymentInfo   `json:"payment_info"`
	PaidAt        time.Time              `json:"paid_at"`
	ItemsPrice    float64                `json:"items_price"`
	TaxPrice      float64                `json:"tax_price"`
	ShippingPrice float64                `json:"shipping_price"`
	TotalPrice    float64                `json:"total_price"`
	OrderStatus   string                 `json:"order_status"`
	DeliveredAt   *time.Time             `json:"delivered_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// TotalMatches reports whether the claimed total agrees with
// items + tax + shipping within the tolerance.
func TotalMatches(itemsPrice, taxPrice, shippingPrice, totalPrice float64) bool {
	return math.Abs(itemsPrice+taxPrice+shippingPrice-totalPrice) <= priceTolerance
}
