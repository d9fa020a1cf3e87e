package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the credential record as stored. The password hash and reset token
// fields never leave the repository layer; API responses are built from the
// user package's PublicUser projection.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID               uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name             string     `bun:"name,notnull"`
	Email            string     `bun:"email,notnull,unique"`
	PasswordHash     string     `bun:"password_hash,notnull"`
	Role             string     `bun:"role,notnull,default:'user'"`
	ResetTokenHash   *string    `bun:"reset_token_hash"`
	ResetTokenExpiry *time.Time `bun:"reset_token_expiry"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID              uuid.UUID      `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name            string         `bun:"name,notnull"`
	Description     string         `bun:"description,notnull"`
	Price           float64        `bun:"price,notnull"`
	Rating          float64        `bun:"rating,notnull,default:0"`
	Images          []ProductImage `bun:"images,type:jsonb"`
	Category        string         `bun:"category,notnull"`
	Stock           int            `bun:"stock,notnull,default:1"`
	NumberOfReviews int            `bun:"number_of_reviews,notnull,default:0"`
	CreatedBy       uuid.UUID      `bun:"created_by,type:uuid,notnull"`
	CreatedAt       time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type ProductImage struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// Review holds one user's rating of a product. One row per (product, user);
// re-rating replaces the existing row.
type Review struct {
	bun.BaseModel `bun:"table:reviews,alias:r"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	ProductID uuid.UUID `bun:"product_id,type:uuid,notnull"`
	UserID    uuid.UUID `bun:"user_id,type:uuid,notnull"`
	Name      string    `bun:"name,notnull"`
	Rating    int       `bun:"rating,notnull"`
	Comment   string    `bun:"comment"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID            uuid.UUID     `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID        uuid.UUID     `bun:"user_id,type:uuid,notnull"`
	ShippingInfo  ShippingInfo  `bun:"shipping_info,type:jsonb"`
	OrderedItems  []OrderedItem `bun:"ordered_items,type:jsonb"`
	PaymentInfo   PaymentInfo   `bun:"payment_info,type:jsonb"`
	PaidAt        time.Time     `bun:"paid_at,notnull"`
	ItemsPrice    float64       `bun:"items_price,notnull,default:0"`
	TaxPrice      float64       `bun:"tax_price,notnull,default:0"`
	ShippingPrice float64       `bun:"shipping_price,notnull,default:0"`
	TotalPrice    float64       `bun:"total_price,notnull,default:0"`
	OrderStatus   string        `bun:"order_status,notnull,default:'Processing'"`
	DeliveredAt   *time.Time    `bun:"delivered_at"`
	CreatedAt     time.Time     `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type ShippingInfo struct {
	Address     string `json:"address"`
	State       string `json:"state"`
	Country     string `json:"country"`
	Pincode     string `json:"pincode"`
	PhoneNumber string `json:"phone_number"`
}

type OrderedItem struct {
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	Image     string    `json:"image"`
	ProductID uuid.UUID `json:"product_id"`
}

type PaymentInfo struct {
	ID     string `json:"id"`
	Status bool   `json:"status"`
}
