package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/storefleet/storefleet/internal/database"
)

// Repository handles order persistence.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// CreateInput carries a validated order. PaidAt is set by the caller when
// payment confirmation is taken as given.
type CreateInput struct {
	UserID        uuid.UUID
	ShippingInfo  database.ShippingInfo
	OrderedItems  []database.OrderedItem
	PaymentID     string
	PaidAt        time.Time
	ItemsPrice    float64
	TaxPrice      float64
	ShippingPrice float64
	TotalPrice    float64
}

// Create inserts a new order in the Processing state.
func (r *Repository) Create(ctx context.Context, in CreateInput) (*Order, error) {
	dbOrder := &database.Order{
		UserID:       in.UserID,
		ShippingInfo: in.ShippingInfo,
		OrderedItems: in.OrderedItems,
		PaymentInfo: database.PaymentInfo{
			ID:     in.PaymentID,
			Status: true,
		},
		PaidAt:        in.PaidAt,
		ItemsPrice:    in.ItemsPrice,
		TaxPrice:      in.TaxPrice,
		ShippingPrice: in.ShippingPrice,
		TotalPrice:    in.TotalPrice,
		OrderStatus:   StatusProcessing,
	}

	_, err := r.db.NewInsert().
		Model(dbOrder).
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	return mapDBOrderToModel(dbOrder), nil
}

// ListByUser returns a user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	var dbOrders []database.Order
	err := r.db.NewSelect().
		Model(&dbOrders).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]Order, 0, len(dbOrders))
	for i := range dbOrders {
		orders = append(orders, *mapDBOrderToModel(&dbOrders[i]))
	}
	return orders, nil
}

func mapDBOrderToModel(dbo *database.Order) *Order {
	return &Order{
		ID:            dbo.ID,
		UserID:        dbo.UserID,
		ShippingInfo:  dbo.ShippingInfo,
		OrderedItems:  dbo.OrderedItems,
		PaymentInfo:   dbo.PaymentInfo,
		PaidAt:        dbo.PaidAt,
		ItemsPrice:    dbo.ItemsPrice,
		TaxPrice:      dbo.TaxPrice,
		ShippingPrice: dbo.ShippingPrice,
		TotalPrice:    dbo.TotalPrice,
		OrderStatus:   dbo.OrderStatus,
		DeliveredAt:   dbo.DeliveredAt,
		CreatedAt:     dbo.CreatedAt,
	}
}
