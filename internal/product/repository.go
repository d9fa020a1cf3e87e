package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/storefleet/storefleet/internal/database"
)

var (
	ErrNotFound       = errors.New("product not found")
	ErrReviewNotFound = errors.New("review not found on this product")
	ErrNotReviewOwner = errors.New("not authorized to delete this review")
)

// Repository handles catalog and review persistence.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// CreateInput carries the fields for a new catalog entry.
type CreateInput struct {
	Name        string
	Description string
	Price       float64
	Images      []database.ProductImage
	Category    string
	Stock       int
	CreatedBy   uuid.UUID
}

// UpdateInput carries an admin product edit; nil fields are left untouched.
type UpdateInput struct {
	Name        *string
	Description *string
	Price       *float64
	Images      []database.ProductImage
	Category    *string
	Stock       *int
}

// Empty reports whether the update changes nothing.
func (in UpdateInput) Empty() bool {
	return in.Name == nil && in.Description == nil && in.Price == nil &&
		in.Images == nil && in.Category == nil && in.Stock == nil
}

// Create inserts a new product.
func (r *Repository) Create(ctx context.Context, in CreateInput) (*Product, error) {
	dbProduct := &database.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Images:      in.Images,
		Category:    in.Category,
		Stock:       in.Stock,
		CreatedBy:   in.CreatedBy,
	}

	_, err := r.db.NewInsert().
		Model(dbProduct).
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return mapDBProductToModel(dbProduct), nil
}

// List returns one page of the catalog matching the query, plus the total
// number of matches across all pages.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]Product, int, error) {
	var dbProducts []database.Product

	query := r.db.NewSelect().Model(&dbProducts)

	if q.Keyword != "" {
		query = query.Where("name ILIKE ?", "%"+q.Keyword+"%")
	}
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if q.PriceGte != nil {
		query = query.Where("price >= ?", *q.PriceGte)
	}
	if q.PriceLte != nil {
		query = query.Where("price <= ?", *q.PriceLte)
	}
	if q.RatingGte != nil {
		query = query.Where("rating >= ?", *q.RatingGte)
	}

	direction := "ASC"
	if q.Desc {
		direction = "DESC"
	}
	// SortBy comes out of the parser's allow-list, never from raw input.
	query = query.Order(q.SortBy + " " + direction)

	total, err := query.Limit(q.Limit).Offset(q.Offset()).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	products := make([]Product, 0, len(dbProducts))
	for i := range dbProducts {
		products = append(products, *mapDBProductToModel(&dbProducts[i]))
	}
	return products, total, nil
}

// GetByID retrieves a product by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	dbProduct := new(database.Product)
	err := r.db.NewSelect().
		Model(dbProduct).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product by id: %w", err)
	}

	return mapDBProductToModel(dbProduct), nil
}

// Update applies an admin edit to a product.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Product, error) {
	dbProduct := new(database.Product)
	q := r.db.NewUpdate().
		Model(dbProduct).
		Set("updated_at = now()").
		Where("id = ?", id).
		Returning("*")

	if in.Name != nil {
		q = q.Set("name = ?", *in.Name)
	}
	if in.Description != nil {
		q = q.Set("description = ?", *in.Description)
	}
	if in.Price != nil {
		q = q.Set("price = ?", *in.Price)
	}
	if in.Images != nil {
		q = q.Set("images = ?", in.Images)
	}
	if in.Category != nil {
		q = q.Set("category = ?", *in.Category)
	}
	if in.Stock != nil {
		q = q.Set("stock = ?", *in.Stock)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return mapDBProductToModel(dbProduct), nil
}

// Delete removes a product (reviews cascade) and returns the deleted record.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*Product, error) {
	dbProduct := new(database.Product)
	err := r.db.NewDelete().
		Model(dbProduct).
		Where("id = ?", id).
		Returning("*").
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}

	return mapDBProductToModel(dbProduct), nil
}

// ListReviews returns all reviews for a product, newest first. The product
// must exist; a missing product is ErrNotFound, not an empty list.
func (r *Repository) ListReviews(ctx context.Context, productID uuid.UUID) ([]Review, error) {
	exists, err := r.db.NewSelect().
		Model((*database.Product)(nil)).
		Where("id = ?", productID).
		Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check product: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	var dbReviews []database.Review
	err = r.db.NewSelect().
		Model(&dbReviews).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	reviews := make([]Review, 0, len(dbReviews))
	for i := range dbReviews {
		reviews = append(reviews, *mapDBReviewToModel(&dbReviews[i]))
	}
	return reviews, nil
}

// UpsertReview stores a user's review of a product, replacing any earlier
// one, and recomputes the product's aggregate rating in the same
// transaction.
func (r *Repository) UpsertReview(ctx context.Context, productID, userID uuid.UUID, userName string, rating int, comment string) (*Product, error) {
	var dbProduct database.Product

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*database.Product)(nil)).
			Where("id = ?", productID).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check product: %w", err)
		}
		if !exists {
			return ErrNotFound
		}

		review := &database.Review{
			ProductID: productID,
			UserID:    userID,
			Name:      userName,
			Rating:    rating,
			Comment:   comment,
		}
		_, err = tx.NewInsert().
			Model(review).
			On("CONFLICT (product_id, user_id) DO UPDATE").
			Set("name = EXCLUDED.name").
			Set("rating = EXCLUDED.rating").
			Set("comment = EXCLUDED.comment").
			Set("created_at = now()").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert review: %w", err)
		}

		return recomputeRating(ctx, tx, productID, &dbProduct)
	})
	if err != nil {
		return nil, err
	}

	return mapDBProductToModel(&dbProduct), nil
}

// DeleteReview removes one review. Only the review's author may delete it;
// the aggregate rating is recomputed in the same transaction.
func (r *Repository) DeleteReview(ctx context.Context, productID, reviewID, userID uuid.UUID) (*Product, error) {
	var dbProduct database.Product

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*database.Product)(nil)).
			Where("id = ?", productID).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check product: %w", err)
		}
		if !exists {
			return ErrNotFound
		}

		review := new(database.Review)
		err = tx.NewSelect().
			Model(review).
			Where("id = ?", reviewID).
			Where("product_id = ?", productID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrReviewNotFound
			}
			return fmt.Errorf("failed to get review: %w", err)
		}

		if review.UserID != userID {
			return ErrNotReviewOwner
		}

		_, err = tx.NewDelete().
			Model((*database.Review)(nil)).
			Where("id = ?", reviewID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete review: %w", err)
		}

		return recomputeRating(ctx, tx, productID, &dbProduct)
	})
	if err != nil {
		return nil, err
	}

	return mapDBProductToModel(&dbProduct), nil
}

// recomputeRating refreshes the product's denormalized rating and review
// count from the reviews table and scans the updated row into dst.
func recomputeRating(ctx context.Context, tx bun.Tx, productID uuid.UUID, dst *database.Product) error {
	err := tx.NewUpdate().
		Model(dst).
		Set("rating = COALESCE((SELECT AVG(rating) FROM reviews WHERE product_id = ?), 0)", productID).
		Set("number_of_reviews = (SELECT COUNT(*) FROM reviews WHERE product_id = ?)", productID).
		Set("updated_at = now()").
		Where("id = ?", productID).
		Returning("*").
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to recompute product rating: %w", err)
	}
	return nil
}

func mapDBProductToModel(dbp *database.Product) *Product {
	return &Product{
		ID:              dbp.ID,
		Name:            dbp.Name,
		Description:     dbp.Description,
		Price:           dbp.Price,
		Rating:          dbp.Rating,
		Images:          dbp.Images,
		Category:        dbp.Category,
		Stock:           dbp.Stock,
		NumberOfReviews: dbp.NumberOfReviews,
		CreatedBy:       dbp.CreatedBy,
		CreatedAt:       dbp.CreatedAt,
		UpdatedAt:       dbp.UpdatedAt,
	}
}

func mapDBReviewToModel(dbr *database.Review) *Review {
	return &Review{
		ID:        dbr.ID,
		ProductID: dbr.ProductID,
		UserID:    dbr.UserID,
		Name:      dbr.Name,
		Rating:    dbr.Rating,
		Comment:   dbr.Comment,
		CreatedAt: dbr.CreatedAt,
	}
}
