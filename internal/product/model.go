package product

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/storefleet/storefleet/internal/database"
)

// Categories is the fixed set of product categories.
var Categories = []string{
	"Mobile", "Electronics", "Clothing", "Home & Garden", "Automotive",
	"Health & Beauty", "Sports & Outdoors", "Toys & Games", "Books & Media",
	"Jewelry", "Food & Grocery", "Furniture", "Shoes", "Pet Supplies",
	"Office Supplies", "Baby & Kids", "Art & Collectibles", "Travel & Luggage",
	"Music Instruments", "Electrical Appliances", "Handmade Crafts",
}

// ValidCategory reports whether category is one of the supported values.
func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

const minDescriptionLength = 10

// Product is the catalog entry as exposed through the API.
type Product struct {
	ID              uuid.UUID               `json:"id"`
	Name            string                  `json:"name"`
	Description     string                  `json:"description"`
	Price           float64                 `json:"price"`
	Rating          float64                 `json:"rating"`
	Images          []database.ProductImage `json:"images"`
	Category        string                  `json:"category"`
	Stock           int                     `json:"stock"`
	NumberOfReviews int                     `json:"number_of_reviews"`
	CreatedBy       uuid.UUID               `json:"created_by"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// Review is one user's rating of a product.
type Review struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// sortColumns maps accepted sortBy values to the columns they order by.
// Anything else falls back to the default ordering.
var sortColumns = map[string]string{
	"name":       "name",
	"price":      "price",
	"rating":     "rating",
	"created_at": "created_at",
	"updated_at": "updated_at",
	// camelCase accepted for compatibility with older clients
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// ListQuery is the parsed form of the catalog listing parameters.
type ListQuery struct {
	Keyword   string
	Category  string
	PriceGte  *float64
	PriceLte  *float64
	RatingGte *float64
	Page      int
	Limit     int
	SortBy    string // column name, already validated
	Desc      bool
}

// Offset returns the row offset for the requested page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// ParseListQuery reads the catalog filters from the URL query. Unknown sort
// fields fall back to created_at descending; absent or malformed numbers are
// ignored rather than rejected, matching how the storefront has always
// treated its query string.
func ParseListQuery(values url.Values) (ListQuery, error) {
	q := ListQuery{
		Keyword:  values.Get("keyword"),
		Category: values.Get("category"),
		Page:     defaultPage,
		Limit:    defaultLimit,
		SortBy:   "created_at",
		Desc:     true,
	}

	if q.Category != "" && !ValidCategory(q.Category) {
		return ListQuery{}, fmt.Errorf("'%s' is not a supported category", q.Category)
	}

	q.PriceGte = parseFloatParam(values.Get("price[gte]"))
	q.PriceLte = parseFloatParam(values.Get("price[lte]"))
	q.RatingGte = parseFloatParam(values.Get("rating[gte]"))

	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 0 {
		q.Page = page
	}
	if limit, err := strconv.Atoi(values.Get("limit")); err == nil && limit > 0 {
		q.Limit = limit
		if q.Limit > maxLimit {
			q.Limit = maxLimit
		}
	}

	if column, ok := sortColumns[values.Get("sortBy")]; ok {
		q.SortBy = column
		q.Desc = values.Get("order") == "desc"
	}

	return q, nil
}

func parseFloatParam(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// Pagination describes the page window of a listing response.
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	ItemsPerPage int `json:"itemsPerPage"`
	TotalItems   int `json:"totalItems"`
	ItemsOnPage  int `json:"itemsOnPage"`
}

// NewPagination computes the pagination block for a page of results.
func NewPagination(q ListQuery, totalItems, itemsOnPage int) Pagination {
	totalPages := totalItems / q.Limit
	if totalItems%q.Limit != 0 {
		totalPages++
	}
	return Pagination{
		CurrentPage:  q.Page,
		TotalPages:   totalPages,
		ItemsPerPage: q.Limit,
		TotalItems:   totalItems,
		ItemsOnPage:  itemsOnPage,
	}
}
