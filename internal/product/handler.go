package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storefleet/storefleet/internal/database"
	"github.com/storefleet/storefleet/internal/httputil"
	"github.com/storefleet/storefleet/internal/logging"
	"github.com/storefleet/storefleet/internal/user"
)

// identityFromContext matches auth.GetUserFromContext without importing the
// auth package.
type identityFromContext func(ctx context.Context) (*user.User, bool)

// Handler contains HTTP handlers for the product catalog and reviews.
type Handler struct {
	repo     *Repository
	identity identityFromContext
	logger   *logging.Logger
}

func NewHandler(repo *Repository, identity identityFromContext, logger *logging.Logger) *Handler {
	return &Handler{repo: repo, identity: identity, logger: logger}
}

// ProductResponse wraps a single product payload.
type ProductResponse struct {
	Success bool    `json:"success"`
	Product Product `json:"product"`
}

// ProductListData is the payload of a catalog listing.
type ProductListData struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// ProductListResponse wraps a catalog listing.
type ProductListResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    ProductListData `json:"data"`
}

// ReviewListResponse wraps the reviews of a product.
type ReviewListResponse struct {
	Success bool     `json:"success"`
	Reviews []Review `json:"reviews"`
}

// AddProductRequest carries a new catalog entry.
type AddProductRequest struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Price       *float64                `json:"price"`
	Images      []database.ProductImage `json:"images"`
	Category    string                  `json:"category"`
	Stock       *int                    `json:"stock"`
}

// UpdateProductRequest carries an admin product edit; nil fields are left
// untouched.
type UpdateProductRequest struct {
	Name        *string                 `json:"name"`
	Description *string                 `json:"description"`
	Price       *float64                `json:"price"`
	Images      []database.ProductImage `json:"images"`
	Category    *string                 `json:"category"`
	Stock       *int                    `json:"stock"`
}

// RateProductRequest carries a review submission.
type RateProductRequest struct {
	Rating  *int   `json:"rating"`
	Comment string `json:"comment"`
}

// List returns a filtered, paginated catalog page
// @Summary      List products
// @Tags         product
// @Produce      json
// @Param        keyword     query string false "Substring match on name"
// @Param        category    query string false "Exact category"
// @Param        price[gte]  query number false "Minimum price"
// @Param        price[lte]  query number false "Maximum price"
// @Param        rating[gte] query number false "Minimum rating"
// @Param        page        query int    false "Page number (default 1)"
// @Param        limit       query int    false "Items per page (default 10)"
// @Param        sortBy      query string false "name|price|rating|created_at|updated_at"
// @Param        order       query string false "asc|desc"
// @Success      200 {object} ProductListResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /api/storefleet/product/products [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	q, err := ParseListQuery(r.URL.Query())
	if err != nil {
		httputil.RespondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	products, total, err := h.repo.List(r.Context(), q)
	if err != nil {
		logger.Error("failed to list products", "error", err.Error())
		httputil.RespondError(w, "error fetching products", http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, ProductListResponse{
		Success: true,
		Message: "products retrieved successfully",
		Data: ProductListData{
			Products:   products,
			Pagination: NewPagination(q, total, len(products)),
		},
	}, http.StatusOK)
}

// Details returns one product
// @Summary      Product details
// @Tags         product
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} ProductResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/storefleet/product/details/{id} [get]
func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := parseProductID(w, r)
	if !ok {
		return
	}

	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondError(w, "product not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to get product", "product_id", id, "error", err.Error())
		httputil.RespondError(w, "error fetching product details", http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, ProductResponse{Success: true, Product: *p}, http.StatusOK)
}

// Add creates a catalog entry
// @Summary      Add product (admin)
// @Tags         product
// @Accept       json
// @Produce      json
// @Security     SessionAuth
// @Param        request body AddProductRequest true "Product fields"
// @Success      201 {object} ProductResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /api/storefleet/product/add [post]
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	creator, ok := h.identity(r.Context())
	if !ok {
		httputil.RespondError(w, "login required to access this resource, please login", http.StatusUnauthorized)
		return
	}

	var req AddProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.Description == "" || req.Price == nil || req.Category == "" || req.Stock == nil || len(req.Images) == 0 {
		httputil.RespondError(w,
			"missing required product fields: name, description, price, category, stock, and at least one image are required",
			http.StatusBadRequest)
		return
	}
	if msg := validateProductFields(req.Description, *req.Price, req.Category, *req.Stock, req.Images); msg != "" {
		httputil.RespondError(w, msg, http.StatusBadRequest)
		return
	}

	p, err := h.repo.Create(r.Context(), CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Images:      req.Images,
		Category:    req.Category,
		Stock:       *req.Stock,
		CreatedBy:   creator.ID,
	})
	if err != nil {
		logger.Error("failed to create product", "error", err.Error())
		httputil.RespondError(w, "error occurred while adding the product", http.StatusInternalServerError)
		return
	}

	logger.Info("product added", "product_id", p.ID, "created_by", creator.ID)
	httputil.RespondJSON(w, ProductResponse{Success: true, Product: *p}, http.StatusCreated)
}

// Update edits a catalog entry
// @Summary      Update product (admin)
// @Tags         product
// @Accept       json
// @Produce      json
// @Security     SessionAuth
// @Param        id      path string               true "Product ID"
// @Param        request body UpdateProductRequest true "Fields to change"
// @Success      200 {object} ProductResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/storefleet/product/update/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := parseProductID(w, r)
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	in := UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Images:      req.Images,
		Category:    req.Category,
		Stock:       req.Stock,
	}
	if in.Empty() {
		httputil.RespondError(w, "no data provided for update", http.StatusBadRequest)
		return
	}

	if req.Description != nil && len(*req.Description) < minDescriptionLength {
		httputil.RespondError(w, fmt.Sprintf("product description should be at least %d characters long", minDescriptionLength), http.StatusBadRequest)
		return
	}
	if req.Price != nil && *req.Price < 0 {
		httputil.RespondError(w, "price cannot be negative", http.StatusBadRequest)
		return
	}
	if req.Stock != nil && *req.Stock < 0 {
		httputil.RespondError(w, "stock cannot be negative", http.StatusBadRequest)
		return
	}
	if req.Category != nil && !ValidCategory(*req.Category) {
		httputil.RespondError(w, fmt.Sprintf("'%s' is not a supported category", *req.Category), http.StatusBadRequest)
		return
	}

	p, err := h.repo.Update(r.Context(), id, in)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondError(w, "product not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to update product", "product_id", id, "error", err.Error())
		httputil.RespondError(w, "error occurred while updating the product", http.StatusInternalServerError)
		return
	}

	logger.Info("product updated", "product_id", id)
	httputil.RespondJSON(w, ProductResponse{Success: true, Product: *p}, http.StatusOK)
}

// Delete removes a catalog entry
// @Summary      Delete product (admin)
// @Tags         product
// @Produce      json
// @Security     SessionAuth
// @Param        id path string true "Product ID"
// @Success      200 {object} ProductResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/storefleet/product/delete/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := parseProductID(w, r)
	if !ok {
		return
	}

	p, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondError(w, "product not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to delete product", "product_id", id, "error", err.Error())
		httputil.RespondError(w, "error occurred while deleting the product", http.StatusInternalServerError)
		return
	}

	logger.Info("product deleted", "product_id", id)
	httputil.RespondJSON(w, ProductResponse{Success: true, Product: *p}, http.StatusOK)
}

// Reviews returns all reviews of a product
// @Summary      Product reviews
// @Tags         product
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} ReviewListResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/storefleet/product/reviews/{id} [get]
func (h *Handler) Reviews(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := parseProductID(w, r)
	if !ok {
		return
	}

	reviews, err := h.repo.ListReviews(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondError(w, "product not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to list reviews", "product_id", id, "error", err.Error())
		httputil.RespondError(w, "error fetching product reviews", http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, ReviewListResponse{Success: true, Reviews: reviews}, http.StatusOK)
}

// Rate submits or replaces the caller's review of a product
// @Summary      Rate product
// @Tags         product
// @Accept       json
// @Produce      json
// @Security     SessionAuth
// @Param        id      path string             true "Product ID"
// @Param        request body RateProductRequest true "Rating and comment"
// @Success      200 {object} ProductResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/storefleet/product/rate/{id} [put]
func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	reviewer, ok := h.identity(r.Context())
	if !ok {
		httputil.RespondError(w, "login required to access this resource, please login", http.StatusUnauthorized)
		return
	}

	id, ok := parseProductID(w, r)
	if !ok {
		return
	}

	var req RateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Rating == nil {
		httputil.RespondError(w, "rating value is required", http.StatusBadRequest)
		return
	}
	if *req.Rating < 1 || *req.Rating > 5 {
		httputil.RespondError(w, "rating must be a number between 1 and 5", http.StatusBadRequest)
		return
	}

	p, err := h.repo.UpsertReview(r.Context(), id, reviewer.ID, reviewer.Name, *req.Rating, req.Comment)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondError(w, "product not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to rate product", "product_id", id, "error", err.Error())
		httputil.RespondError(w, "error occurred while rating the product", http.StatusInternalServerError)
		return
	}

	logger.Info("product rated", "product_id", id, "user_id", reviewer.ID, "rating", *req.Rating)
	httputil.RespondJSON(w, ProductResponse{Success: true, Product: *p}, http.StatusOK)
}

// DeleteReview removes the caller's review of a product
// @Summary      Delete review
// @Tags         product
// @Produce      json
// @Security     SessionAuth
// @Param        productId query string true "Product ID"
// @Param        reviewId  query string true "Review ID"
// @Success      200 {object} ProductResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/storefleet/product/review/delete [delete]
func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	caller, ok := h.identity(r.Context())
	if !ok {
		httputil.RespondError(w, "login required to access this resource, please login", http.StatusUnauthorized)
		return
	}

	productIDParam := r.URL.Query().Get("productId")
	reviewIDParam := r.URL.Query().Get("reviewId")
	if productIDParam == "" || reviewIDParam == "" {
		httputil.RespondError(w, "productId and reviewId are required as query parameters", http.StatusBadRequest)
		return
	}

	productID, err := uuid.Parse(productIDParam)
	if err != nil {
		httputil.RespondError(w, "invalid product id", http.StatusBadRequest)
		return
	}
	reviewID, err := uuid.Parse(reviewIDParam)
	if err != nil {
		httputil.RespondError(w, "invalid review id", http.StatusBadRequest)
		return
	}

	p, err := h.repo.DeleteReview(r.Context(), productID, reviewID, caller.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httputil.RespondError(w, "product not found", http.StatusNotFound)
		case errors.Is(err, ErrReviewNotFound):
			httputil.RespondError(w, "review not found on this product", http.StatusNotFound)
		case errors.Is(err, ErrNotReviewOwner):
			httputil.RespondError(w, "you are not authorized to delete this review", http.StatusForbidden)
		default:
			logger.Error("failed to delete review", "product_id", productID, "error", err.Error())
			httputil.RespondError(w, "error occurred while deleting the review", http.StatusInternalServerError)
		}
		return
	}

	logger.Info("review deleted", "product_id", productID, "review_id", reviewID)
	httputil.RespondJSON(w, ProductResponse{Success: true, Product: *p}, http.StatusOK)
}

func validateProductFields(description string, price float64, category string, stock int, images []database.ProductImage) string {
	if len(description) < minDescriptionLength {
		return fmt.Sprintf("product description should be at least %d characters long", minDescriptionLength)
	}
	if price < 0 {
		return "price cannot be negative"
	}
	if stock < 0 {
		return "stock cannot be negative"
	}
	if !ValidCategory(category) {
		return fmt.Sprintf("'%s' is not a supported category", category)
	}
	for _, img := range images {
		if img.PublicID == "" || img.URL == "" {
			return "each image needs both a public_id and a url"
		}
	}
	return ""
}

func parseProductID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, "invalid product id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
