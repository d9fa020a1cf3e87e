package order

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefleet/storefleet/internal/logging"
	"github.com/storefleet/storefleet/internal/metrics"
	"github.com/storefleet/storefleet/internal/user"
)

func newOrderHandler(identity identityFromContext) *Handler {
	collector := metrics.NewCollector(prometheus.NewRegistry())
	return NewHandler(nil, identity, collector, logging.NewLogger(true))
}

func TestTotalMatches(t *testing.T) {
	assert.True(t, TotalMatches(100, 18, 40, 158))
	assert.True(t, TotalMatches(100, 18, 40, 158.009), "within tolerance")
	assert.True(t, TotalMatches(100, 18, 40, 157.991), "within tolerance the other way")
	assert.False(t, TotalMatches(100, 18, 40, 158.02))
	assert.False(t, TotalMatches(100, 18, 40, 200))
	assert.True(t, TotalMatches(0.1, 0.2, 0, 0.3), "floating point drift absorbed")
}

func testIdentity(u *user.User) identityFromContext {
	return func(ctx context.Context) (*user.User, bool) {
		if u == nil {
			return nil, false
		}
		return u, true
	}
}

func postOrder(t *testing.T, h *Handler, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/order/new", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	return rec
}

func validOrderBody() map[string]any {
	return map[string]any{
		"shipping_info": map[string]any{
			"address": "42 Market Street", "state": "MH", "country": "IN",
			"pincode": "400001", "phone_number": "9999999999",
		},
		"ordered_items": []map[string]any{
			{"name": "Widget", "price": 100.0, "quantity": 1, "image": "https://cdn.example.com/w.jpg", "product_id": uuid.NewString()},
		},
		"payment_info":   map[string]any{"id": "txn_123"},
		"items_price":    100.0,
		"tax_price":      18.0,
		"shipping_price": 40.0,
		"total_price":    158.0,
	}
}

func TestCreateOrder_RequiresIdentity(t *testing.T) {
	h := newOrderHandler(testIdentity(nil))
	rec := postOrder(t, h, validOrderBody())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateOrder_MissingFields(t *testing.T) {
	buyer := &user.User{ID: uuid.New(), Name: "Buyer", Role: user.RoleUser}
	h := newOrderHandler(testIdentity(buyer))

	for _, field := range []string{"shipping_info", "ordered_items", "payment_info", "items_price", "tax_price", "shipping_price", "total_price"} {
		t.Run("missing "+field, func(t *testing.T) {
			body := validOrderBody()
			delete(body, field)
			rec := postOrder(t, h, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateOrder_TotalMismatch(t *testing.T) {
	buyer := &user.User{ID: uuid.New(), Name: "Buyer", Role: user.RoleUser}
	h := newOrderHandler(testIdentity(buyer))

	body := validOrderBody()
	body["total_price"] = 999.0
	rec := postOrder(t, h, body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "total price mismatch")
}
