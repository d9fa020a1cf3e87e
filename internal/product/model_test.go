package product

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListQuery_Defaults(t *testing.T) {
	q, err := ParseListQuery(url.Values{})
	require.NoError(t, err)

	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, "created_at", q.SortBy)
	assert.True(t, q.Desc)
	assert.Empty(t, q.Keyword)
	assert.Nil(t, q.PriceGte)
	assert.Nil(t, q.PriceLte)
	assert.Nil(t, q.RatingGte)
	assert.Equal(t, 0, q.Offset())
}

func TestParseListQuery_Filters(t *testing.T) {
	values := url.Values{
		"keyword":     {"phone"},
		"category":    {"Mobile"},
		"price[gte]":  {"100"},
		"price[lte]":  {"500.50"},
		"rating[gte]": {"4"},
		"page":        {"3"},
		"limit":       {"20"},
		"sortBy":      {"price"},
		"order":       {"desc"},
	}

	q, err := ParseListQuery(values)
	require.NoError(t, err)

	assert.Equal(t, "phone", q.Keyword)
	assert.Equal(t, "Mobile", q.Category)
	require.NotNil(t, q.PriceGte)
	assert.Equal(t, 100.0, *q.PriceGte)
	require.NotNil(t, q.PriceLte)
	assert.Equal(t, 500.50, *q.PriceLte)
	require.NotNil(t, q.RatingGte)
	assert.Equal(t, 4.0, *q.RatingGte)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 20, q.Limit)
	assert.Equal(t, 40, q.Offset())
	assert.Equal(t, "price", q.SortBy)
	assert.True(t, q.Desc)
}

func TestParseListQuery_UnknownCategory(t *testing.T) {
	_, err := ParseListQuery(url.Values{"category": {"Spaceships"}})
	assert.Error(t, err)
}

func TestParseListQuery_MalformedValuesIgnored(t *testing.T) {
	values := url.Values{
		"price[gte]": {"not-a-number"},
		"page":       {"-2"},
		"limit":      {"abc"},
		"sortBy":     {"password_hash"}, // not in the allow-list
		"order":      {"desc"},
	}

	q, err := ParseListQuery(values)
	require.NoError(t, err)

	assert.Nil(t, q.PriceGte)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, "created_at", q.SortBy, "unknown sort fields fall back to default")
	assert.True(t, q.Desc)
}

func TestParseListQuery_CamelCaseSortAndCap(t *testing.T) {
	q, err := ParseListQuery(url.Values{"sortBy": {"createdAt"}, "order": {"asc"}, "limit": {"5000"}})
	require.NoError(t, err)

	assert.Equal(t, "created_at", q.SortBy)
	assert.False(t, q.Desc)
	assert.Equal(t, maxLimit, q.Limit)
}

func TestNewPagination(t *testing.T) {
	q := ListQuery{Page: 2, Limit: 10}

	p := NewPagination(q, 25, 10)
	assert.Equal(t, 2, p.CurrentPage)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 10, p.ItemsPerPage)
	assert.Equal(t, 25, p.TotalItems)
	assert.Equal(t, 10, p.ItemsOnPage)

	p = NewPagination(ListQuery{Page: 1, Limit: 10}, 0, 0)
	assert.Equal(t, 0, p.TotalPages)
	assert.Equal(t, 0, p.ItemsOnPage)
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory("Mobile"))
	assert.True(t, ValidCategory("Handmade Crafts"))
	assert.False(t, ValidCategory("mobile"), "categories are case-sensitive")
	assert.False(t, ValidCategory(""))
}
