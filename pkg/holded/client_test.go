package holded

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))
}

func TestListProducts_Paged(t *testing.T) {
	var pagesServed []string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Key"))
		page := r.URL.Query().Get("page")
		pagesServed = append(pagesServed, page)

		w.Header().Set("Content-Type", "application/json")
		switch page {
		case "1":
			products := make([]Product, perPage)
			for i := range products {
				products[i] = Product{ID: fmt.Sprintf("p%d", i), SKU: fmt.Sprintf("SKU-%d", i)}
			}
			_ = json.NewEncoder(w).Encode(products)
		default:
			_ = json.NewEncoder(w).Encode([]Product{{ID: "last", SKU: "SKU-LAST"}})
		}
	}))

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, perPage+1)
	assert.Equal(t, []string{"1", "2"}, pagesServed, "a short page ends pagination")
}

func TestListProducts_EmptyFirstPage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestListProducts_ErrorStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	_, err := client.ListProducts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestUpdatePrice_Plain(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/products/p1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))

	err := client.UpdatePrice(context.Background(), "p1", "", decimal.RequireFromString("119.95"), false)
	require.NoError(t, err)
	assert.Equal(t, "119.95", fmt.Sprint(gotBody["price"]))
	_, hasTags := gotBody["tags"]
	assert.False(t, hasTags)
}

func TestUpdatePrice_OfferTagMergedOnce(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(Product{ID: "p1", Tags: []string{"bikes", "Oferta"}})
		case http.MethodPut:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusOK)
		}
	}))

	err := client.UpdatePrice(context.Background(), "p1", "", decimal.RequireFromString("80"), true)
	require.NoError(t, err)

	tags, ok := gotBody["tags"].([]any)
	require.True(t, ok)
	// Existing "Oferta" (any case) is kept, not duplicated.
	assert.Equal(t, []any{"bikes", "Oferta"}, tags)
}

func TestUpdatePrice_OfferTagAddedWhenMissing(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(Product{ID: "p1", Tags: []string{"bikes"}})
		case http.MethodPut:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusOK)
		}
	}))

	err := client.UpdatePrice(context.Background(), "p1", "", decimal.RequireFromString("80"), true)
	require.NoError(t, err)

	tags, ok := gotBody["tags"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"bikes", "oferta"}, tags)
}

func TestUpdatePrice_VariantEndpoint(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/products/p1/variants/v2", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))

	err := client.UpdatePrice(context.Background(), "p1", "v2", decimal.RequireFromString("28.00"), false)
	require.NoError(t, err)
	assert.Equal(t, "28", fmt.Sprint(gotBody["price"]))
}

func TestUpdatePrice_VariantOfferTagsParent(t *testing.T) {
	var variantBody, productBody map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/products/p1/variants/v2":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&variantBody))
		case r.Method == http.MethodGet && r.URL.Path == "/products/p1":
			_ = json.NewEncoder(w).Encode(Product{ID: "p1", Tags: []string{"bikes"}})
		case r.Method == http.MethodPut && r.URL.Path == "/products/p1":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&productBody))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	err := client.UpdatePrice(context.Background(), "p1", "v2", decimal.RequireFromString("28.00"), true)
	require.NoError(t, err)

	// The price lands on the variant; the offer tag lands on the parent.
	assert.Equal(t, "28", fmt.Sprint(variantBody["price"]))
	_, variantHasTags := variantBody["tags"]
	assert.False(t, variantHasTags)
	assert.Equal(t, []any{"bikes", "oferta"}, productBody["tags"])
}

func TestUpdateStock_PostsSignedDelta(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/products/p1/stock", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))

	err := client.UpdateStock(context.Background(), StockMovement{
		ProductID:   "p1",
		VariantID:   "v1",
		WarehouseID: "wh-main",
		Units:       -40,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(-40), gotBody["units"])
	assert.Equal(t, "wh-main", gotBody["warehouseId"])
	assert.Equal(t, "v1", gotBody["variantId"])
}

func TestUpdateStock_FailureSurfaces(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "warehouse not found", http.StatusUnprocessableEntity)
	}))
	err := client.UpdateStock(context.Background(), StockMovement{ProductID: "p1", Units: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")
}

func TestTestConnection(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	require.NoError(t, client.TestConnection(context.Background()))
}
