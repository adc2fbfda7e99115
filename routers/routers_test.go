package routers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canteen/logger"
	"canteen/middleware"
	"canteen/models"
	"canteen/placement"
	"canteen/store/memstore"
)

func newTestRouter(t *testing.T) (*gin.Engine, *memstore.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := memstore.New(memstore.Options{})
	ctx := context.Background()
	_, err := s.AddUser(ctx, models.User{ID: 3, Name: "Asha Verma", Email: "asha@canteen.local", Password: "x"})
	require.NoError(t, err)
	for _, item := range []models.FoodItem{
		{ID: 9, Name: "paneer roll", Price: 80, Category: "snacks", Stock: 0},
		{ID: 14, Name: "veg thali", Price: 100, Category: "meals", Stock: 21},
		{ID: 15, Name: "masala chai", Price: 12.5, Category: "beverages", Stock: 200},
	} {
		_, err := s.AddFoodItem(ctx, item)
		require.NoError(t, err)
	}

	log := logger.Discard()
	router := SetupRouters(Dependencies{
		Engine:  placement.New(s, log),
		Catalog: s.Catalog(),
		Store:   s,
		Logger:  log,
	})
	return router, s
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestWelcomeAndHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(router, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Welcome to the Canteen Management API!", decode(t, w)["message"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = do(router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(middleware.RequestIDHeader))
}

func TestCreateOrder(t *testing.T) {
	router, s := newTestRouter(t)

	w := do(router, http.MethodPost, "/api/orders/create", `{"user_id":3,"items":[{"food_item_id":14,"quantity":1},{"food_item_id":15,"quantity":2}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Message string            `json:"message"`
		Invoice placement.Invoice `json:"invoice"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Asha Verma", resp.Invoice.CustomerName)
	assert.Equal(t, 125.0, resp.Invoice.TotalAmount)
	assert.Equal(t, 2, resp.Invoice.TotalItems)
	assert.Equal(t, "Veg Thali", resp.Invoice.Items[0].FoodItem)
	assert.Equal(t, 25.0, resp.Invoice.Items[1].Subtotal)
	assert.Equal(t, "/api/orders/1", w.Header().Get("Location"))

	item, err := s.Catalog().Lookup(context.Background(), 14)
	require.NoError(t, err)
	assert.Equal(t, 20, item.Stock)

	w = do(router, http.MethodGet, "/api/orders/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = do(router, http.MethodGet, "/api/orders", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode(t, w)["totalCount"])
}

func TestCreateOrderErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
		check  func(t *testing.T, body map[string]any)
	}{
		{
			name:   "malformed body",
			body:   `{"user_id":`,
			status: http.StatusBadRequest,
		},
		{
			name:   "empty cart",
			body:   `{"user_id":3,"items":[]}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "zero quantity",
			body:   `{"user_id":3,"items":[{"food_item_id":14,"quantity":0}]}`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, 1.0, body["item"])
			},
		},
		{
			name:   "unknown user",
			body:   `{"user_id":42,"items":[{"food_item_id":14,"quantity":1}]}`,
			status: http.StatusNotFound,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, 42.0, body["user_id"])
			},
		},
		{
			name:   "unknown food item",
			body:   `{"user_id":3,"items":[{"food_item_id":999,"quantity":1}]}`,
			status: http.StatusNotFound,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, 999.0, body["food_item_id"])
			},
		},
		{
			name:   "out of stock",
			body:   `{"user_id":3,"items":[{"food_item_id":9,"quantity":1}]}`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, 9.0, body["food_item_id"])
				assert.Equal(t, 1.0, body["requested"])
				assert.Equal(t, 0.0, body["available"])
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router, s := newTestRouter(t)

			w := do(router, http.MethodPost, "/api/orders/create", tc.body)
			require.Equal(t, tc.status, w.Code, w.Body.String())
			if tc.check != nil {
				tc.check(t, decode(t, w))
			}

			orders, err := s.Ledger().ListOrders(context.Background())
			require.NoError(t, err)
			assert.Empty(t, orders)
		})
	}
}

func TestGetOrderErrors(t *testing.T) {
	router, _ := newTestRouter(t)

	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodGet, "/api/orders/abc", "").Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/api/orders/77", "").Code)
}

func TestFoodItems(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(router, http.MethodGet, "/api/food_items", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, 3.0, body["totalCount"])
	assert.Len(t, body["food_items"], 3)

	w = do(router, http.MethodGet, "/api/food_items?offset=1&limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	items := decode(t, w)["food_items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Veg Thali", items[0].(map[string]any)["name"])

	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodGet, "/api/food_items?limit=zero", "").Code)

	w = do(router, http.MethodGet, "/api/food_items/15", "")
	require.Equal(t, http.StatusOK, w.Code)
	item := decode(t, w)["food_item"].(map[string]any)
	assert.Equal(t, "Masala Chai", item["name"])
	assert.Equal(t, 12.5, item["price"])

	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/api/food_items/404", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodGet, "/api/food_items/x", "").Code)
}
