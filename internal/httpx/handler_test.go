package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/order-fulfillment/internal/inventory"
	invmemory "github.com/jcmexdev/order-fulfillment/internal/inventory/memory"
	ordermemory "github.com/jcmexdev/order-fulfillment/internal/order/memory"
	"github.com/jcmexdev/order-fulfillment/internal/saga"
)

func newTestServer(t *testing.T, stock map[string]int64) (*httptest.Server, *invmemory.Store, *ordermemory.Store) {
	t.Helper()

	inv := invmemory.NewStore()
	for id, n := range stock {
		require.NoError(t, inv.Put(context.Background(), inventory.Item{ID: id, Stock: n}))
	}
	orders := ordermemory.NewStore()
	orch := saga.NewOrchestrator(inv, orders)

	srv := httptest.NewServer(NewRouter(NewHandler(orch, inv, orders)))
	t.Cleanup(srv.Close)
	return srv, inv, orders
}

func postOrder(t *testing.T, srv *httptest.Server, body string) (*http.Response, CreateOrderResponse) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/orders", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var out CreateOrderResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestCreateOrderCommitted(t *testing.T) {
	srv, inv, orders := newTestServer(t, map[string]int64{"sku-1": 5, "sku-2": 1})

	resp, out := postOrder(t, srv,
		`{"lines":[{"item_id":"sku-1","quantity":2},{"item_id":"sku-2","quantity":1}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, out.Accepted)
	require.NotEmpty(t, out.OrderID)

	item, err := inv.Get(context.Background(), "sku-1")
	require.NoError(t, err)
	require.EqualValues(t, 3, item.Stock)
	require.Equal(t, 1, orders.Len())
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	srv, inv, orders := newTestServer(t, map[string]int64{"sku-1": 5})

	resp, out := postOrder(t, srv, `{"lines":[{"item_id":"sku-1","quantity":10}]}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.False(t, out.Accepted)
	require.Equal(t, "insufficient_stock", out.Reason)
	require.Equal(t, []string{"sku-1"}, out.FailingItemIDs)

	item, err := inv.Get(context.Background(), "sku-1")
	require.NoError(t, err)
	require.EqualValues(t, 5, item.Stock)
	require.Equal(t, 0, orders.Len())
}

func TestCreateOrderRejectsMalformedBody(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/orders", "application/json", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateOrderRejectsEmptyOrder(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	resp, _ := postOrder(t, srv, `{"lines":[]}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetOrderByID(t *testing.T) {
	srv, _, _ := newTestServer(t, map[string]int64{"sku-1": 5})

	_, created := postOrder(t, srv, `{"lines":[{"item_id":"sku-1","quantity":1}]}`)
	require.NotEmpty(t, created.OrderID)

	resp, err := http.Get(srv.URL + "/orders/" + created.OrderID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got OrderResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, created.OrderID, got.ID)
	require.Equal(t, []OrderLineDTO{{ItemID: "sku-1", Quantity: 1}}, got.Lines)
}

func TestGetOrderNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/orders/ghost")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPutAndGetItem(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/items/sku-9",
		bytes.NewBufferString(`{"stock":12}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	getResp, err := http.Get(srv.URL + "/items/sku-9")
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var item ItemResponse
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&item))
	require.Equal(t, "sku-9", item.ID)
	require.EqualValues(t, 12, item.Stock)
}

func TestPutItemRejectsNegativeStock(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/items/sku-9",
		bytes.NewBufferString(`{"stock":-1}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetItemNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/items/ghost")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
