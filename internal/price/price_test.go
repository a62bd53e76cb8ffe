package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tp-tracker/internal/types"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/v2/", 2*time.Second)
}

func TestGetItems(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/items", r.URL.Path)
		require.Equal(t, "1001,24", r.URL.Query().Get("ids"))
		require.Equal(t, "en", r.URL.Query().Get("lang"))
		w.Write([]byte(`[
			{"id": 1001, "name": "Mystic Coin", "icon": "https://render.example/1001.png", "rarity": "Rare"},
			{"id": 24, "name": "Sealed Package of Snowballs", "icon": "https://render.example/24.png"}
		]`))
	})

	items, err := client.GetItems(context.Background(), []int{1001, 24})
	require.NoError(t, err)
	require.Equal(t, []types.ItemMetadata{
		{ID: 1001, Name: "Mystic Coin", Icon: "https://render.example/1001.png"},
		{ID: 24, Name: "Sealed Package of Snowballs", Icon: "https://render.example/24.png"},
	}, items)
}

func TestGetPrices(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/commerce/prices", r.URL.Path)
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte(`[{"id": 1001, "whitelisted": false,
			"buys": {"quantity": 120, "unit_price": 450},
			"sells": {"quantity": 80, "unit_price": 520}}]`))
	})

	quotes, err := client.GetPrices(context.Background(), []int{1001, 99999999})
	require.NoError(t, err)
	require.Equal(t, []types.PriceQuote{{ItemID: 1001, BuyUnitPrice: 450, SellUnitPrice: 520}}, quotes)
}

func TestGetPrices_SingleObject(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 24, "buys": {"unit_price": 10}, "sells": {"unit_price": 12}}`))
	})

	quotes, err := client.GetPrices(context.Background(), []int{24})
	require.NoError(t, err)
	require.Equal(t, []types.PriceQuote{{ItemID: 24, BuyUnitPrice: 10, SellUnitPrice: 12}}, quotes)
}

func TestGetPrices_Error(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"text": "all ids provided are invalid"}`))
	})

	_, err := client.GetPrices(context.Background(), []int{1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "all ids provided are invalid")
}

func TestGetPrices_RetriesServerErrors(t *testing.T) {
	var calls int32
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"id": 1, "buys": {"unit_price": 1}, "sells": {"unit_price": 2}}]`))
	})

	quotes, err := client.GetPrices(context.Background(), []int{1})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetItems_Empty(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second)
	items, err := client.GetItems(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, items)
}
