package price

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"tp-tracker/internal/types"
)

// Client talks to the trading post endpoints of the Guild Wars 2 API
type Client struct {
	base   string
	client *resty.Client
}

type itemResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type listing struct {
	Quantity  int64 `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}

type priceResponse struct {
	ID          int     `json:"id"`
	Whitelisted bool    `json:"whitelisted"`
	Buys        listing `json:"buys"`
	Sells       listing `json:"sells"`
}

// NewClient creates a client for the API rooted at base, every request is bounded by timeout
func NewClient(base string, timeout time.Duration) *Client {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")
	client.SetRetryCount(2)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err == nil && r.StatusCode() >= http.StatusInternalServerError
	})

	return &Client{
		base:   strings.TrimRight(base, "/"),
		client: client,
	}
}

// Base is the API root the client was created with
func (c *Client) Base() string {
	return c.base
}

// GetItems fetches name and icon of every id in one request
func (c *Client) GetItems(ctx context.Context, ids []int) ([]types.ItemMetadata, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var items []itemResponse
	if err := c.get(ctx, "/items", ids, &items); err != nil {
		return nil, errors.Wrap(err, "could not fetch items")
	}

	result := make([]types.ItemMetadata, 0, len(items))
	for _, item := range items {
		result = append(result, types.ItemMetadata{ID: item.ID, Name: item.Name, Icon: item.Icon})
	}
	return result, nil
}

// GetPrices fetches the best buy and sell listing of every id in one request
func (c *Client) GetPrices(ctx context.Context, ids []int) ([]types.PriceQuote, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var prices []priceResponse
	if err := c.get(ctx, "/commerce/prices", ids, &prices); err != nil {
		return nil, errors.Wrap(err, "could not fetch prices")
	}

	result := make([]types.PriceQuote, 0, len(prices))
	for _, p := range prices {
		result = append(result, types.PriceQuote{
			ItemID:        p.ID,
			BuyUnitPrice:  p.Buys.UnitPrice,
			SellUnitPrice: p.Sells.UnitPrice,
		})
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, endpoint string, ids []int, out interface{}) error {
	idList := make([]string, 0, len(ids))
	for _, id := range ids {
		idList = append(idList, strconv.Itoa(id))
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("ids", strings.Join(idList, ",")).
		SetQueryParam("lang", "en").
		Get(c.base + endpoint)
	if err != nil {
		return err
	}

	// 206 is returned when only part of the ids are known
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusPartialContent {
		return errors.Errorf("%s returned %s: %s", endpoint, resp.Status(), strings.TrimSpace(resp.String()))
	}

	log.Debugf("GET %s ids=%v: %s", endpoint, ids, resp.Status())
	return decodeList(resp.Body(), out)
}

// decodeList decodes a JSON array into out, wrapping a lone object into a one element array
func decodeList(body []byte, out interface{}) error {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		body = append(append([]byte{'['}, body...), ']')
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "could not decode response")
	}
	return nil
}
