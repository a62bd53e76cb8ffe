package types

// OrderType is the side of the order book an item alert watches
type OrderType string

const (
	OrderBuy  OrderType = "buy"
	OrderSell OrderType = "sell"
)

// Valid reports whether the order type is one of buy or sell
func (o OrderType) Valid() bool {
	return o == OrderBuy || o == OrderSell
}

// Tracker is a group of item alerts sharing one destination
type Tracker struct {
	Name           string      `json:"name" mapstructure:"name"`
	WebhookURL     string      `json:"webhook_url" mapstructure:"webhook_url"`
	TelegramChatID int64       `json:"telegram_chat_id" mapstructure:"telegram_chat_id"`
	Items          []ItemAlert `json:"items" mapstructure:"items"`

	// Invalid holds the validation problem that makes the loop skip this tracker
	Invalid string `json:"-" mapstructure:"-"`
}

// ItemAlert is the per-item alert configuration of a tracker
type ItemAlert struct {
	ItemID        int       `json:"item_id" mapstructure:"item_id"`
	OrderType     OrderType `json:"order_type" mapstructure:"order_type"`
	Mention       *string   `json:"mention" mapstructure:"mention"`
	LowPriceAlert *int64    `json:"low_price_alert" mapstructure:"low_price_alert"`
	NewOrderAlert bool      `json:"new_order_alert" mapstructure:"new_order_alert"`
}

// ItemMetadata is the display information of a tradable item
type ItemMetadata struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// PriceQuote holds the best buy and sell unit prices of an item in copper
type PriceQuote struct {
	ItemID        int   `json:"item_id"`
	BuyUnitPrice  int64 `json:"buy_unit_price"`
	SellUnitPrice int64 `json:"sell_unit_price"`
}

// UnitPrice selects the price of the given side, ok is false for an unknown side
func (q PriceQuote) UnitPrice(o OrderType) (int64, bool) {
	switch o {
	case OrderBuy:
		return q.BuyUnitPrice, true
	case OrderSell:
		return q.SellUnitPrice, true
	}
	return 0, false
}
