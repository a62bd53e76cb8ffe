package alert

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tp-tracker/internal/history"
	"tp-tracker/internal/types"
)

const testAPIBase = "https://api.guildwars2.com/v2"

func int64Ptr(v int64) *int64 { return &v }

func stringPtr(v string) *string { return &v }

func mysticCoin() map[int]types.ItemMetadata {
	return map[int]types.ItemMetadata{
		1001: {ID: 1001, Name: "Mystic Coin", Icon: "https://render.example/1001.png"},
	}
}

func quoteOf(itemID int, buy, sell int64) map[int]types.PriceQuote {
	return map[int]types.PriceQuote{itemID: {ItemID: itemID, BuyUnitPrice: buy, SellUnitPrice: sell}}
}

func trackerWith(items ...types.ItemAlert) types.Tracker {
	return types.Tracker{WebhookURL: "https://discord.example/hook", Items: items}
}

func TestEvaluate_LowAndNewPriceOnFirstCycle(t *testing.T) {
	tracker := trackerWith(types.ItemAlert{
		ItemID:        1001,
		OrderType:     types.OrderBuy,
		Mention:       stringPtr("<@123>"),
		LowPriceAlert: int64Ptr(500),
		NewOrderAlert: true,
	})
	hist := history.History{}

	alerts := Evaluate(tracker, mysticCoin(), quoteOf(1001, 450, 600), hist, testAPIBase)

	require.Len(t, alerts, 2)
	require.Equal(t, KindLowPrice, alerts[0].Kind)
	require.Equal(t, KindNewPrice, alerts[1].Kind)
	require.Nil(t, alerts[1].Previous)
	require.Equal(t, history.History{"1001-buy": 450}, hist)

	low := alerts[0].Payload
	require.Equal(t, "<@123>", low.Content)
	require.Len(t, low.Embeds, 1)
	require.Equal(t, "Buy order low price alert for *Mystic Coin*", low.Embeds[0].Title)
	require.Equal(t, "rich", low.Embeds[0].Type)
	require.Equal(t, "Buy order price dropped to **0g 4s 50c**", low.Embeds[0].Description)
	require.Equal(t, "https://render.example/1001.png", low.Embeds[0].Image.URL)
	require.Equal(t, "GW2 Api", low.Embeds[0].Provider.Name)
	require.Equal(t, "https://api.guildwars2.com/v2/commerce/prices?ids=1001&lang=en", low.Embeds[0].Provider.URL)

	fresh := alerts[1].Payload.Embeds[0]
	require.Equal(t, "Buy order new price alert for *Mystic Coin*", fresh.Title)
	require.Equal(t, "Buy order price changed to **0g 4s 50c** from **(no old price)**", fresh.Description)

	for _, a := range alerts {
		require.Equal(t, "https://discord.example/hook", a.WebhookURL)
		require.Equal(t, int64(450), a.Price)
	}
}

func TestEvaluate_SecondCycleUnchangedPrice(t *testing.T) {
	tracker := trackerWith(types.ItemAlert{
		ItemID:        1001,
		OrderType:     types.OrderBuy,
		LowPriceAlert: int64Ptr(500),
		NewOrderAlert: true,
	})
	hist := history.History{}

	Evaluate(tracker, mysticCoin(), quoteOf(1001, 450, 600), hist, testAPIBase)
	alerts := Evaluate(tracker, mysticCoin(), quoteOf(1001, 450, 600), hist, testAPIBase)

	require.Len(t, alerts, 1)
	require.Equal(t, KindLowPrice, alerts[0].Kind)
	require.Equal(t, "", alerts[0].Payload.Content)
	require.Equal(t, history.History{"1001-buy": 450}, hist)
}

func TestEvaluate_NewPriceIdempotent(t *testing.T) {
	tracker := trackerWith(
		types.ItemAlert{ItemID: 1001, OrderType: types.OrderSell, NewOrderAlert: true},
		types.ItemAlert{ItemID: 1001, OrderType: types.OrderBuy, NewOrderAlert: true},
	)
	hist := history.History{}
	quotes := quoteOf(1001, 450, 600)

	require.Len(t, Evaluate(tracker, mysticCoin(), quotes, hist, testAPIBase), 2)
	require.Empty(t, Evaluate(tracker, mysticCoin(), quotes, hist, testAPIBase))
	require.Equal(t, history.History{"1001-buy": 450, "1001-sell": 600}, hist)
}

func TestEvaluate_NewPriceOnChange(t *testing.T) {
	tracker := trackerWith(types.ItemAlert{ItemID: 1001, OrderType: types.OrderSell, NewOrderAlert: true})
	hist := history.History{"1001-sell": 12345}

	alerts := Evaluate(tracker, mysticCoin(), quoteOf(1001, 1, 10203), hist, testAPIBase)

	require.Len(t, alerts, 1)
	require.NotNil(t, alerts[0].Previous)
	require.Equal(t, int64(12345), *alerts[0].Previous)
	require.Equal(t, "Sell order price changed to **1g 2s 3c** from **1g 23s 45c**", alerts[0].Payload.Embeds[0].Description)
	require.Equal(t, int64(10203), hist["1001-sell"])
}

func TestEvaluate_LowPriceBoundary(t *testing.T) {
	tracker := trackerWith(types.ItemAlert{ItemID: 1001, OrderType: types.OrderBuy, LowPriceAlert: int64Ptr(500)})

	for price, fires := range map[int64]bool{499: true, 500: false, 501: false, 0: true} {
		alerts := Evaluate(tracker, mysticCoin(), quoteOf(1001, price, 0), history.History{}, testAPIBase)
		if fires {
			require.Len(t, alerts, 1, "price %d", price)
			require.Equal(t, KindLowPrice, alerts[0].Kind)
		} else {
			require.Empty(t, alerts, "price %d", price)
		}
	}
}

func TestEvaluate_LowPriceNeverTouchesHistory(t *testing.T) {
	tracker := trackerWith(types.ItemAlert{ItemID: 1001, OrderType: types.OrderBuy, LowPriceAlert: int64Ptr(500)})
	hist := history.History{}

	for i := 0; i < 3; i++ {
		require.Len(t, Evaluate(tracker, mysticCoin(), quoteOf(1001, 100, 0), hist, testAPIBase), 1)
	}
	require.Empty(t, hist)
}

func TestEvaluate_NothingConfigured(t *testing.T) {
	tracker := trackerWith(types.ItemAlert{ItemID: 1001, OrderType: types.OrderSell})
	hist := history.History{}

	require.Empty(t, Evaluate(tracker, mysticCoin(), quoteOf(1001, 1, 1), hist, testAPIBase))
	require.Empty(t, hist)
}

func TestEvaluate_UnknownOrderTypeSkipped(t *testing.T) {
	tracker := trackerWith(
		types.ItemAlert{ItemID: 1001, OrderType: "bid", LowPriceAlert: int64Ptr(500), NewOrderAlert: true},
		types.ItemAlert{ItemID: 1001, OrderType: types.OrderBuy, NewOrderAlert: true},
	)
	hist := history.History{}

	alerts := Evaluate(tracker, mysticCoin(), quoteOf(1001, 1, 1), hist, testAPIBase)
	require.Len(t, alerts, 1)
	require.Equal(t, types.OrderBuy, alerts[0].OrderType)
	require.Equal(t, history.History{"1001-buy": 1}, hist)
}

func TestEvaluate_MissingQuoteOrMetadataSkipped(t *testing.T) {
	tracker := trackerWith(
		types.ItemAlert{ItemID: 1001, OrderType: types.OrderBuy, NewOrderAlert: true},
		types.ItemAlert{ItemID: 24, OrderType: types.OrderBuy, NewOrderAlert: true},
		types.ItemAlert{ItemID: 77, OrderType: types.OrderBuy, NewOrderAlert: true},
	)
	quotes := map[int]types.PriceQuote{
		1001: {ItemID: 1001, BuyUnitPrice: 5},
		77:   {ItemID: 77, BuyUnitPrice: 7},
		555:  {ItemID: 555, BuyUnitPrice: 9},
	}
	hist := history.History{}

	alerts := Evaluate(tracker, mysticCoin(), quotes, hist, testAPIBase)
	require.Len(t, alerts, 1)
	require.Equal(t, 1001, alerts[0].ItemID)
	require.Equal(t, history.History{"1001-buy": 5}, hist)
}

func TestTelegramText(t *testing.T) {
	tracker := types.Tracker{TelegramChatID: -100, Items: []types.ItemAlert{
		{ItemID: 1001, OrderType: types.OrderBuy, LowPriceAlert: int64Ptr(500)},
	}}
	alerts := Evaluate(tracker, mysticCoin(), quoteOf(1001, 450, 0), history.History{}, testAPIBase)
	require.Len(t, alerts, 1)
	require.Equal(t, int64(-100), alerts[0].TelegramChatID)

	text := TelegramText(alerts[0], ProviderURL(testAPIBase, 1001))
	require.Equal(t,
		"🚨 *Buy order low price alert for _Mystic Coin_*\n\n"+
			"Buy order price dropped to *0g 4s 50c*\n\n"+
			"[GW2 Api](https://api.guildwars2.com/v2/commerce/prices?ids=1001&lang=en)",
		text)
}
