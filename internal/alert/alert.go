package alert

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"tp-tracker/internal/history"
	"tp-tracker/internal/types"
	"tp-tracker/internal/webhook"
	"tp-tracker/lib/helpers"
	"tp-tracker/lib/translation"
)

// Kind tells which condition produced an alert
type Kind string

const (
	KindLowPrice Kind = "low_price"
	KindNewPrice Kind = "new_price"
)

const providerName = "GW2 Api"

// Alert is one notification decided by Evaluate
type Alert struct {
	Kind      Kind
	ItemID    int
	ItemName  string
	OrderType types.OrderType
	Price     int64
	// Previous is the last notified price of a new price alert, nil when none was recorded
	Previous *int64
	Mention  string

	WebhookURL     string
	TelegramChatID int64
	Payload        webhook.Payload
}

// Evaluate decides which alerts of tracker fire for the given quotes.
// New price alerts advance hist in place before they are delivered.
// Items without a quote or metadata and items with an unknown order type are skipped.
func Evaluate(tracker types.Tracker, metadata map[int]types.ItemMetadata, quotes map[int]types.PriceQuote, hist history.History, apiBase string) []Alert {
	var alerts []Alert

	for _, item := range tracker.Items {
		entry := log.WithFields(log.Fields{"item_id": item.ItemID, "order_type": item.OrderType})

		quote, ok := quotes[item.ItemID]
		if !ok {
			entry.Warn("⚠️ No price returned for item")
			continue
		}
		meta, ok := metadata[item.ItemID]
		if !ok {
			entry.Warn("⚠️ No item details returned for item")
			continue
		}

		current, ok := quote.UnitPrice(item.OrderType)
		if !ok {
			entry.Warn("⚠️ Unknown order type, item skipped")
			continue
		}

		mention := ""
		if item.Mention != nil {
			mention = *item.Mention
		}

		base := Alert{
			ItemID:         item.ItemID,
			ItemName:       meta.Name,
			OrderType:      item.OrderType,
			Price:          current,
			Mention:        mention,
			WebhookURL:     tracker.WebhookURL,
			TelegramChatID: tracker.TelegramChatID,
		}

		entry.Debugf("🔍 Checking item %s | Current: %s", meta.Name, helpers.FormatPrice(current))

		if item.LowPriceAlert != nil && current < *item.LowPriceAlert {
			a := base
			a.Kind = KindLowPrice
			a.Payload = lowPricePayload(a, meta, apiBase)
			alerts = append(alerts, a)
		}

		if item.NewOrderAlert {
			previous, seen := hist.Get(item.ItemID, item.OrderType)
			if !seen || previous != current {
				a := base
				a.Kind = KindNewPrice
				if seen {
					a.Previous = &previous
				}
				a.Payload = newPricePayload(a, meta, apiBase)
				alerts = append(alerts, a)

				hist.Set(item.ItemID, item.OrderType, current)
			}
		}
	}

	return alerts
}

// ProviderURL is the API lookup of the item price the alert was computed from
func ProviderURL(apiBase string, itemID int) string {
	return fmt.Sprintf("%s/commerce/prices?ids=%d&lang=en", apiBase, itemID)
}

func lowPricePayload(a Alert, meta types.ItemMetadata, apiBase string) webhook.Payload {
	side := helpers.Capitalize(string(a.OrderType))
	return payload(a, meta, apiBase,
		translation.Translate("%s order low price alert for *%s*", side, meta.Name),
		translation.Translate("%s order price dropped to **%s**", side, helpers.FormatPrice(a.Price)),
	)
}

func newPricePayload(a Alert, meta types.ItemMetadata, apiBase string) webhook.Payload {
	side := helpers.Capitalize(string(a.OrderType))
	previous := translation.Translate("(no old price)")
	if a.Previous != nil {
		previous = helpers.FormatPrice(*a.Previous)
	}
	return payload(a, meta, apiBase,
		translation.Translate("%s order new price alert for *%s*", side, meta.Name),
		translation.Translate("%s order price changed to **%s** from **%s**", side, helpers.FormatPrice(a.Price), previous),
	)
}

func payload(a Alert, meta types.ItemMetadata, apiBase, title, description string) webhook.Payload {
	return webhook.Payload{
		Content: a.Mention,
		Embeds: []webhook.Embed{{
			Title:       title,
			Type:        "rich",
			Description: description,
			Image:       webhook.Image{URL: meta.Icon},
			Provider: webhook.Provider{
				Name: providerName,
				URL:  ProviderURL(apiBase, a.ItemID),
			},
		}},
	}
}
