package alert

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"tp-tracker/internal/chart"
	"tp-tracker/lib/helpers"
	"tp-tracker/lib/translation"
)

// TelegramText renders the webhook embed of a as a MarkdownV2 message
func TelegramText(a Alert, providerURL string) string {
	if len(a.Payload.Embeds) == 0 {
		return ""
	}
	embed := a.Payload.Embeds[0]

	text := fmt.Sprintf("🚨 *%s*\n\n%s",
		discordToMarkdownV2(embed.Title),
		discordToMarkdownV2(embed.Description),
	)
	if providerURL != "" {
		text += fmt.Sprintf("\n\n[%s](%s)", helpers.EscapeMarkdownV2(embed.Provider.Name), escapeLinkURL(providerURL))
	}
	return text
}

// discordToMarkdownV2 escapes text for telegram, keeping **bold** as bold and *italic* as italic
func discordToMarkdownV2(text string) string {
	escaped := helpers.EscapeMarkdownV2(text)
	escaped = strings.ReplaceAll(escaped, `\*\*`, "*")
	return strings.ReplaceAll(escaped, `\*`, "_")
}

func escapeLinkURL(url string) string {
	url = strings.ReplaceAll(url, `\`, `\\`)
	return strings.ReplaceAll(url, ")", `\)`)
}

// chart renders the recent observations of the alert's item side, nil when there is nothing to draw
func (s *Service) chart(ctx context.Context, a Alert) []byte {
	if s.opts.Journal == nil {
		return nil
	}

	observations, err := s.opts.Journal.RecentObservations(ctx, a.ItemID, string(a.OrderType), chartPoints)
	if err != nil {
		log.Errorf("❌ Failed to load observations for chart: %v", err)
		return nil
	}
	if len(observations) < 2 {
		return nil
	}

	points := make([]chart.Point, 0, len(observations))
	for _, o := range observations {
		points = append(points, chart.Point{Time: o.ObservedAt, Price: o.UnitPrice})
	}

	title := fmt.Sprintf("%s %s - %s", a.ItemName, helpers.Capitalize(string(a.OrderType)),
		translation.Translate("Price history since %s", humanize.Time(observations[0].ObservedAt)))

	png, err := chart.RenderPriceHistory(title, points)
	if err != nil {
		log.Errorf("❌ Failed to render chart: %v", err)
		return nil
	}
	return png
}
