package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// photo captions are capped by telegram, longer alerts go out as plain messages
const maxCaptionLength = 1024

// NewBot creates new telegram bot
func NewBot(c BotConfig) (*Bot, error) {
	endpoint := c.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(c.Token, endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug
	log.Infof("Authorized on telegram account %s", bot.Self.UserName)

	return &Bot{
		Bot:    bot,
		Config: c,
	}, nil
}

// SendMessage sends an alert, as a photo with caption when a chart is attached
func (b *Bot) SendMessage(m Message) error {
	if len(m.Chart) > 0 && len([]rune(m.Text)) <= maxCaptionLength {
		photo := tgbotapi.NewPhoto(m.ChatID, tgbotapi.FileBytes{
			Name:  "chart.png",
			Bytes: m.Chart,
		})
		photo.Caption = m.Text
		photo.ParseMode = tgbotapi.ModeMarkdownV2
		_, err := b.Bot.Send(photo)
		return errors.Wrapf(err, "could not send chart to chat %d", m.ChatID)
	}

	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.DisableWebPagePreview = true
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	_, err := b.Bot.Send(msg)
	return errors.Wrapf(err, "could not send message to chat %d", m.ChatID)
}
