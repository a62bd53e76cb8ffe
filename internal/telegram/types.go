package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// BotConfig configuration of the bot
type BotConfig struct {
	Token string
	Debug bool
	// APIEndpoint overrides the telegram bot API url format, "https://api.telegram.org/bot%s/%s" when empty
	APIEndpoint string
}

// Bot telegram delivery client
type Bot struct {
	Bot    *tgbotapi.BotAPI
	Config BotConfig
}

// Message a telegram alert, Chart is attached as a photo when present
type Message struct {
	ChatID int64
	Text   string
	Chart  []byte
}
