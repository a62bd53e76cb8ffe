package alert

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"tp-tracker/config"
	"tp-tracker/internal/database"
	"tp-tracker/internal/history"
	"tp-tracker/internal/metrics"
	"tp-tracker/internal/price"
	"tp-tracker/internal/telegram"
	"tp-tracker/internal/types"
	"tp-tracker/internal/webhook"
)

// PriceAPI is the marketplace the trackers are evaluated against
type PriceAPI interface {
	GetItems(ctx context.Context, ids []int) ([]types.ItemMetadata, error)
	GetPrices(ctx context.Context, ids []int) ([]types.PriceQuote, error)
}

// WebhookSender delivers one payload, reporting whether it was accepted
type WebhookSender interface {
	Send(ctx context.Context, url string, payload webhook.Payload) bool
}

// ChatSender delivers alerts to telegram chats
type ChatSender interface {
	SendMessage(m telegram.Message) error
}

// Journal records alerts and observed prices
type Journal interface {
	InsertAlert(ctx context.Context, a database.AlertRecord) error
	InsertObservations(ctx context.Context, observations []database.Observation) error
	RecentObservations(ctx context.Context, itemID int, orderType string, limit int) ([]database.Observation, error)
}

// Options wires the collaborators of a Service. Only ConfigPath and Metrics are required.
type Options struct {
	ConfigPath string
	Metrics    *metrics.Metrics

	// NewAPI and NewWebhook build clients for the api_base and request_timeout of a config
	NewAPI     func(cfg *config.Config) PriceAPI
	NewWebhook func(cfg *config.Config) WebhookSender

	Telegram ChatSender
	Journal  Journal

	// ForceDebug keeps debug logging whatever loglevel the config asks for
	ForceDebug bool
}

// Service runs the poll loop: reload config and history, evaluate every tracker,
// dispatch the alerts, persist history, sleep.
type Service struct {
	opts Options

	lastConfig *config.Config
	clientKey  string
	api        PriceAPI
	hook       WebhookSender
}

// chartPoints is how many observations a telegram chart shows, a day at the default interval
const chartPoints = 288

func NewService(opts Options) *Service {
	if opts.NewAPI == nil {
		opts.NewAPI = func(cfg *config.Config) PriceAPI {
			return price.NewClient(cfg.APIBase, cfg.Timeout())
		}
	}
	if opts.NewWebhook == nil {
		opts.NewWebhook = func(cfg *config.Config) WebhookSender {
			return webhook.NewDispatcher(cfg.Timeout())
		}
	}
	return &Service{opts: opts}
}

// Run polls until ctx is cancelled. A cycle in flight when ctx is cancelled runs to completion
// so its history is saved. Errors are returned only for a first config load or a history load failure.
func (s *Service) Run(ctx context.Context) error {
	log.Println("🚀 Alert service started.")

	for {
		if ctx.Err() != nil {
			log.Println("Alert service stopped.")
			return nil
		}

		cfg, err := s.reloadConfig()
		if err != nil {
			return err
		}

		if err := s.RunCycle(context.WithoutCancel(ctx), cfg); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			log.Println("Alert service stopped.")
			return nil
		case <-time.After(cfg.IntervalDuration()):
		}
	}
}

func (s *Service) reloadConfig() (*config.Config, error) {
	cfg, err := config.Load(s.opts.ConfigPath)
	if err != nil {
		if s.lastConfig == nil {
			return nil, err
		}
		log.Errorf("❌ Failed to reload config, keeping the previous one: %v", err)
		return s.lastConfig, nil
	}

	if !s.opts.ForceDebug {
		log.SetLevel(cfg.Level())
	}
	for _, p := range cfg.Problems {
		log.Warnf("⚠️ Config %s", p)
	}

	s.lastConfig = cfg
	return cfg, nil
}

func (s *Service) clients(cfg *config.Config) (PriceAPI, WebhookSender) {
	key := fmt.Sprintf("%s|%s", cfg.APIBase, cfg.Timeout())
	if key != s.clientKey {
		s.api = s.opts.NewAPI(cfg)
		s.hook = s.opts.NewWebhook(cfg)
		s.clientKey = key
	}
	return s.api, s.hook
}

// RunCycle performs one poll cycle with cfg. Dispatches are joined before it returns.
func (s *Service) RunCycle(ctx context.Context, cfg *config.Config) error {
	start := time.Now()
	entry := log.WithField("cycle", uuid.NewString())
	entry.Println("🔄 Checking trackers...")

	hist, err := history.Load(cfg.HistoryFilePath)
	if err != nil {
		return errors.Wrap(err, "could not load history")
	}

	api, hook := s.clients(cfg)
	dispatches := pool.New().WithMaxGoroutines(cfg.MaxDispatch)

	for i, tracker := range cfg.Trackers {
		name := trackerName(tracker, i)
		trackerEntry := entry.WithField("tracker", name)

		if tracker.Invalid != "" {
			trackerEntry.Warnf("⚠️ Tracker skipped: %s", tracker.Invalid)
			s.opts.Metrics.TrackersSkipped.Inc()
			continue
		}

		alerts, err := s.evaluateTracker(ctx, api, tracker, hist, cfg.APIBase)
		if err != nil {
			trackerEntry.Errorf("❌ Tracker skipped this cycle: %v", err)
			s.opts.Metrics.APIErrors.Inc()
			s.opts.Metrics.TrackersSkipped.Inc()
			continue
		}

		for _, a := range alerts {
			a := a
			s.opts.Metrics.AlertsFired.WithLabelValues(string(a.Kind)).Inc()
			trackerEntry.Infof("🚨 %s alert for %s (%d-%s)", a.Kind, a.ItemName, a.ItemID, a.OrderType)
			dispatches.Go(func() {
				s.dispatch(ctx, hook, name, a)
			})
		}
	}

	dispatches.Wait()

	if err := hist.Save(cfg.HistoryFilePath); err != nil {
		entry.Errorf("❌ Failed to save history: %v", err)
	}

	s.opts.Metrics.HistoryEntries.Set(float64(len(hist)))
	s.opts.Metrics.Cycles.Inc()
	s.opts.Metrics.LastCycle.SetToCurrentTime()
	s.opts.Metrics.CycleSeconds.Observe(time.Since(start).Seconds())

	entry.Printf("✅ Tracker check completed in %s.", time.Since(start).Round(time.Millisecond))
	return nil
}

// evaluateTracker issues one metadata and one price request for all items of the tracker
func (s *Service) evaluateTracker(ctx context.Context, api PriceAPI, tracker types.Tracker, hist history.History, apiBase string) ([]Alert, error) {
	ids := lo.Uniq(lo.Map(tracker.Items, func(item types.ItemAlert, _ int) int {
		return item.ItemID
	}))
	if len(ids) == 0 {
		return nil, nil
	}

	items, err := api.GetItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	quotes, err := api.GetPrices(ctx, ids)
	if err != nil {
		return nil, err
	}

	metadata := lo.KeyBy(items, func(m types.ItemMetadata) int { return m.ID })
	quoteByID := lo.KeyBy(quotes, func(q types.PriceQuote) int { return q.ItemID })

	s.recordObservations(ctx, tracker, quoteByID)

	return Evaluate(tracker, metadata, quoteByID, hist, apiBase), nil
}

func (s *Service) recordObservations(ctx context.Context, tracker types.Tracker, quotes map[int]types.PriceQuote) {
	if s.opts.Journal == nil {
		return
	}

	now := time.Now()
	var observations []database.Observation
	for _, item := range tracker.Items {
		quote, ok := quotes[item.ItemID]
		if !ok {
			continue
		}
		unitPrice, ok := quote.UnitPrice(item.OrderType)
		if !ok {
			continue
		}
		observations = append(observations, database.Observation{
			ItemID:     item.ItemID,
			OrderType:  string(item.OrderType),
			UnitPrice:  unitPrice,
			ObservedAt: now,
		})
	}

	if err := s.opts.Journal.InsertObservations(ctx, observations); err != nil {
		log.Errorf("❌ Failed to record observations: %v", err)
	}
}

// dispatch delivers a to every destination of its tracker. Failures are logged and counted only.
func (s *Service) dispatch(ctx context.Context, hook WebhookSender, tracker string, a Alert) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic in dispatch: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	if a.WebhookURL != "" {
		ok := hook.Send(ctx, a.WebhookURL, a.Payload)
		s.opts.Metrics.Delivered("webhook", ok)
		s.journal(ctx, tracker, a, "webhook", ok)
	}

	if a.TelegramChatID != 0 {
		if s.opts.Telegram == nil {
			log.Warnf("⚠️ Tracker %s has a telegram_chat_id but no TELEGRAM_BOT_TOKEN is set", tracker)
			return
		}

		err := s.opts.Telegram.SendMessage(telegram.Message{
			ChatID: a.TelegramChatID,
			Text:   TelegramText(a, s.providerURL(a)),
			Chart:  s.chart(ctx, a),
		})
		if err != nil {
			log.Errorf("❌ Failed to send telegram alert: %v", err)
		} else {
			log.Infof("✅ Telegram alert sent to Chat ID: %d", a.TelegramChatID)
		}
		s.opts.Metrics.Delivered("telegram", err == nil)
		s.journal(ctx, tracker, a, "telegram", err == nil)
	}
}

func (s *Service) providerURL(a Alert) string {
	if len(a.Payload.Embeds) == 0 {
		return ""
	}
	return a.Payload.Embeds[0].Provider.URL
}

func (s *Service) journal(ctx context.Context, tracker string, a Alert, channel string, delivered bool) {
	if s.opts.Journal == nil {
		return
	}

	err := s.opts.Journal.InsertAlert(ctx, database.AlertRecord{
		Tracker:       tracker,
		ItemID:        a.ItemID,
		OrderType:     string(a.OrderType),
		Kind:          string(a.Kind),
		Price:         a.Price,
		PreviousPrice: a.Previous,
		Channel:       channel,
		Delivered:     delivered,
	})
	if err != nil {
		log.Errorf("❌ Failed to journal alert: %v", err)
	}
}

func trackerName(t types.Tracker, index int) string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("tracker-%d", index)
}
