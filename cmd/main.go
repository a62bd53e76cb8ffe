package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"tp-tracker/config"
	"tp-tracker/internal/alert"
	"tp-tracker/internal/database"
	"tp-tracker/internal/metrics"
	"tp-tracker/internal/telegram"
	"tp-tracker/lib/translation"
)

// journalRetention is how long alerts and observations are kept in the database
const journalRetention = 30 * 24 * time.Hour

func init() {
	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()
	config.InitConfig()
	setupLogging()
}

func main() {
	if err := run(); err != nil {
		log.Errorf("Alert service failed: %v", err)
		os.Exit(1)
	}
	log.Println("Shutting down...")
}

// run owns every deferred cleanup so a failing service still snapshots metrics and closes the database
func run() error {
	translation.Configure(config.GetString("locales_path"), config.GetString("lang"))
	log.Debugf("Alert language: %s", translation.GetLanguage())

	trackerMetrics := metrics.New(prometheus.DefaultRegisterer)
	opts := alert.Options{
		ConfigPath: config.GetString("config_path"),
		Metrics:    trackerMetrics,
		ForceDebug: config.GetBool("debug"),
	}

	if dbPath := config.GetString("database_path"); dbPath != "" {
		db, err := database.InitDB(dbPath)
		if err != nil {
			return errors.Wrap(err, "failed to initialize database")
		}
		defer db.Close()

		trackerMetrics.LoadFromDB(db)
		opts.Journal = db

		c, err := startHousekeeping(db, trackerMetrics)
		if err != nil {
			return err
		}
		defer func() {
			<-c.Stop().Done()
			trackerMetrics.SaveToDB(db)
		}()
	}

	if token := config.GetString("telegram_bot_token"); token != "" {
		bot, err := telegram.NewBot(telegram.BotConfig{
			Token: token,
			Debug: config.GetBool("debug"),
		})
		if err != nil {
			return errors.Wrap(err, "failed to create telegram bot")
		}
		opts.Telegram = bot
	}

	go func() {
		if err := launchMetricsAndHealthServer(config.GetInt("metrics_port")); err != nil {
			log.Errorf("Metrics and health server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return alert.NewService(opts).Run(ctx)
}

func setupLogging() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting trading post tracker...")
}

// startHousekeeping snapshots metrics every 5 minutes and prunes the journal every night
func startHousekeeping(db *database.DB, m *metrics.Metrics) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))

	if _, err := c.AddFunc("@every 5m", func() {
		m.SaveToDB(db)
	}); err != nil {
		return nil, errors.Wrap(err, "failed to schedule metrics snapshot")
	}

	if _, err := c.AddFunc("0 3 * * *", func() {
		pruneJournal(db)
	}); err != nil {
		return nil, errors.Wrap(err, "failed to schedule journal pruning")
	}

	c.Start()
	return c, nil
}

func pruneJournal(db *database.DB) {
	ctx := context.Background()
	cutoff := time.Now().Add(-journalRetention)

	alerts, err := db.PruneAlerts(ctx, cutoff)
	if err != nil {
		log.Errorf("Failed to prune alerts: %v", err)
	}
	observations, err := db.PruneObservations(ctx, cutoff)
	if err != nil {
		log.Errorf("Failed to prune observations: %v", err)
	}

	log.Infof("Pruned %s alerts and %s observations older than %s",
		humanize.Comma(alerts), humanize.Comma(observations), humanize.Time(cutoff))
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func launchMetricsAndHealthServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", healthCheckHandler)

	log.Infof("Launching metrics and health endpoint on :%d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), http.DefaultServeMux)
}
