package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"tp-tracker/internal/types"
)

const (
	DefaultHistoryFilePath = "/data/history.json"
	DefaultInterval        = 300
	DefaultAPIBase         = "https://api.guildwars2.com/v2"
	DefaultRequestTimeout  = 10
	DefaultMaxDispatch     = 4
)

// Config is the tracker file, reloaded at the start of every cycle
type Config struct {
	HistoryFilePath string          `mapstructure:"history_file_path"`
	LogLevel        string          `mapstructure:"loglevel"`
	Interval        int             `mapstructure:"interval"`
	APIBase         string          `mapstructure:"api_base"`
	RequestTimeout  int             `mapstructure:"request_timeout"`
	MaxDispatch     int             `mapstructure:"max_dispatch"`
	Trackers        []types.Tracker `mapstructure:"trackers"`

	// Problems lists what was wrong with the file but did not stop it from loading
	Problems []Problem `mapstructure:"-"`
}

// Problem is a non fatal configuration issue
type Problem struct {
	Path    string
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.Path, p.Message)
}

// IntervalDuration is the pause between two cycles
func (c *Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// Timeout bounds every marketplace request and webhook call
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Level parses loglevel, falling back to info
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// Load reads and validates the tracker file at path.
// JSON is assumed unless the extension names another format viper knows.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}

	v.SetDefault("history_file_path", DefaultHistoryFilePath)
	v.SetDefault("loglevel", "INFO")
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("api_base", DefaultAPIBase)
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("max_dispatch", DefaultMaxDispatch)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "could not read config %s", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrapf(err, "could not decode config %s", path)
	}

	cfg.validate()
	log.Debugf("loaded config %s: %s", path, spew.Sdump(cfg))

	return &cfg, nil
}

func (c *Config) validate() {
	if c.Interval <= 0 {
		c.problem("interval", "must be a positive number of seconds, using %d", DefaultInterval)
		c.Interval = DefaultInterval
	}
	if c.RequestTimeout <= 0 {
		c.problem("request_timeout", "must be a positive number of seconds, using %d", DefaultRequestTimeout)
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.MaxDispatch <= 0 {
		c.MaxDispatch = DefaultMaxDispatch
	}
	if c.HistoryFilePath == "" {
		c.HistoryFilePath = DefaultHistoryFilePath
	}
	c.APIBase = strings.TrimRight(c.APIBase, "/")

	for i := range c.Trackers {
		t := &c.Trackers[i]
		path := fmt.Sprintf("trackers[%d]", i)

		if t.WebhookURL == "" && t.TelegramChatID == 0 {
			t.Invalid = "no webhook_url or telegram_chat_id"
			c.problem(path, "%s", t.Invalid)
		}

		seen := make(map[string]bool, len(t.Items))
		for j, item := range t.Items {
			itemPath := fmt.Sprintf("%s.items[%d]", path, j)
			if item.ItemID <= 0 {
				c.problem(itemPath, "item_id must be positive")
			}
			if !item.OrderType.Valid() {
				c.problem(itemPath, "order_type %q is neither buy nor sell, item is ignored", item.OrderType)
			}

			key := fmt.Sprintf("%d-%s", item.ItemID, item.OrderType)
			if seen[key] {
				c.problem(itemPath, "duplicate item %s", key)
			}
			seen[key] = true
		}
	}
}

func (c *Config) problem(path, format string, args ...interface{}) {
	c.Problems = append(c.Problems, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
}
