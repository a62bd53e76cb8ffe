package config

import (
	"sync"

	"github.com/spf13/viper"
)

var once sync.Once

// InitConfig binds the process settings read from the environment
func InitConfig() {
	once.Do(func() {
		viper.AutomaticEnv()

		viper.BindEnv("config_path", "CONFIG_PATH")
		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("database_path", "DATABASE_PATH")
		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("locales_path", "LOCALES_PATH")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang", "LANG")

		viper.SetDefault("config_path", "config.json")
		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("database_path", "/data/tracker.db")
		viper.SetDefault("locales_path", "locales")
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "en")
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}
