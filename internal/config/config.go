package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env                        string        `mapstructure:"ENV"`
	Port                       string        `mapstructure:"PORT"`
	DatabaseURL                string        `mapstructure:"DATABASE_URL"`
	AdminKey                   string        `mapstructure:"ADMIN_KEY"`
	NotifyURL                  string        `mapstructure:"NOTIFY_URL"`
	CORSAllowed                string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout             time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel                   string        `mapstructure:"LOG_LEVEL"`
	AutoMigrate                bool          `mapstructure:"AUTO_MIGRATE"`
	TelephonySpecialistName    string        `mapstructure:"TELEPHONY_SPECIALIST_NAME"`
	TelephonySpecialistMaxLoad int           `mapstructure:"TELEPHONY_SPECIALIST_MAX_LOAD"`
	CatalogMaxLoad             int           `mapstructure:"CATALOG_MAX_LOAD"`
	PriorityWeightOrg          float64       `mapstructure:"PRIORITY_WEIGHT_ORG"`
	PriorityWeightTech         float64       `mapstructure:"PRIORITY_WEIGHT_TECH"`
}

var keys = []string{
	"ENV", "PORT", "DATABASE_URL", "ADMIN_KEY", "NOTIFY_URL", "CORS_ALLOWED_ORIGINS",
	"REQUEST_TIMEOUT", "LOG_LEVEL", "AUTO_MIGRATE", "TELEPHONY_SPECIALIST_NAME",
	"TELEPHONY_SPECIALIST_MAX_LOAD", "CATALOG_MAX_LOAD", "PRIORITY_WEIGHT_ORG", "PRIORITY_WEIGHT_TECH",
}

func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile reads an optional env-format file, then overlays the process
// environment.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("AUTO_MIGRATE", false)
	v.SetDefault("TELEPHONY_SPECIALIST_MAX_LOAD", 10)
	v.SetDefault("CATALOG_MAX_LOAD", 0)
	v.SetDefault("PRIORITY_WEIGHT_ORG", 0.70)
	v.SetDefault("PRIORITY_WEIGHT_TECH", 0.30)

	// AutomaticEnv only answers Get; Unmarshal needs every key known up front.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
