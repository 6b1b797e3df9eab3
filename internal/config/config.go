package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	MongoURI    string   `mapstructure:"MONGO_URI"`
	MongoDBName string   `mapstructure:"MONGO_DB_NAME"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Backend selection, fixed at process start. "postgres" or "mongo",
	// selectable per entity.
	UsersBackend        string `mapstructure:"USERS_BACKEND"`
	PatientsBackend     string `mapstructure:"PATIENTS_BACKEND"`
	AppointmentsBackend string `mapstructure:"APPOINTMENTS_BACKEND"`

	JWTSecret   string `mapstructure:"JWT_SECRET"`
	TokenTTLHrs int    `mapstructure:"TOKEN_TTL_HOURS"`

	// Classification thresholds for the stroke-risk score. Single source
	// of truth; Classify consults these, nothing else duplicates them.
	RiskHigh   int `mapstructure:"RISK_THRESHOLD_HIGH"`
	RiskMedium int `mapstructure:"RISK_THRESHOLD_MEDIUM"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB_NAME", "stroke_care")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("USERS_BACKEND", "postgres")
	v.SetDefault("PATIENTS_BACKEND", "postgres")
	v.SetDefault("APPOINTMENTS_BACKEND", "postgres")
	v.SetDefault("TOKEN_TTL_HOURS", 24)
	v.SetDefault("RISK_THRESHOLD_HIGH", 50)
	v.SetDefault("RISK_THRESHOLD_MEDIUM", 25)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("MONGO_URI")
	v.BindEnv("MONGO_DB_NAME")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("USERS_BACKEND")
	v.BindEnv("PATIENTS_BACKEND")
	v.BindEnv("APPOINTMENTS_BACKEND")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("TOKEN_TTL_HOURS")
	v.BindEnv("RISK_THRESHOLD_HIGH")
	v.BindEnv("RISK_THRESHOLD_MEDIUM")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDev() {
			return nil, fmt.Errorf("JWT_SECRET is required outside development")
		}
		cfg.JWTSecret = "dev-secret-change-in-production"
		log.Println("WARNING: JWT_SECRET not set, using development default")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	for name, backend := range map[string]string{
		"USERS_BACKEND":        c.UsersBackend,
		"PATIENTS_BACKEND":     c.PatientsBackend,
		"APPOINTMENTS_BACKEND": c.AppointmentsBackend,
	} {
		if backend != "postgres" && backend != "mongo" {
			return fmt.Errorf("%s must be \"postgres\" or \"mongo\", got %q", name, backend)
		}
	}
	if c.RiskMedium <= 0 || c.RiskHigh <= c.RiskMedium {
		return fmt.Errorf("risk thresholds must satisfy 0 < RISK_THRESHOLD_MEDIUM < RISK_THRESHOLD_HIGH, got %d/%d",
			c.RiskMedium, c.RiskHigh)
	}
	if c.TokenTTLHrs <= 0 {
		return fmt.Errorf("TOKEN_TTL_HOURS must be positive, got %d", c.TokenTTLHrs)
	}
	return nil
}

// NeedsMongo reports whether any entity is configured for the document store.
func (c *Config) NeedsMongo() bool {
	return c.UsersBackend == "mongo" || c.PatientsBackend == "mongo" || c.AppointmentsBackend == "mongo"
}
