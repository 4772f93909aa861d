package config

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

type StorageType string

const (
	StorageNone     StorageType = ""
	StoragePostgres StorageType = "postgres"
	StorageBigQuery StorageType = "bigquery"
)

// Nøkler brukt både som flaggnavn og (med _ i stedet for -) som miljøvariabler.
const (
	KeyOut                 = "out"
	KeyMaxPages            = "max-pages"
	KeyTokens              = "tokens"
	KeyAPIURL              = "api-url"
	KeyDebug               = "debug"
	KeyStorage             = "storage"
	KeyPostgresDSN         = "postgres-dsn"
	KeyBQProjectID         = "bq-project-id"
	KeyBQDataset           = "bq-dataset"
	KeyBQTable             = "bq-table"
	KeyBQCredentials       = "bq-credentials"
	KeyCooldown            = "cooldown"
	KeyMaxRateLimitRetries = "max-rate-limit-retries"
	KeyPageDelay           = "page-delay"
	KeyRequestsPerMinute   = "requests-per-minute"
)

const (
	DefaultOut       = "entradas.csv"
	DefaultMaxPages  = 10
	DefaultTokens    = "tokens.txt"
	DefaultAPIURL    = "https://api.github.com"
	DefaultCooldown  = 10 * time.Minute
	DefaultPageDelay = time.Second
)

type Config struct {
	OutPath       string
	MaxPages      int
	TokensFile    string
	APIURL        string
	Debug         bool
	Storage       StorageType
	PostgresDSN   string
	BQProjectID   string
	BQDataset     string
	BQTable       string
	BQCredentials string // Valgfritt hvis GCP auth skjer automatisk

	RateLimitCooldown   time.Duration
	MaxRateLimitRetries int // 0 betyr ubegrenset
	PageDelay           time.Duration
	RequestsPerMinute   int // 0 betyr ingen proaktiv struping
}

// LoadConfigWithEnv bygger konfigurasjonen fra en oppslagsfunksjon (viper.GetString i
// produksjon, et map i tester). Tomme verdier gir standardverdier.
func LoadConfigWithEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		OutPath:             valueOr(getenv(KeyOut), DefaultOut),
		MaxPages:            DefaultMaxPages,
		TokensFile:          valueOr(getenv(KeyTokens), DefaultTokens),
		APIURL:              strings.TrimRight(valueOr(getenv(KeyAPIURL), DefaultAPIURL), "/"),
		Debug:               getenv(KeyDebug) == "true",
		Storage:             StorageType(strings.ToLower(getenv(KeyStorage))),
		PostgresDSN:         getenv(KeyPostgresDSN),
		BQProjectID:         getenv(KeyBQProjectID),
		BQDataset:           getenv(KeyBQDataset),
		BQTable:             getenv(KeyBQTable),
		BQCredentials:       getenv(KeyBQCredentials),
		RateLimitCooldown:   DefaultCooldown,
		MaxRateLimitRetries: 0,
		PageDelay:           DefaultPageDelay,
	}

	var err error
	if cfg.MaxPages, err = parseInt(getenv, KeyMaxPages, DefaultMaxPages); err != nil {
		return Config{}, err
	}
	if cfg.MaxRateLimitRetries, err = parseInt(getenv, KeyMaxRateLimitRetries, 0); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitCooldown, err = parseDuration(getenv, KeyCooldown, DefaultCooldown); err != nil {
		return Config{}, err
	}
	if cfg.PageDelay, err = parseDuration(getenv, KeyPageDelay, DefaultPageDelay); err != nil {
		return Config{}, err
	}
	if cfg.RequestsPerMinute, err = parseInt(getenv, KeyRequestsPerMinute, 0); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func ValidateConfig(cfg Config) error {
	if cfg.OutPath == "" {
		return newConfigError(KeyOut, "må være satt", nil)
	}
	if cfg.MaxPages < 1 {
		return newConfigError(KeyMaxPages, "må være et positivt heltall", nil)
	}
	if cfg.TokensFile == "" {
		return newConfigError(KeyTokens, "må peke på en fil med tokens", nil)
	}
	if u, err := url.Parse(cfg.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return newConfigError(KeyAPIURL, "må være en absolutt URL", err)
	}
	if cfg.RequestsPerMinute < 0 {
		return newConfigError(KeyRequestsPerMinute, "kan ikke være negativ", nil)
	}
	if cfg.MaxRateLimitRetries < 0 {
		return newConfigError(KeyMaxRateLimitRetries, "kan ikke være negativ", nil)
	}
	if cfg.RateLimitCooldown < 0 || cfg.PageDelay < 0 {
		return newConfigError(KeyCooldown, "ventetider kan ikke være negative", nil)
	}

	switch cfg.Storage {
	case StorageNone:
	case StoragePostgres:
		if cfg.PostgresDSN == "" {
			return newConfigError(KeyPostgresDSN, "POSTGRES_DSN må være satt for postgres-lagring", nil)
		}
	case StorageBigQuery:
		if cfg.BQProjectID == "" || cfg.BQDataset == "" || cfg.BQTable == "" {
			return newConfigError(KeyBQProjectID, "BQ_PROJECT_ID, BQ_DATASET og BQ_TABLE må være satt for bigquery-lagring", nil)
		}
	default:
		return newConfigError(KeyStorage, "ugyldig verdi – må være tom, 'postgres' eller 'bigquery'", nil)
	}

	return nil
}

// LoadAndValidateConfig kombinerer lasting og validering.
func LoadAndValidateConfig(getenv func(string) string) (Config, error) {
	cfg, err := LoadConfigWithEnv(getenv)
	if err != nil {
		return Config{}, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func parseInt(getenv func(string) string, key string, fallback int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, newConfigError(key, "må være et heltall", err)
	}
	return v, nil
}

func parseDuration(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, newConfigError(key, "må være en varighet, f.eks. 10m", err)
	}
	return v, nil
}
