package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/tailscale/hujson"

	"github.com/vladislavdragonenkov/ordersconsole/internal/client/queryapi"
	"github.com/vladislavdragonenkov/ordersconsole/internal/messaging/kafka"
)

// StorageDriver задаёт хранилище сохранённых представлений.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverFile     StorageDriver = "file"
	StorageDriverPostgres StorageDriver = "postgres"
)

// EnvPrefix: префикс переменных окружения консоли.
const EnvPrefix = "CONSOLE_"

var (
	errUnknownKey    = errors.New("unknown config key")
	errInvalidConfig = errors.New("invalid config")
)

// Config описывает настройки запуска консоли.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	APIBaseURL string
	APITimeout time.Duration

	CacheTTL           time.Duration
	CacheMaxEntries    int
	CacheSweepInterval time.Duration

	StorageDriver       StorageDriver
	StorageFilePath     string
	PostgresDSN         string
	PostgresAutoMigrate bool

	KafkaBrokers           []string
	KafkaAuditTopic        string
	KafkaInvalidationTopic string
	KafkaGroupID           string

	JWTSecret string

	LogLevel  string
	LogFormat string
}

// DefaultConfig возвращает настройки для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:               ":8080",
		MetricsAddr:            ":9090",
		APIBaseURL:             queryapi.DefaultBaseURL,
		APITimeout:             10 * time.Second,
		CacheTTL:               0,
		CacheMaxEntries:        512,
		CacheSweepInterval:     time.Minute,
		StorageDriver:          StorageDriverMemory,
		StorageFilePath:        "data/views.json",
		PostgresAutoMigrate:    true,
		KafkaAuditTopic:        kafka.TopicAudit,
		KafkaInvalidationTopic: kafka.TopicInvalidation,
		KafkaGroupID:           "orders-console",
		LogLevel:               "info",
		LogFormat:              "text",
	}
}

type setting struct {
	key   string
	usage string
	field func(cfg *Config) any
}

// settings: единый список ключей для файла, окружения и флагов.
var settings = []setting{
	{"http_addr", "console HTTP listen address", func(c *Config) any { return &c.HTTPAddr }},
	{"metrics_addr", "metrics and health listen address", func(c *Config) any { return &c.MetricsAddr }},
	{"api_base_url", "Query API base URL", func(c *Config) any { return &c.APIBaseURL }},
	{"api_timeout", "Query API request timeout", func(c *Config) any { return &c.APITimeout }},
	{"cache_ttl", "query cache entry lifetime (0 = until invalidated)", func(c *Config) any { return &c.CacheTTL }},
	{"cache_max_entries", "query cache capacity per entity (0 = unbounded)", func(c *Config) any { return &c.CacheMaxEntries }},
	{"cache_sweep_interval", "expired cache entries sweep interval", func(c *Config) any { return &c.CacheSweepInterval }},
	{"storage_driver", "saved views storage: memory|file|postgres", func(c *Config) any { return &c.StorageDriver }},
	{"storage_file_path", "saved views file for the file driver", func(c *Config) any { return &c.StorageFilePath }},
	{"postgres_dsn", "PostgreSQL DSN for the postgres driver", func(c *Config) any { return &c.PostgresDSN }},
	{"postgres_auto_migrate", "apply migrations on start", func(c *Config) any { return &c.PostgresAutoMigrate }},
	{"kafka_brokers", "comma separated Kafka brokers (empty = disabled)", func(c *Config) any { return &c.KafkaBrokers }},
	{"kafka_audit_topic", "audit events topic", func(c *Config) any { return &c.KafkaAuditTopic }},
	{"kafka_invalidation_topic", "cache invalidation topic", func(c *Config) any { return &c.KafkaInvalidationTopic }},
	{"kafka_group_id", "consumer group for cache invalidation", func(c *Config) any { return &c.KafkaGroupID }},
	{"jwt_secret", "HS256 secret for operator tokens (empty = auth disabled)", func(c *Config) any { return &c.JWTSecret }},
	{"log_level", "log level: debug|info|warn|error", func(c *Config) any { return &c.LogLevel }},
	{"log_format", "log format: text|json", func(c *Config) any { return &c.LogFormat }},
}

// Set присваивает значение ключу конфигурации из строки.
func (c *Config) Set(key, raw string) error {
	idx := slices.IndexFunc(settings, func(s setting) bool { return s.key == key })
	if idx < 0 {
		return fmt.Errorf("%w: %s", errUnknownKey, key)
	}
	raw = strings.TrimSpace(raw)

	switch p := settings[idx].field(c).(type) {
	case *string:
		*p = raw
	case *StorageDriver:
		*p = StorageDriver(strings.ToLower(raw))
	case *int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*p = n
	case *bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*p = b
	case *time.Duration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*p = d
	case *[]string:
		*p = splitList(raw)
	}
	return nil
}

// LoadFile накладывает значения из HuJSON-файла (JSON с комментариями и запятыми в конце).
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("%w %s: invalid JSONC: %w", errInvalidConfig, path, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(standardized, &raw); err != nil {
		return fmt.Errorf("%w %s: %w", errInvalidConfig, path, err)
	}
	for key, value := range raw {
		text, err := rawText(value)
		if err != nil {
			return fmt.Errorf("%w %s: %s: %w", errInvalidConfig, path, key, err)
		}
		if err := c.Set(key, text); err != nil {
			return fmt.Errorf("%w %s: %w", errInvalidConfig, path, err)
		}
	}
	return nil
}

// ApplyEnv накладывает переменные CONSOLE_<KEY>.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, s := range settings {
		value, ok := lookup(EnvPrefix + strings.ToUpper(s.key))
		if !ok {
			continue
		}
		if err := c.Set(s.key, value); err != nil {
			return fmt.Errorf("env %s%s: %w", EnvPrefix, strings.ToUpper(s.key), err)
		}
	}
	return nil
}

// Validate отклоняет настройки, с которыми консоль не сможет работать.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	if u, err := url.Parse(c.APIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("api_base_url must be an absolute http(s) URL: %q", c.APIBaseURL))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, errors.New("api_timeout must be positive"))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, errors.New("cache_ttl must not be negative"))
	}
	if c.CacheMaxEntries < 0 {
		errs = append(errs, errors.New("cache_max_entries must not be negative"))
	}
	if c.CacheSweepInterval <= 0 {
		errs = append(errs, errors.New("cache_sweep_interval must be positive"))
	}

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverFile:
		if strings.TrimSpace(c.StorageFilePath) == "" {
			errs = append(errs, errors.New("storage_file_path is required for the file driver"))
		}
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("postgres_dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage_driver %q (use memory|file|postgres)", c.StorageDriver))
	}

	if len(c.KafkaBrokers) > 0 {
		if c.KafkaAuditTopic == "" || c.KafkaInvalidationTopic == "" || c.KafkaGroupID == "" {
			errs = append(errs, errors.New("kafka topics and group id are required when brokers are set"))
		}
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unsupported log_format %q (use text|json)", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", errInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Load собирает конфигурацию: умолчания, файл (--config или CONSOLE_CONFIG),
// окружение, затем флаги командной строки.
func Load(args []string, lookup func(string) (string, bool)) (Config, error) {
	fs := pflag.NewFlagSet("console", pflag.ContinueOnError)
	configPath := fs.String("config", "", "HuJSON config file (fallback: "+EnvPrefix+"CONFIG)")
	for _, s := range settings {
		fs.String(flagName(s.key), "", s.usage)
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	path := *configPath
	if path == "" {
		path, _ = lookup(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return Config{}, err
	}

	var flagErr error
	fs.Visit(func(f *pflag.Flag) {
		if flagErr != nil || f.Name == "config" {
			return
		}
		if err := cfg.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String()); err != nil {
			flagErr = fmt.Errorf("flag --%s: %w", f.Name, err)
		}
	})
	if flagErr != nil {
		return Config{}, flagErr
	}

	return cfg, cfg.Validate()
}

func flagName(key string) string { return strings.ReplaceAll(key, "_", "-") }

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// rawText приводит JSON-значение к строке для Set: строки без кавычек, массивы через запятую.
func rawText(value json.RawMessage) (string, error) {
	value = bytes.TrimSpace(value)
	switch {
	case len(value) == 0:
		return "", nil
	case value[0] == '"':
		var s string
		err := json.Unmarshal(value, &s)
		return s, err
	case value[0] == '[':
		var items []string
		if err := json.Unmarshal(value, &items); err != nil {
			return "", err
		}
		return strings.Join(items, ","), nil
	default:
		return string(value), nil
	}
}
