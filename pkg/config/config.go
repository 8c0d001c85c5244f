package config

import (
    "errors"
    "flag"
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/alim08/marketdata/pkg/cachekey"
    "github.com/alim08/marketdata/pkg/models"
    "github.com/alim08/marketdata/pkg/provider"
    "github.com/alim08/marketdata/pkg/validation"
    "github.com/joho/godotenv"
    "github.com/robfig/cron/v3"
    "gopkg.in/yaml.v3"
)

// DefaultTTLKey is the cache.ttl entry used for classes without their own.
const DefaultTTLKey = "Default"

var ErrInvalidConfig = errors.New("invalid config")

// TTL is the pair of cache expiries for one asset class.
type TTL struct {
    Price  time.Duration `yaml:"price"`
    Detail time.Duration `yaml:"detail"`
}

type CacheConfig struct {
    // TTL is keyed by asset class name plus DefaultTTLKey.
    TTL map[string]TTL `yaml:"ttl"`
    // MaxItems bounds the in-process cache used when RedisURL is empty.
    MaxItems int `yaml:"max_items" validate:"gte=0"`
    // WriteTimeout bounds background cache writes.
    WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`
    ErrorBuffer  int           `yaml:"error_buffer" validate:"gte=0"`
}

// Route picks the source for one asset class. Fallback is informational.
type Route struct {
    Primary  string `yaml:"primary" validate:"required"`
    Fallback string `yaml:"fallback"`
}

// Source holds the settings of one external data source.
type Source struct {
    APIKey            string        `yaml:"api_key"`
    BaseURL           string        `yaml:"base_url" validate:"omitempty,url"`
    Timeout           time.Duration `yaml:"timeout" validate:"gte=0"`
    RequestsPerMinute float64       `yaml:"requests_per_minute" validate:"gte=0"`
    Burst             int           `yaml:"burst" validate:"gte=0"`
}

// Refresh configures the warm-cache job. Schedule is a cron spec and wins
// over Interval. With neither, or without symbols, the job is disabled.
type Refresh struct {
    Symbols  []string      `yaml:"symbols"`
    Schedule string        `yaml:"schedule"`
    Interval time.Duration `yaml:"interval" validate:"gte=0"`
}

type Config struct {
    RedisURL    string            `yaml:"redis_url"`
    HTTPPort    int               `yaml:"port" validate:"gt=0,lte=65535"`
    MetricsPort int               `yaml:"metrics_port" validate:"gt=0,lte=65535"`
    LogLevel    string            `yaml:"log_level"`
    MaxFanOut   int               `yaml:"max_fan_out" validate:"gte=0"`
    Cache       CacheConfig       `yaml:"cache"`
    Providers   map[string]Route  `yaml:"providers" validate:"dive"`
    Sources     map[string]Source `yaml:"sources" validate:"dive"`
    Refresh     Refresh           `yaml:"refresh"`
}

// Default returns the reference configuration: Alpha Vantage for equities,
// CoinGecko for crypto, and the standard per-class TTLs.
func Default() *Config {
    return &Config{
        HTTPPort:    8080,
        MetricsPort: 8082,
        LogLevel:    "info",
        MaxFanOut:   16,
        Cache: CacheConfig{
            TTL: map[string]TTL{
                models.Equity.String(): {Price: 15 * time.Minute, Detail: 24 * time.Hour},
                models.Crypto.String(): {Price: 5 * time.Minute, Detail: 12 * time.Hour},
                DefaultTTLKey:          {Price: 15 * time.Minute, Detail: 24 * time.Hour},
            },
            MaxItems:     10000,
            WriteTimeout: 5 * time.Second,
            ErrorBuffer:  64,
        },
        Providers: map[string]Route{
            models.Equity.String(): {Primary: "alphavantage"},
            models.Crypto.String(): {Primary: "coingecko", Fallback: "alphavantage"},
        },
        Sources: map[string]Source{
            // free tier: 5 requests per minute
            "alphavantage": {Timeout: 10 * time.Second, RequestsPerMinute: 5, Burst: 1},
            "coingecko":    {Timeout: 10 * time.Second, RequestsPerMinute: 30, Burst: 5},
        },
    }
}

// Load builds the configuration from the process arguments and environment.
// A .env file in the working directory, if any, is loaded first.
func Load() (*Config, error) {
    _ = godotenv.Load()
    return LoadArgs(os.Args[1:])
}

// LoadArgs layers, lowest first: Default, the YAML file named by -config or
// CONFIG_PATH, environment variables, then explicit flags. -test.* arguments
// are ignored.
func LoadArgs(args []string) (*Config, error) {
    fs := flag.NewFlagSet("config", flag.ContinueOnError)
    var (
        path        string
        redisURL    string
        httpPort    int
        metricsPort int
    )
    fs.StringVar(&path, "config", os.Getenv("CONFIG_PATH"), "YAML configuration file")
    fs.StringVar(&redisURL, "redis", "", "Redis connection URL (empty: in-process cache)")
    fs.IntVar(&httpPort, "port", 0, "HTTP listen port")
    fs.IntVar(&metricsPort, "metrics-port", 0, "Metrics server port")

    var appArgs []string
    for _, arg := range args {
        if strings.HasPrefix(arg, "-test.") {
            continue
        }
        appArgs = append(appArgs, arg)
    }
    if err := fs.Parse(appArgs); err != nil {
        return nil, err
    }

    cfg := Default()
    if path != "" {
        if err := cfg.loadFile(path); err != nil {
            return nil, err
        }
    }
    if err := cfg.applyEnv(); err != nil {
        return nil, err
    }

    fs.Visit(func(f *flag.Flag) {
        switch f.Name {
        case "redis":
            cfg.RedisURL = redisURL
        case "port":
            cfg.HTTPPort = httpPort
        case "metrics-port":
            cfg.MetricsPort = metricsPort
        }
    })

    if err := cfg.Validate(); err != nil {
        return nil, err
    }
    return cfg, nil
}

// loadFile decodes path over c, so the file only needs the keys it changes.
// Map sections (ttl, providers, sources) are merged entry by entry.
func (c *Config) loadFile(path string) error {
    data, err := os.ReadFile(path)
    if err != nil {
        return fmt.Errorf("read config %s: %w", path, err)
    }
    if err := yaml.Unmarshal(data, c); err != nil {
        return fmt.Errorf("parse config %s: %w", path, err)
    }
    return nil
}

func (c *Config) applyEnv() error {
    if v := os.Getenv("REDIS_URL"); v != "" {
        c.RedisURL = v
    }
    if v := os.Getenv("LOG_LEVEL"); v != "" {
        c.LogLevel = v
    }
    for env, dst := range map[string]*int{"PORT": &c.HTTPPort, "METRICS_PORT": &c.MetricsPort} {
        v := os.Getenv(env)
        if v == "" {
            continue
        }
        n, err := strconv.Atoi(v)
        if err != nil {
            return fmt.Errorf("invalid %s env var: %v", env, err)
        }
        *dst = n
    }
    for env, source := range map[string]string{
        "ALPHAVANTAGE_API_KEY": "alphavantage",
        "COINGECKO_API_KEY":    "coingecko",
    } {
        if v := os.Getenv(env); v != "" {
            s := c.Sources[source]
            s.APIKey = v
            if c.Sources == nil {
                c.Sources = map[string]Source{}
            }
            c.Sources[source] = s
        }
    }
    if v := os.Getenv("REFRESH_SYMBOLS"); v != "" {
        c.Refresh.Symbols = splitAndTrim(v, ",")
    }
    if v := os.Getenv("REFRESH_SCHEDULE"); v != "" {
        c.Refresh.Schedule = v
    }
    if v := os.Getenv("REFRESH_INTERVAL"); v != "" {
        d, err := time.ParseDuration(v)
        if err != nil {
            return fmt.Errorf("invalid REFRESH_INTERVAL env var: %v", err)
        }
        c.Refresh.Interval = d
    }
    return nil
}

// Validate checks field constraints, the cache TTL invariants and that
// every provider route names a known asset class.
func (c *Config) Validate() error {
    if errs := validation.ValidateStruct(c); len(errs) > 0 {
        return fmt.Errorf("%w: %v", ErrInvalidConfig, errs)
    }
    if _, err := c.CachePolicy(); err != nil {
        return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
    }
    if _, err := c.Routes(); err != nil {
        return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
    }
    if c.Refresh.Schedule != "" {
        if _, err := cron.ParseStandard(c.Refresh.Schedule); err != nil {
            return fmt.Errorf("%w: refresh.schedule: %w", ErrInvalidConfig, err)
        }
    }
    return nil
}

// CachePolicy converts the ttl section into a cachekey.Policy.
func (c *Config) CachePolicy() (*cachekey.Policy, error) {
    def, ok := c.Cache.TTL[DefaultTTLKey]
    if !ok {
        return nil, fmt.Errorf("cache.ttl.%s is required", DefaultTTLKey)
    }
    byClass := make(map[models.AssetClass]cachekey.Durations, len(c.Cache.TTL))
    for name, ttl := range c.Cache.TTL {
        if name == DefaultTTLKey {
            continue
        }
        class, err := models.ParseAssetClass(name)
        if err != nil {
            return nil, fmt.Errorf("cache.ttl: %w", err)
        }
        byClass[class] = cachekey.Durations{Price: ttl.Price, Detail: ttl.Detail}
    }
    return cachekey.NewPolicy(byClass, cachekey.Durations{Price: def.Price, Detail: def.Detail})
}

// Routes converts the providers section into registry routes. Classes left
// out are reported as unsupported when first requested.
func (c *Config) Routes() (map[models.AssetClass]provider.Route, error) {
    routes := make(map[models.AssetClass]provider.Route, len(c.Providers))
    for name, r := range c.Providers {
        class, err := models.ParseAssetClass(name)
        if err != nil {
            return nil, fmt.Errorf("providers: %w", err)
        }
        routes[class] = provider.Route{Primary: r.Primary, Fallback: r.Fallback}
    }
    return routes, nil
}

// RefreshSchedule returns the cron spec of the warm-cache job, or "" when
// the job is disabled.
func (c *Config) RefreshSchedule() string {
    if len(c.Refresh.Symbols) == 0 {
        return ""
    }
    if c.Refresh.Schedule != "" {
        return c.Refresh.Schedule
    }
    if c.Refresh.Interval > 0 {
        return "@every " + c.Refresh.Interval.String()
    }
    return ""
}

// splitAndTrim splits s on sep, trims spaces, and drops empty entries.
func splitAndTrim(s, sep string) []string {
    parts := []string{}
    for _, p := range strings.Split(s, sep) {
        if t := strings.TrimSpace(p); t != "" {
            parts = append(parts, t)
        }
    }
    return parts
}
