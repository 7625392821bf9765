// Package config loads the wallet's endpoint table from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goodnatureofminers/icwallet/internal/identity"
	"github.com/goodnatureofminers/icwallet/internal/model"
	"gopkg.in/yaml.v3"
)

// Config is the validated configuration.
type Config struct {
	Gateway  Gateway
	Network  model.Network
	Identity identity.Principal
	Backend  identity.Principal
	Ledgers  []Ledger
	Bridge   Bridge
	Rates    Rates
	Balances Balances
	Cache    Cache
	Archive  Archive
}

type Gateway struct {
	URL  string
	User string
	Pass string
}

type Ledger struct {
	Asset    model.Asset
	Canister identity.Principal
}

type Bridge struct {
	Canister               identity.Principal
	Enabled                bool
	CheckInterval          time.Duration
	InfoTTL                time.Duration
	WithdrawalPollInterval time.Duration
}

type Rates struct {
	RefreshInterval time.Duration
	MaxAge          time.Duration
	MaxStale        time.Duration
	Fixed           map[model.Asset]float64
}

type Balances struct {
	RefreshInterval time.Duration
}

type Cache struct {
	RedisURL string
	TTL      time.Duration
}

type Archive struct {
	ClickhouseDSN string
	FlushSize     int
	FlushInterval time.Duration
}

type file struct {
	Gateway struct {
		URL  string `yaml:"url"`
		User string `yaml:"user"`
		Pass string `yaml:"pass"`
	} `yaml:"gateway"`
	Network  string `yaml:"network"`
	Identity string `yaml:"identity"`
	Backend  struct {
		Canister string `yaml:"canister"`
	} `yaml:"backend"`
	Ledgers []struct {
		Asset    string `yaml:"asset"`
		Canister string `yaml:"canister"`
	} `yaml:"ledgers"`
	Bridge struct {
		Canister               string        `yaml:"canister"`
		Enabled                bool          `yaml:"enabled"`
		CheckInterval          time.Duration `yaml:"check_interval"`
		InfoTTL                time.Duration `yaml:"info_ttl"`
		WithdrawalPollInterval time.Duration `yaml:"withdrawal_poll_interval"`
	} `yaml:"bridge"`
	Rates struct {
		RefreshInterval time.Duration      `yaml:"refresh_interval"`
		MaxAge          time.Duration      `yaml:"max_age"`
		MaxStale        time.Duration      `yaml:"max_stale"`
		Fixed           map[string]float64 `yaml:"fixed"`
	} `yaml:"rates"`
	Balances struct {
		RefreshInterval time.Duration `yaml:"refresh_interval"`
	} `yaml:"balances"`
	Cache struct {
		RedisURL string        `yaml:"redis_url"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Archive struct {
		ClickhouseDSN string        `yaml:"clickhouse_dsn"`
		FlushSize     int           `yaml:"flush_size"`
		FlushInterval time.Duration `yaml:"flush_interval"`
	} `yaml:"archive"`
}

// Load reads and validates the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse validates a YAML document and fills in defaults.
func Parse(data []byte) (*Config, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return f.resolve()
}

func (f *file) resolve() (*Config, error) {
	var errs []error
	principal := func(field, text string) identity.Principal {
		if text == "" {
			errs = append(errs, fmt.Errorf("%s is required", field))
			return identity.Principal{}
		}
		p, err := identity.ParsePrincipal(text)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
		return p
	}

	cfg := &Config{
		Gateway:  Gateway{URL: f.Gateway.URL, User: f.Gateway.User, Pass: f.Gateway.Pass},
		Network:  model.Network(orDefault(f.Network, string(model.Mainnet))),
		Identity: principal("identity", f.Identity),
		Backend:  principal("backend.canister", f.Backend.Canister),
	}
	if cfg.Gateway.URL == "" {
		errs = append(errs, errors.New("gateway.url is required"))
	}
	switch cfg.Network {
	case model.Mainnet, model.Testnet, model.Regtest:
	default:
		errs = append(errs, fmt.Errorf("network %q is not supported", cfg.Network))
	}

	seen := make(map[model.Asset]bool)
	for i, l := range f.Ledgers {
		asset, err := model.ParseAsset(l.Asset)
		if err != nil {
			errs = append(errs, fmt.Errorf("ledgers[%d]: %w", i, err))
			continue
		}
		if seen[asset] {
			errs = append(errs, fmt.Errorf("ledgers[%d]: duplicate asset %s", i, asset))
			continue
		}
		seen[asset] = true
		cfg.Ledgers = append(cfg.Ledgers, Ledger{
			Asset:    asset,
			Canister: principal(fmt.Sprintf("ledgers[%d].canister", i), l.Canister),
		})
	}
	if len(cfg.Ledgers) == 0 {
		errs = append(errs, errors.New("at least one ledger is required"))
	}

	cfg.Bridge = Bridge{
		Enabled:                f.Bridge.Enabled,
		CheckInterval:          orDefault(f.Bridge.CheckInterval, 10*time.Second),
		InfoTTL:                orDefault(f.Bridge.InfoTTL, 5*time.Minute),
		WithdrawalPollInterval: orDefault(f.Bridge.WithdrawalPollInterval, 10*time.Second),
	}
	if f.Bridge.Enabled {
		cfg.Bridge.Canister = principal("bridge.canister", f.Bridge.Canister)
	}

	cfg.Rates = Rates{
		RefreshInterval: orDefault(f.Rates.RefreshInterval, 60*time.Second),
		MaxAge:          orDefault(f.Rates.MaxAge, 60*time.Second),
		MaxStale:        orDefault(f.Rates.MaxStale, 10*time.Minute),
		Fixed:           map[model.Asset]float64{model.INF: 0.01},
	}
	for symbol, rate := range f.Rates.Fixed {
		asset, err := model.ParseAsset(symbol)
		if err != nil {
			errs = append(errs, fmt.Errorf("rates.fixed: %w", err))
			continue
		}
		if rate <= 0 {
			errs = append(errs, fmt.Errorf("rates.fixed.%s must be positive", asset))
			continue
		}
		cfg.Rates.Fixed[asset] = rate
	}

	cfg.Balances = Balances{RefreshInterval: orDefault(f.Balances.RefreshInterval, 30*time.Second)}
	cfg.Cache = Cache{RedisURL: f.Cache.RedisURL, TTL: f.Cache.TTL}
	cfg.Archive = Archive{
		ClickhouseDSN: f.Archive.ClickhouseDSN,
		FlushSize:     orDefault(f.Archive.FlushSize, 100),
		FlushInterval: orDefault(f.Archive.FlushInterval, 5*time.Second),
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
