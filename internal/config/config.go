// Package config exposes strongly typed application configuration structs loaded
// from YAML with OSC_-prefixed environment overrides applied on top.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/zhound420/sonicticker/internal/market"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr" envconfig:"METRICS_ADDR"`
	LogLevel    string `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

// Server holds the bind address for the REST/websocket surface.
type Server struct {
	Host string `yaml:"host" envconfig:"HOST"`
	Port int    `yaml:"port" envconfig:"PORT"`
}

// Feeds configures the upstream endpoints for both tick source variants.
type Feeds struct {
	BinanceWS        string `yaml:"binance_ws" envconfig:"BINANCE_WS"`
	YahooBase        string `yaml:"yahoo_base" envconfig:"YAHOO_BASE"`
	PollIntervalSecs int    `yaml:"poll_interval_secs" envconfig:"POLL_INTERVAL_SECS"`
}

// Audio groups the renderer knobs.
type Audio struct {
	SampleRate int     `yaml:"sample_rate" envconfig:"SAMPLE_RATE"`
	ChunkBars  int     `yaml:"chunk_bars" envconfig:"CHUNK_BARS"`
	BaseTempo  float64 `yaml:"base_tempo" envconfig:"BASE_TEMPO"`
}

// Asset is the YAML shape of one tracked instrument.
type Asset struct {
	Symbol      string `yaml:"symbol"`
	DisplayName string `yaml:"display_name"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App    App     `yaml:"app"`
	Server Server  `yaml:"server"`
	Feeds  Feeds   `yaml:"feeds"`
	Audio  Audio   `yaml:"audio"`
	Assets []Asset `yaml:"assets"`
}

// Default returns the built-in configuration used when no file or env overrides exist.
func Default() Config {
	return Config{
		App:    App{Name: "sonicticker", Env: "dev", MetricsAddr: ":9100", LogLevel: "info"},
		Server: Server{Host: "0.0.0.0", Port: 8080},
		Feeds: Feeds{
			BinanceWS:        "wss://stream.binance.com:9443",
			YahooBase:        "https://query1.finance.yahoo.com",
			PollIntervalSecs: 15,
		},
		Audio:  Audio{SampleRate: 44100, ChunkBars: 2, BaseTempo: 104},
		Assets: defaultAssets(),
	}
}

// Load hydrates a Config from the optional YAML file at path, then applies
// environment overrides. An empty path means defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	}

	if err := envconfig.Process("osc", &cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if len(cfg.Assets) == 0 {
		cfg.Assets = defaultAssets()
	}
	for _, a := range cfg.Assets {
		if _, err := parseCategory(a.Category); err != nil {
			return nil, fmt.Errorf("asset %s: %w", a.Symbol, err)
		}
	}
	return &cfg, nil
}

// AssetList converts the configured assets into the market vocabulary.
func (c *Config) AssetList() []market.Asset {
	out := make([]market.Asset, 0, len(c.Assets))
	for _, a := range c.Assets {
		category, _ := parseCategory(a.Category)
		out = append(out, market.Asset{
			Symbol:      a.Symbol,
			DisplayName: a.DisplayName,
			Category:    category,
			Description: a.Description,
		})
	}
	return out
}

func parseCategory(raw string) (market.Category, error) {
	switch market.Category(raw) {
	case market.CategoryCrypto:
		return market.CategoryCrypto, nil
	case market.CategoryStock:
		return market.CategoryStock, nil
	default:
		return "", fmt.Errorf("unknown category %q", raw)
	}
}

func defaultAssets() []Asset {
	return []Asset{
		{Symbol: "btcusdt", DisplayName: "BTC/USDT", Category: "crypto", Description: "Bitcoin vs Tether spot market (Binance)"},
		{Symbol: "ethusdt", DisplayName: "ETH/USDT", Category: "crypto", Description: "Ethereum vs Tether"},
		{Symbol: "solusdt", DisplayName: "SOL/USDT", Category: "crypto", Description: "Solana vs Tether"},
		{Symbol: "AAPL", DisplayName: "Apple Inc.", Category: "stock", Description: "Apple equity (NASDAQ)"},
		{Symbol: "TSLA", DisplayName: "Tesla Inc.", Category: "stock", Description: "Tesla equity (NASDAQ)"},
		{Symbol: "SPY", DisplayName: "S&P 500 ETF", Category: "stock", Description: "SPDR S&P 500 ETF"},
	}
}
