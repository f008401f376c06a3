// Package market standardizes the tick and metrics payloads shared between data
// ingestion and the sonification pipeline.
package market

import "time"

// Category classifies an asset by the kind of venue that prices it.
type Category string

const (
	// CategoryCrypto assets stream live trades from a crypto exchange websocket.
	CategoryCrypto Category = "crypto"
	// CategoryStock assets poll a chart API on a fixed interval.
	CategoryStock Category = "stock"
)

// Asset describes one configured tradable instrument.
type Asset struct {
	Symbol      string   `json:"symbol"`
	DisplayName string   `json:"display_name"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
}

// PriceTick models one observed price/volume sample for an asset.
type PriceTick struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp time.Time
}

// Metrics is the rolling indicator snapshot derived from one asset's tick stream.
type Metrics struct {
	Symbol             string    `json:"symbol"`
	Price              float64   `json:"price"`
	PriceChangePercent float64   `json:"price_change_percent"`
	Volume             float64   `json:"volume"`
	VolumeRatio        float64   `json:"volume_ratio"`
	RSI                float64   `json:"rsi"`
	Volatility         float64   `json:"volatility"`
	TempoBias          float64   `json:"tempo_bias"`
	LastUpdated        time.Time `json:"last_updated"`
}
