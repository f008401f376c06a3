package music

import "github.com/zhound420/sonicticker/internal/market"

// Style names a composition preset understood by the renderer.
type Style string

const (
	StyleElectronic Style = "Electronic"
	StyleOrchestral Style = "Orchestral"
	StyleAmbient    Style = "Ambient"
	StyleRock       Style = "Rock"
)

// HighVolatility is the threshold above which an asset is scored as turbulent
// when picking a style.
const HighVolatility = 2.5

// Palette is the closed lookup table from asset category and volatility regime
// to a composition style.
type Palette struct {
	CryptoPrimary Style
	CryptoAlt     Style
	StockPrimary  Style
	StockAlt      Style
}

// DefaultPalette mirrors the shipped pairing: crypto sounds electronic when
// volatile and ambient when calm, stocks orchestral when calm and rock when
// volatile.
func DefaultPalette() Palette {
	return Palette{
		CryptoPrimary: StyleElectronic,
		CryptoAlt:     StyleAmbient,
		StockPrimary:  StyleOrchestral,
		StockAlt:      StyleRock,
	}
}

// For selects the style for one metrics snapshot.
func (p Palette) For(category market.Category, volatility float64) Style {
	high := volatility >= HighVolatility
	switch category {
	case market.CategoryCrypto:
		if high {
			return p.CryptoPrimary
		}
		return p.CryptoAlt
	default:
		if high {
			return p.StockAlt
		}
		return p.StockPrimary
	}
}
