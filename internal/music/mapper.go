// Package music maps market metrics into deterministic musical parameter
// vectors and selects composition styles.
package music

import (
	"math"

	"github.com/zhound420/sonicticker/internal/market"
)

// HarmonyQuality is the chord color the renderer should voice.
type HarmonyQuality string

const (
	HarmonyMajor      HarmonyQuality = "Major"
	HarmonyMinor      HarmonyQuality = "Minor"
	HarmonyDiminished HarmonyQuality = "Diminished"
	// HarmonySuspended is part of the wire vocabulary but never produced by the
	// mapper; clients must still accept it.
	HarmonySuspended HarmonyQuality = "Suspended"
)

// Params is the pure output of mapping one metrics snapshot with one style.
type Params struct {
	Tempo           float64        `json:"tempo"`
	MelodyNotes     []float64      `json:"melody_notes"`
	BassNote        float64        `json:"bass_note"`
	Harmony         HarmonyQuality `json:"harmony"`
	ReverbMix       float64        `json:"reverb_mix"`
	Distortion      float64        `json:"distortion"`
	VolumeIntensity float64        `json:"volume_intensity"`
	Style           string         `json:"style"`
}

// DefaultBaseTempo anchors the tempo formula when no config value is given.
const DefaultBaseTempo = 104.0

// Mapper turns metrics into musical parameters. Map is a pure function: the
// same metrics and style always produce an identical Params value.
type Mapper struct {
	baseTempo float64
}

func NewMapper(baseTempo float64) *Mapper {
	if baseTempo <= 0 {
		baseTempo = DefaultBaseTempo
	}
	return &Mapper{baseTempo: baseTempo}
}

// Map derives the parameter vector for one metrics snapshot.
func (m *Mapper) Map(metrics market.Metrics, style Style) Params {
	scale, ascending := scaleFor(metrics.PriceChangePercent)
	idx := scaleIndex(metrics.PriceChangePercent, len(scale))
	melody := scale[idx]
	if !ascending {
		melody = scale[len(scale)-idx-1]
	}

	tempo := m.baseTempo + (metrics.VolumeRatio-1)*30 + metrics.TempoBias*40
	tempo = clamp(tempo, 80, 160)

	harmony := HarmonyMajor
	switch {
	case metrics.RSI < 30:
		harmony = HarmonyMinor
	case metrics.RSI > 70:
		harmony = HarmonyDiminished
	}

	return Params{
		Tempo:           tempo,
		MelodyNotes:     []float64{melody},
		BassNote:        bassFromPrice(metrics.Price),
		Harmony:         harmony,
		ReverbMix:       clamp(metrics.Volatility/5, 0.05, 0.7),
		Distortion:      clamp(metrics.Volatility/3, 0, 0.8),
		VolumeIntensity: metrics.VolumeRatio,
		Style:           string(style),
	}
}

// scaleFor picks the melodic scale by the magnitude and sign of the session
// price change. Beyond +-5% the whole-tone scale signals an outsized move.
func scaleFor(priceChangePercent float64) ([]float64, bool) {
	if priceChangePercent > 5 || priceChangePercent < -5 {
		return wholeTone, priceChangePercent >= 0
	}
	if priceChangePercent >= 0 {
		return majorPentatonic, true
	}
	return minorPentatonic, false
}

func scaleIndex(pct float64, length int) int {
	if length == 0 {
		return 0
	}
	norm := clamp(math.Abs(pct)/10, 0, 1)
	return int(math.Round(norm * float64(length-1)))
}

// bassFromPrice maps log10(price) linearly onto the C1..C3 range.
func bassFromPrice(price float64) float64 {
	if price <= 0 {
		return C1
	}
	normalized := clamp(math.Log10(price)/5, 0, 1)
	return C1 + (C3-C1)*normalized
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
