package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/zhound420/sonicticker/internal/music"
)

const (
	channels     = 2
	beatsPerBar  = 4
	fallbackNote = music.C4
)

// Synth is the built-in renderer: additive melody/bass voices with a
// style-dependent timbre, soft-clip distortion, and intensity scaling.
type Synth struct {
	sampleRate int
	bars       int
}

// NewSynth builds a renderer producing `bars` bars per chunk at sampleRate.
func NewSynth(sampleRate, bars int) *Synth {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	if bars <= 0 {
		bars = 2
	}
	return &Synth{sampleRate: sampleRate, bars: bars}
}

// Render synthesizes one chunk. The chunk spans s.bars bars at the mapped
// tempo, so faster markets produce shorter chunks.
func (s *Synth) Render(params music.Params, style music.Style) (*Chunk, error) {
	if params.Tempo <= 0 {
		return nil, fmt.Errorf("render: tempo must be positive, got %.2f", params.Tempo)
	}

	secondsPerBeat := 60.0 / params.Tempo
	frames := int(secondsPerBeat * beatsPerBar * float64(s.bars) * float64(s.sampleRate))
	if frames <= 0 {
		return nil, fmt.Errorf("render: empty chunk at tempo %.2f", params.Tempo)
	}

	melody := params.MelodyNotes
	if len(melody) == 0 {
		melody = []float64{fallbackNote}
	}
	// Melody advances every eighth note.
	framesPerStep := int(secondsPerBeat / 2 * float64(s.sampleRate))
	if framesPerStep <= 0 {
		framesPerStep = 1
	}

	gain := 0.3 * clamp(params.VolumeIntensity, 0.1, 3.0)
	third := thirdRatio(params.Harmony)

	samples := make([]float32, frames*channels)
	for i := 0; i < frames; i++ {
		t := float64(i) / float64(s.sampleRate)
		note := melody[(i/framesPerStep)%len(melody)]

		v := 0.4 * voice(style, note, t)
		v += 0.2 * voice(style, note*third, t)
		v += 0.5 * math.Sin(2*math.Pi*params.BassNote*t)
		v *= gain
		if params.Distortion > 0 {
			v = softClip(v, params.Distortion)
		}

		samples[i*channels] = float32(v)
		samples[i*channels+1] = float32(v)
	}

	out := make([]byte, len(samples)*4)
	for i, sample := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(sample))
	}

	return &Chunk{
		Samples:    out,
		Frames:     frames,
		Channels:   channels,
		SampleRate: s.sampleRate,
		Timestamp:  time.Now().UTC(),
	}, nil
}

// voice picks the oscillator shape per style: hard-edged for electronic and
// rock, pure tones with a soft second partial otherwise.
func voice(style music.Style, freq, t float64) float64 {
	phase := 2 * math.Pi * freq * t
	switch style {
	case music.StyleElectronic, music.StyleRock:
		base := math.Sin(phase)
		return 0.6*base + 0.4*sign(base)
	case music.StyleOrchestral:
		return 0.8*math.Sin(phase) + 0.2*math.Sin(2*phase)
	default:
		return math.Sin(phase)
	}
}

func thirdRatio(harmony music.HarmonyQuality) float64 {
	switch harmony {
	case music.HarmonyMinor:
		return 6.0 / 5.0
	case music.HarmonyDiminished:
		return math.Sqrt2 // tritone above the root
	case music.HarmonySuspended:
		return 4.0 / 3.0
	default:
		return 5.0 / 4.0
	}
}

func softClip(v, amount float64) float64 {
	drive := 1 + amount*4
	return math.Tanh(v*drive) / math.Tanh(drive)
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	if v > 0 {
		return 1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
