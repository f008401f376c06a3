// Package audio renders musical parameter vectors into raw PCM chunks.
package audio

import (
	"time"

	"github.com/zhound420/sonicticker/internal/music"
)

// Chunk is one rendered slice of audio. Samples is interleaved stereo float32
// little-endian PCM; downstream consumers treat the bytes as opaque.
type Chunk struct {
	Samples    []byte
	Frames     int
	Channels   int
	SampleRate int
	Timestamp  time.Time
}

// Renderer turns a parameter vector into an audio chunk. The pipeline treats
// implementations as an external collaborator: a failed render drops that
// tick's packet and nothing else.
type Renderer interface {
	Render(params music.Params, style music.Style) (*Chunk, error)
}
