package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhound420/sonicticker/internal/hub"
	"github.com/zhound420/sonicticker/internal/market"
	"github.com/zhound420/sonicticker/internal/metrics"
	"github.com/zhound420/sonicticker/internal/music"
)

const writeTimeout = 10 * time.Second

// packetMeta is the JSON text frame preceding each binary audio frame.
type packetMeta struct {
	Asset        string         `json:"asset"`
	SampleRate   int            `json:"sample_rate"`
	Frames       int            `json:"frames"`
	Channels     int            `json:"channels"`
	Timestamp    string         `json:"timestamp"`
	Metrics      market.Metrics `json:"metrics"`
	Params       music.Params   `json:"params"`
	PayloadBytes int            `json:"payload_bytes"`
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	asset := r.URL.Query().Get("asset")
	if asset == "" {
		if assets := s.registry.Assets(); len(assets) > 0 {
			asset = assets[0].Symbol
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe(asset)
	defer sub.Close()
	s.log.Info().Str("asset", asset).Msg("audio subscriber connected")

	// The read pump answers pings via gorilla's default handler and cancels
	// the stream on close or transport error.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		ev := sub.Next(ctx)
		switch {
		case ev.Closed:
			s.log.Info().Str("asset", asset).Msg("audio subscriber disconnected")
			return
		case ev.Skipped > 0:
			// Lag is reported, never fatal: the subscriber resumes live.
			metrics.SubscriberLagTotal.WithLabelValues(asset).Add(float64(ev.Skipped))
			s.log.Warn().Str("asset", asset).Uint64("skipped", ev.Skipped).Msg("audio subscriber lagged")
		default:
			if err := writePacket(conn, ev.Packet); err != nil {
				s.log.Warn().Err(err).Str("asset", asset).Msg("audio subscriber write failed")
				return
			}
		}
	}
}

func writePacket(conn *websocket.Conn, p *hub.Packet) error {
	meta := packetMeta{
		Asset:        p.Asset,
		SampleRate:   p.Chunk.SampleRate,
		Frames:       p.Chunk.Frames,
		Channels:     p.Chunk.Channels,
		Timestamp:    p.Chunk.Timestamp.Format(time.RFC3339Nano),
		Metrics:      p.Metrics,
		Params:       p.Params,
		PayloadBytes: len(p.Chunk.Samples),
	}

	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	if err := conn.WriteJSON(meta); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, p.Chunk.Samples)
}
