package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/zhound420/sonicticker/internal/audio"
	"github.com/zhound420/sonicticker/internal/hub"
	"github.com/zhound420/sonicticker/internal/market"
	"github.com/zhound420/sonicticker/internal/music"
	"github.com/zhound420/sonicticker/internal/pipeline"
)

func testServer(t *testing.T) (*httptest.Server, *pipeline.Registry, *hub.Hub) {
	t.Helper()
	registry := pipeline.NewRegistry([]market.Asset{
		{Symbol: "btcusdt", DisplayName: "BTC/USDT", Category: market.CategoryCrypto, Description: "Bitcoin vs Tether"},
		{Symbol: "AAPL", DisplayName: "Apple Inc.", Category: market.CategoryStock, Description: "Apple equity"},
	})
	h := hub.New(hub.DefaultBacklog)
	srv := httptest.NewServer(New(registry, h, zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)
	return srv, registry, h
}

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
}

func TestListAssets(t *testing.T) {
	srv, _, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/api/assets")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var assets []market.Asset
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&assets))
	require.Len(t, assets, 2)
	require.Equal(t, "btcusdt", assets[0].Symbol)
	require.Equal(t, market.CategoryStock, assets[1].Category)
}

func TestLatestMetrics(t *testing.T) {
	srv, registry, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/api/metrics/btcusdt")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	registry.UpdateMetrics(market.Metrics{Symbol: "btcusdt", Price: 65000, RSI: 55})

	resp, err = http.Get(srv.URL + "/api/metrics/btcusdt")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var m market.Metrics
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	require.Equal(t, 65000.0, m.Price)
	require.Equal(t, 55.0, m.RSI)
}

func TestAudioStreamFraming(t *testing.T) {
	srv, _, h := testServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/audio?asset=btcusdt"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Give the server a beat to register the subscription before publishing.
	require.Eventually(t, func() bool { return h.Subscribers("btcusdt") == 1 },
		time.Second, 10*time.Millisecond)

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	h.Publish(&hub.Packet{
		Asset:   "btcusdt",
		Metrics: market.Metrics{Symbol: "btcusdt", Price: 65000},
		Params:  music.Params{Tempo: 104, MelodyNotes: []float64{music.C4}, Harmony: music.HarmonyMajor, Style: string(music.StyleElectronic)},
		Chunk:   &audio.Chunk{Samples: payload, Frames: 1, Channels: 2, SampleRate: 44100, Timestamp: time.Now().UTC()},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, msgType)

	var meta packetMeta
	require.NoError(t, json.Unmarshal(data, &meta))
	require.Equal(t, "btcusdt", meta.Asset)
	require.Equal(t, len(payload), meta.PayloadBytes)
	require.Equal(t, 44100, meta.SampleRate)
	require.Equal(t, 104.0, meta.Params.Tempo)

	msgType, data, err = conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, msgType)
	require.Equal(t, payload, data)
}

func TestAudioStreamDisconnectDetachesSubscriber(t *testing.T) {
	srv, _, h := testServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/audio?asset=AAPL"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}

	require.Eventually(t, func() bool { return h.Subscribers("AAPL") == 1 },
		time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return h.Subscribers("AAPL") == 0 },
		2*time.Second, 10*time.Millisecond)
}
