package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhound420/sonicticker/internal/audio"
	"github.com/zhound420/sonicticker/internal/config"
	"github.com/zhound420/sonicticker/internal/feed"
	"github.com/zhound420/sonicticker/internal/hub"
	"github.com/zhound420/sonicticker/internal/metrics"
	"github.com/zhound420/sonicticker/internal/music"
	"github.com/zhound420/sonicticker/internal/pipeline"
	"github.com/zhound420/sonicticker/internal/server"
	"github.com/zhound420/sonicticker/internal/util"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to YAML config (defaults + env when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := util.NewLogger("info")
		fallback.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	assets := cfg.AssetList()
	registry := pipeline.NewRegistry(assets)
	h := hub.New(hub.DefaultBacklog)
	for _, asset := range assets {
		h.Provision(asset.Symbol)
	}

	orch := pipeline.New(pipeline.Options{
		Registry:  registry,
		Hub:       h,
		Renderer:  audio.NewSynth(cfg.Audio.SampleRate, cfg.Audio.ChunkBars),
		Mapper:    music.NewMapper(cfg.Audio.BaseTempo),
		Palette:   music.DefaultPalette(),
		Streaming: feed.NewBinance(cfg.Feeds.BinanceWS, log),
		Polling: feed.NewYahoo(cfg.Feeds.YahooBase, log,
			feed.WithPollInterval(time.Duration(cfg.Feeds.PollIntervalSecs)*time.Second)),
		Log: log,
	})
	orch.Start(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: server.New(registry, h, log).Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", srv.Addr).Int("assets", len(assets)).Msg("sonicticker listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("shutting down")
}
