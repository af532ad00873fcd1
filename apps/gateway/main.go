package main

import (
	"net/http"

	"github.com/makini/darasa/pkg/auth"
	"github.com/makini/darasa/pkg/config"
	"github.com/makini/darasa/pkg/logger"
	"github.com/makini/darasa/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New("gateway", cfg.Debug)

	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTExpirationDelta)

	hub := NewHub(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.RedisAddr, cfg.SnowflakeNode, log)
	go hub.Run()

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, tokens, w, r)
	})
	http.Handle("/metrics", metrics.Handler())

	log.Info().Str("addr", cfg.GatewayAddr).Msg("gateway service starting")
	if err := http.ListenAndServe(cfg.GatewayAddr, nil); err != nil {
		log.Fatal().Err(err).Msg("gateway server stopped")
	}
}
