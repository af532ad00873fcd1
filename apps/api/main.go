package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/makini/darasa/pkg/auth"
	"github.com/makini/darasa/pkg/config"
	"github.com/makini/darasa/pkg/db"
	"github.com/makini/darasa/pkg/logger"
	"github.com/makini/darasa/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New("api", cfg.Debug)

	session, err := db.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to ScyllaDB")
	}
	defer session.Close()
	log.Info().Strs("hosts", cfg.ScyllaHosts).Msg("connected to ScyllaDB")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTExpirationDelta)

	s := &server{
		db:     session,
		redis:  rdb,
		tokens: tokens,
		log:    log,
	}

	r := mux.NewRouter()
	r.Use(corsMiddleware)

	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/metrics", metrics.Handler())

	protected := r.PathPrefix("/threads").Subrouter()
	protected.Use(s.authMiddleware)
	protected.HandleFunc("", s.handleThreads).Methods(http.MethodGet)
	protected.HandleFunc("/{key}/messages", s.handleHistory).Methods(http.MethodGet)
	protected.HandleFunc("/{key}/read", s.handleMarkRead).Methods(http.MethodPost)
	protected.HandleFunc("/{key}/presence", s.handlePresence).Methods(http.MethodGet)

	log.Info().Str("addr", cfg.APIAddr).Msg("api service starting")
	if err := http.ListenAndServe(cfg.APIAddr, r); err != nil {
		log.Fatal().Err(err).Msg("api server stopped")
	}
}
