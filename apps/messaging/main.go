package main

import (
	"context"

	"github.com/makini/darasa/pkg/config"
	"github.com/makini/darasa/pkg/db"
	"github.com/makini/darasa/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New("messaging", cfg.Debug)

	// Schema bootstrap. In production this belongs to a migration
	// tool; for now the consumer creates what it needs on startup.
	sysSession, err := db.NewSession(cfg.ScyllaHosts, "system")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to ScyllaDB system keyspace")
	}
	err = sysSession.Query(`CREATE KEYSPACE IF NOT EXISTS ` + cfg.Keyspace +
		` WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`).Exec()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create keyspace")
	}
	sysSession.Close()

	session, err := db.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to ScyllaDB")
	}
	defer session.Close()

	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS messages (
			thread_key text,
			id bigint,
			sender_id text,
			content text,
			created_at timestamp,
			PRIMARY KEY (thread_key, id)
		) WITH CLUSTERING ORDER BY (id ASC)`,
		`CREATE TABLE IF NOT EXISTS user_threads (
			user_id text,
			thread_key text,
			title text,
			last_updated timestamp,
			PRIMARY KEY (user_id, thread_key)
		)`,
		`CREATE TABLE IF NOT EXISTS thread_counters (
			user_id text,
			thread_key text,
			unread_count counter,
			PRIMARY KEY (user_id, thread_key)
		)`,
		`CREATE TABLE IF NOT EXISTS space_members (
			thread_key text,
			user_id text,
			PRIMARY KEY (thread_key, user_id)
		)`,
	} {
		if err := session.Query(ddl).Exec(); err != nil {
			log.Fatal().Err(err).Msg("failed to create table")
		}
	}

	consumer := NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, "messaging-service-group", session, log)
	defer consumer.Close()

	log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("starting consumer")
	consumer.Consume(context.Background())
}
