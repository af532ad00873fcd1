package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config carries everything the messaging services and the terminal
// client need. Values come from env vars (DARASA_ prefix), optionally
// seeded from a .env file next to the binary.
type Config struct {
	Env   string
	Debug bool

	ScyllaHosts []string
	Keyspace    string
	RedisAddr   string

	KafkaBrokers []string
	KafkaTopic   string

	APIAddr     string
	GatewayAddr string

	JWTSecret          string
	JWTExpirationDelta time.Duration

	// GraceDelay is how long a sent optimistic message bubble survives
	// before eviction, bridging the gap until the confirmed copy arrives
	// over the socket.
	GraceDelay time.Duration

	SnowflakeNode int64
}

// Load builds a Config from defaults, an optional .env file, and the
// environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("env", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("scyllaHosts", "localhost:9042")
	v.SetDefault("keyspace", "darasa")
	v.SetDefault("redisAddr", "localhost:6379")
	v.SetDefault("kafkaBrokers", "localhost:19092")
	v.SetDefault("kafkaTopic", "darasa-messages")
	v.SetDefault("apiAddr", ":8081")
	v.SetDefault("gatewayAddr", ":8080")
	v.SetDefault("jwtSecret", "dev-only-secret-change-me")
	v.SetDefault("jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("graceDelay", 800*time.Millisecond)
	v.SetDefault("snowflakeNode", int64(1))

	// load .env if it exists (ignore if it does not)
	if _, err := os.Stat(dotEnvPath()); err == nil {
		if err := godotenv.Load(dotEnvPath()); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix("DARASA")
	v.AutomaticEnv()

	cfg := &Config{
		Env:                v.GetString("env"),
		Debug:              v.GetBool("debug"),
		ScyllaHosts:        splitList(v.GetString("scyllaHosts")),
		Keyspace:           v.GetString("keyspace"),
		RedisAddr:          v.GetString("redisAddr"),
		KafkaBrokers:       splitList(v.GetString("kafkaBrokers")),
		KafkaTopic:         v.GetString("kafkaTopic"),
		APIAddr:            v.GetString("apiAddr"),
		GatewayAddr:        v.GetString("gatewayAddr"),
		JWTSecret:          v.GetString("jwtSecret"),
		JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		GraceDelay:         v.GetDuration("graceDelay"),
		SnowflakeNode:      v.GetInt64("snowflakeNode"),
	}
	return cfg, nil
}

func dotEnvPath() string {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return filepath.Join(wd, ".env")
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
