// Package config loads broker/host/client configuration from the
// environment, optionally pre-populated from a .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kodeclan/tictactoe-broker/internal/logx"
)

const defaultGraceWindow = 20 * time.Second

// Load reads a .env file if present (missing file is not an error — mirrors
// python-dotenv's load_dotenv behavior in original_source), then applies
// LOG_LEVEL to logx, whose package init ran before the .env was loaded.
// Callers read the other variables via os.Getenv afterward.
func Load() {
	_ = godotenv.Load()

	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		logx.SetLevel(logx.DebugLevel)
	case "info":
		logx.SetLevel(logx.InfoLevel)
	case "warn", "warning":
		logx.SetLevel(logx.WarnLevel)
	case "error":
		logx.SetLevel(logx.ErrorLevel)
	}
}

// Broker is the configuration for the matchmaker process.
type Broker struct {
	Host        string
	Port        string
	GraceWindow time.Duration
}

// LoadBroker reads HOST, PORT and GRACE_WINDOW (seconds) for the broker.
func LoadBroker() Broker {
	return Broker{
		Host:        envOr("HOST", "0.0.0.0"),
		Port:        envOr("PORT", "7300"),
		GraceWindow: envDurationSeconds("GRACE_WINDOW", defaultGraceWindow),
	}
}

// Peer is the configuration shared by the host and client processes: where
// to dial the broker.
type Peer struct {
	BrokerAddr string
}

// LoadPeer reads BROKER_ADDR, falling back to HOST:PORT the way
// original_source's client.py/server.py do (they reuse the broker's own
// HOST/PORT env vars to know where to connect).
func LoadPeer() Peer {
	if addr := os.Getenv("BROKER_ADDR"); addr != "" {
		return Peer{BrokerAddr: addr}
	}
	host := envOr("HOST", "localhost")
	port := envOr("PORT", "7300")
	return Peer{BrokerAddr: host + ":" + port}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDurationSeconds(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}
