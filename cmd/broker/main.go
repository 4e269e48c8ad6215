// cmd/broker runs the matchmaking broker: it accepts game hosts and
// clients over TCP, classifies each by its first frame, and owns all
// session and matchmaking state for the lifetime of the process.
//
// Environment variables recognized:
//
//	HOST          interface to bind              [default: 0.0.0.0]
//	PORT          TCP port to bind                [default: 7300]
//	GRACE_WINDOW  reconnect grace window, seconds  [default: 20]
//	LOG_LEVEL     debug/info/warn/error            [default: info]
//
// A .env file in the working directory is loaded first, if present.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/kodeclan/tictactoe-broker/internal/broker"
	"github.com/kodeclan/tictactoe-broker/internal/config"
	"github.com/kodeclan/tictactoe-broker/internal/logx"
)

func main() {
	config.Load()
	cfg := config.LoadBroker()

	b := broker.NewBroker(cfg)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logx.Info("shutting down")
		os.Exit(0)
	}()

	addr := cfg.Host + ":" + cfg.Port
	if err := b.Run(addr); err != nil {
		logx.Error("broker exited: %v", err)
		os.Exit(1)
	}
}
