// cmd/host runs a game host: a worker that connects outbound to the
// broker, announces itself, and hosts at most one Tic-Tac-Toe match at a
// time for the lifetime of the process.
//
// Environment variables recognized:
//
//	BROKER_ADDR   host:port of the broker      [default: HOST:PORT, then localhost:7300]
//	LOG_LEVEL     debug/info/warn/error         [default: info]
package main

import (
	"os"

	"github.com/kodeclan/tictactoe-broker/internal/config"
	"github.com/kodeclan/tictactoe-broker/internal/host"
	"github.com/kodeclan/tictactoe-broker/internal/logx"
)

func main() {
	config.Load()
	peer := config.LoadPeer()

	logx.Info("connecting to broker at %s", peer.BrokerAddr)
	if err := host.Run(peer.BrokerAddr); err != nil {
		logx.Error("game host exited: %v", err)
		os.Exit(1)
	}
}
