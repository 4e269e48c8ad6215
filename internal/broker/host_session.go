package broker

import (
	"bufio"
	"net"

	"github.com/kodeclan/tictactoe-broker/internal/logx"
	"github.com/kodeclan/tictactoe-broker/internal/protocol"
)

// handleHost registers a freshly connected game host and runs its
// indefinite read loop. Grounded on original_source/webserver.py's
// _init_new_server + _handle_server.
func (b *Broker) handleHost(conn net.Conn, reader *bufio.Reader) {
	addr := conn.RemoteAddr().String()

	h := &Host{Address: addr, Conn: conn, reader: reader}

	// The one raw, unframed line a host ever receives (server.py does a
	// single recv(1024) for it before entering its framed serve() loop) —
	// sent before any framed message so the host's one-shot recv can't
	// swallow part of a later frame off the same byte stream.
	if err := h.sendRaw(connectedBanner()); err != nil {
		conn.Close()
		return
	}

	b.mu.Lock()
	b.nextHostID++
	h.ID = b.nextHostID
	b.allHosts = append(b.allHosts, h)
	logx.Info("host #%d [%s] initialized successfully", h.ID, addr)
	b.assignAvailableHost(h)
	b.mu.Unlock()

	b.runHostLoop(h)
}

func (b *Broker) runHostLoop(h *Host) {
	for {
		env, err := protocol.ReadEnvelope(h.reader)
		if err != nil {
			b.handleHostDisconnect(h)
			return
		}

		switch env.MessageType {
		case protocol.ServerToClient:
			b.forwardToClient(env.ClientAddress, env.Text)
		case protocol.EndGame:
			b.handleEndGame(h, env)
		default:
			logx.Warn("host #%d: wrong message type %d, expected ServerToClient or EndGame", h.ID, env.MessageType)
		}
	}
}

func (b *Broker) forwardToClient(addr, text string) {
	b.mu.Lock()
	c, ok := b.clientsByAddr[addr]
	b.mu.Unlock()
	if !ok {
		logx.Warn("ServerToClient for unknown address %s dropped", addr)
		return
	}
	_ = c.sendText(text)
}

// handleEndGame implements spec.md §4.5's scoreboard rules and feeds the
// host back through the matchmaker.
func (b *Broker) handleEndGame(h *Host, env protocol.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	logx.Info("game on host #%d ended", h.ID)

	switch {
	case env.IsTie:
		for _, c := range h.Clients {
			c.Ties++
		}
	case env.WinnerAddress == "":
		// solo loss: the single attached client lost to the computer.
		if len(h.Clients) > 0 {
			h.Clients[0].Losses++
		}
	case len(h.Clients) == 1:
		// solo win.
		h.Clients[0].Wins++
	default:
		// dual: winner_address identifies which of the two clients won.
		winner := b.clientsByAddr[env.WinnerAddress]
		for _, c := range h.Clients {
			if c == winner {
				c.Wins++
			} else {
				c.Losses++
			}
		}
	}

	for _, c := range h.Clients {
		c.Host = nil
		c.Status = InMenu
		_ = c.sendText(menuBanner())
	}
	h.Clients = nil

	b.assignAvailableHost(h)
}

// handleHostDisconnect treats host transport loss symmetrically to client
// loss (spec.md §7, SPEC_FULL.md §12): detach every attached client, tell
// them the match aborted, and drop the host from every pool — hosts carry
// no reconnection protocol in this spec.
func (b *Broker) handleHostDisconnect(h *Host) {
	h.Conn.Close()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range h.Clients {
		c.Host = nil
		c.Status = InMenu
		_ = c.sendText(matchAbortedLine())
		_ = c.sendText(menuBanner())
	}
	h.Clients = nil

	if b.waitingDualHost == h {
		b.waitingDualHost = nil
	}
	b.removeHostFromFreePool(h)
	b.removeHostFromAllHosts(h)

	logx.Error("host #%d [%s] disconnected", h.ID, h.Address)
}

func (b *Broker) removeHostFromFreePool(h *Host) {
	for i, fh := range b.freeHosts {
		if fh == h {
			b.freeHosts = append(b.freeHosts[:i], b.freeHosts[i+1:]...)
			return
		}
	}
}

func (b *Broker) removeHostFromAllHosts(h *Host) {
	for i, ah := range b.allHosts {
		if ah == h {
			b.allHosts = append(b.allHosts[:i], b.allHosts[i+1:]...)
			return
		}
	}
}
