package broker

import (
	"time"

	"github.com/kodeclan/tictactoe-broker/internal/logx"
	"github.com/kodeclan/tictactoe-broker/internal/protocol"
)

// handleClientDisconnect implements spec.md §4.7: any read/write error on
// a client transport is treated as disconnect, with behavior depending on
// the client's status. Grounded on original_source/webserver.py's
// _handle_client_connection_lost / _terminate_timed_out_client.
func (b *Broker) handleClientDisconnect(c *Client) {
	c.Conn.Close()

	b.mu.Lock()
	defer b.mu.Unlock()

	switch c.Status {
	case InMenu:
		b.removeClientLocked(c)
	case WaitingForSolo:
		b.removeFromQueue(&b.soloQueue, c)
		b.removeClientLocked(c)
	case WaitingForDual:
		b.removeFromQueue(&b.dualQueue, c)
		b.removeClientLocked(c)
	case WaitingForOpponent:
		h := c.Host
		h.Clients = nil
		if b.waitingDualHost == h {
			b.waitingDualHost = nil
		}
		c.Host = nil
		b.removeClientLocked(c)
		b.assignAvailableHost(h)
	case PlayingSolo, PlayingDual:
		c.OnlineStatus = Timeout
		c.cancelGrace = make(chan struct{})
		go b.runGraceTimer(c, c.cancelGrace)
	}

	logx.Error("client [address %s, username %q] disconnected", c.Address, c.Username)
}

// removeClientLocked drops c from the client set and both indexes
// (spec.md §3 invariant 5). Caller must hold b.mu.
func (b *Broker) removeClientLocked(c *Client) {
	delete(b.clients, c.Username)
	delete(b.clientsByAddr, c.Address)
}

// runGraceTimer polls at 0.5s granularity for the 20s (configurable) grace
// window, matching original_source/webserver.py's
// _terminate_timed_out_client. cancel is closed by admitReconnect if the
// client returns first.
func (b *Broker) runGraceTimer(c *Client, cancel chan struct{}) {
	logx.Warn("client %q timed out while playing; will be removed after %s unless it returns", c.Username, b.cfg.GraceWindow)

	const pollInterval = 500 * time.Millisecond
	deadline := time.Now().Add(b.cfg.GraceWindow)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-cancel:
			logx.Warn("timed out client %q returned to the broker and won't be removed", c.Username)
			return
		case <-ticker.C:
		}
	}

	b.terminateTimedOutClient(c)
}

func (b *Broker) terminateTimedOutClient(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// The client may have reconnected between the last poll tick and the
	// timer firing, or already been removed by a concurrent path.
	if c.OnlineStatus == Online {
		return
	}
	if _, stillPresent := b.clients[c.Username]; !stillPresent {
		return
	}

	var removedOpponentName string

	switch c.Status {
	case PlayingSolo:
		h := c.Host
		h.Clients = nil
		if b.waitingDualHost == h {
			b.waitingDualHost = nil
		}
		_ = h.send(protocol.Envelope{MessageType: protocol.ForceTerminate})
		b.assignAvailableHost(h)

	case PlayingDual:
		h := c.Host
		opponent := h.Clients[0]
		if opponent == c {
			opponent = h.Clients[1]
		}
		h.Clients = nil
		_ = h.send(protocol.Envelope{MessageType: protocol.ForceTerminate})

		if opponent.OnlineStatus == Online {
			_ = opponent.sendText(opponentLeftLine())
			opponent.Host = nil
			opponent.Status = InMenu
			b.assignAvailableClient(opponent, Dual)
		} else {
			removedOpponentName = opponent.Username
			b.removeClientLocked(opponent)
		}

		b.assignAvailableHost(h)
	}

	b.removeClientLocked(c)

	logx.Error("timed out client %q removed", c.Username)
	if removedOpponentName != "" {
		// Logs the opponent's own name — original_source's equivalent log
		// line mistakenly repeats the departing client's name instead
		// (spec.md §9's Open Questions); this is the corrected version.
		logx.Error("timed out %q's opponent %q also removed", c.Username, removedOpponentName)
	}
}
