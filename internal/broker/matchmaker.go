package broker

import (
	"github.com/kodeclan/tictactoe-broker/internal/logx"
	"github.com/kodeclan/tictactoe-broker/internal/protocol"
)

// Every function in this file assumes b.mu is already held by the caller
// (spec.md §4.4: "All bodies run under the broker's global mutex").

// assignAvailableHost is called whenever a host becomes free: right after
// it connects, and after it finishes a match. Grounded on
// original_source/webserver.py's _assign_available_server.
func (b *Broker) assignAvailableHost(h *Host) {
	switch {
	case len(b.soloQueue) > 0:
		c := b.popFront(&b.soloQueue)
		b.initSoloGame(h, c)
	case len(b.dualQueue) >= 2:
		c1 := b.popFront(&b.dualQueue)
		c2 := b.popFront(&b.dualQueue)
		b.initDualGame(h, c1, c2)
	case len(b.dualQueue) == 1:
		c := b.popFront(&b.dualQueue)
		b.initWaitingDualGame(h, c)
	default:
		h.Clients = nil
		b.freeHosts = append(b.freeHosts, h)
	}
}

// assignAvailableClient is called when a client requests a match (/solo or
// /dual) and when a timed-out dual opponent is requeued. Grounded on
// original_source/webserver.py's _assign_available_client.
func (b *Broker) assignAvailableClient(c *Client, kind MatchKind) {
	switch kind {
	case Solo:
		if len(b.freeHosts) > 0 {
			h := b.popFreeHost()
			b.initSoloGame(h, c)
		} else {
			b.putClientOnWait(c, Solo)
		}
	case Dual:
		switch {
		case b.waitingDualHost != nil:
			h := b.waitingDualHost
			b.waitingDualHost = nil
			b.pairIntoWaitingDualHost(h, c)
		case len(b.freeHosts) > 0:
			h := b.popFreeHost()
			b.initWaitingDualGame(h, c)
		default:
			b.putClientOnWait(c, Dual)
		}
	}
}

func (b *Broker) popFront(q *[]*Client) *Client {
	c := (*q)[0]
	*q = (*q)[1:]
	return c
}

// popFreeHost pops from the back: free_hosts is LIFO (spec.md §4.4 tie-break).
func (b *Broker) popFreeHost() *Host {
	n := len(b.freeHosts)
	h := b.freeHosts[n-1]
	b.freeHosts = b.freeHosts[:n-1]
	return h
}

func (b *Broker) initSoloGame(h *Host, c *Client) {
	c.Host = h
	h.Clients = []*Client{c}
	c.Status = PlayingSolo

	_ = c.sendText(assignedSoloLine())
	_ = h.send(protocol.Envelope{
		MessageType: protocol.StartSolo,
		Client:      &protocol.PlayerRef{Username: c.Username, Address: c.Address},
	})

	logx.Info("client %q assigned to host %s for solo play", c.Username, h.Address)
}

func (b *Broker) initWaitingDualGame(h *Host, c *Client) {
	b.waitingDualHost = h
	c.Host = h
	h.Clients = []*Client{c}
	c.Status = WaitingForOpponent

	_ = c.sendText(assignedWaitingDualLine())

	logx.Info("client %q is waiting in host %s for a dual opponent", c.Username, h.Address)
}

func (b *Broker) initDualGame(h *Host, c1, c2 *Client) {
	h.Clients = []*Client{c1, c2}
	for _, c := range h.Clients {
		c.Host = h
		c.Status = PlayingDual
		_ = c.sendText(assignedWaitingDualLine())
		_ = c.sendText(opponentFoundLine())
	}

	_ = h.send(protocol.Envelope{
		MessageType: protocol.StartDual,
		Clients: []protocol.PlayerRef{
			{Username: c1.Username, Address: c1.Address},
			{Username: c2.Username, Address: c2.Address},
		},
	})

	logx.Info("dual game started between %q and %q on host %s", c1.Username, c2.Username, h.Address)
}

// pairIntoWaitingDualHost joins c to the lone client already waiting on h.
func (b *Broker) pairIntoWaitingDualHost(h *Host, c *Client) {
	existing := h.Clients[0]
	h.Clients = append(h.Clients, c)
	c.Host = h
	c.Status = PlayingDual
	existing.Status = PlayingDual

	for _, cl := range h.Clients {
		_ = cl.sendText(opponentFoundLine())
	}

	_ = h.send(protocol.Envelope{
		MessageType: protocol.StartDual,
		Clients: []protocol.PlayerRef{
			{Username: h.Clients[0].Username, Address: h.Clients[0].Address},
			{Username: h.Clients[1].Username, Address: h.Clients[1].Address},
		},
	})

	logx.Info("client %q joined waiting host %s; dual game started against %q", c.Username, h.Address, existing.Username)
}

func (b *Broker) putClientOnWait(c *Client, kind MatchKind) {
	c.Host = nil
	switch kind {
	case Solo:
		c.Status = WaitingForSolo
		b.soloQueue = append(b.soloQueue, c)
	case Dual:
		c.Status = WaitingForDual
		b.dualQueue = append(b.dualQueue, c)
	}
	_ = c.sendText(waitingASAPLine())
}
