package broker

import (
	"bufio"
	"net"

	"github.com/kodeclan/tictactoe-broker/internal/logx"
	"github.com/kodeclan/tictactoe-broker/internal/protocol"
)

// handleClient runs the three phases of spec.md §4.3 for one accepted
// connection already known to have sent ClientInit as its first frame.
// Grounded on original_source/webserver.py's _handle_client.
func (b *Broker) handleClient(conn net.Conn, reader *bufio.Reader, first protocol.Envelope) {
	addr := conn.RemoteAddr().String()

	username, ok := b.negotiateUsername(conn, reader, first.Username)
	if !ok {
		return
	}

	if err := protocol.WriteEnvelope(conn, protocol.Envelope{
		MessageType: protocol.ClientInitResponse,
		IsValid:     true,
		Message:     usernameAcceptedMessage(),
	}); err != nil {
		conn.Close()
		return
	}

	b.mu.Lock()
	existing, isReconnect := b.clients[username]
	var c *Client
	if isReconnect {
		// Phase B: the username validator above only lets this branch run
		// when the existing record's online_status is TIMEOUT (an ONLINE
		// holder would have failed validation) — see spec.md §9's Open
		// Questions and SPEC_FULL.md §12.
		c = b.admitReconnect(existing, conn, reader, addr)
	} else {
		c = b.admitNewClient(conn, reader, username, addr)
	}
	b.mu.Unlock()

	b.runClientCommandLoop(c)
}

// negotiateUsername implements Phase A: loop until a free/reclaimable
// username is offered, rejecting ONLINE-held names.
func (b *Broker) negotiateUsername(conn net.Conn, reader *bufio.Reader, firstUsername string) (string, bool) {
	username := firstUsername
	for {
		b.mu.Lock()
		valid := b.isUsernameValidLocked(username)
		b.mu.Unlock()
		if valid {
			return username, true
		}

		if err := protocol.WriteEnvelope(conn, protocol.Envelope{
			MessageType: protocol.ClientInitResponse,
			IsValid:     false,
			Message:     usernameTakenMessage(),
		}); err != nil {
			conn.Close()
			return "", false
		}

		env, err := protocol.ReadEnvelope(reader)
		if err != nil || env.MessageType != protocol.ClientInit {
			logx.Warn("%s: incoming client didn't follow the ClientInit negotiation protocol; closing", conn.RemoteAddr())
			conn.Close()
			return "", false
		}
		username = env.Username
	}
}

func (b *Broker) isUsernameValidLocked(username string) bool {
	c, ok := b.clients[username]
	if !ok {
		return true
	}
	return c.OnlineStatus == Timeout
}

func (b *Broker) admitNewClient(conn net.Conn, reader *bufio.Reader, username, addr string) *Client {
	c := &Client{
		Username:     username,
		Address:      addr,
		Conn:         conn,
		reader:       reader,
		Status:       InMenu,
		OnlineStatus: Online,
	}
	b.clients[username] = c
	b.clientsByAddr[addr] = c

	_ = c.sendText(connectedBanner())
	_ = c.sendText(menuBanner())

	logx.Info("client %q initialized successfully [address %s]", username, addr)
	return c
}

func (b *Broker) runClientCommandLoop(c *Client) {
	for {
		env, err := protocol.ReadEnvelope(c.reader)
		if err != nil {
			b.handleClientDisconnect(c)
			return
		}
		if env.MessageType != protocol.ClientMessage {
			logx.Warn("client %q: wrong message type %d, expected ClientMessage", c.Username, env.MessageType)
			b.handleClientDisconnect(c)
			return
		}
		b.dispatchClientCommand(c, env.Text)
	}
}

// dispatchClientCommand implements Phase C (spec.md §4.3).
func (b *Broker) dispatchClientCommand(c *Client, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case text == "/users":
		_ = c.sendText(usersOnlineLine(len(b.clients)))

	case c.Status == InMenu:
		switch text {
		case "/solo":
			b.assignAvailableClient(c, Solo)
		case "/dual":
			b.assignAvailableClient(c, Dual)
		default:
			_ = c.sendText(invalidInputLine())
		}

	case c.Status == PlayingSolo || c.Status == PlayingDual:
		_ = c.Host.send(protocol.Envelope{
			MessageType:   protocol.ClientToServer,
			ClientAddress: c.Address,
			Text:          text,
		})

	default: // any WAITING_* state
		if text == "/exchange" {
			b.handleExchange(c)
		} else {
			_ = c.sendText(waitingASAPLine())
		}
	}
}

// handleExchange implements the /exchange branch of Phase C: pull the
// client out of whatever queue or host slot holds it and return it to the
// menu. Called with b.mu held.
func (b *Broker) handleExchange(c *Client) {
	switch c.Status {
	case WaitingForSolo:
		b.removeFromQueue(&b.soloQueue, c)
		logx.Info("client %q removed from solo waiting queue via /exchange", c.Username)
	case WaitingForDual:
		b.removeFromQueue(&b.dualQueue, c)
		logx.Info("client %q removed from dual waiting queue via /exchange", c.Username)
	case WaitingForOpponent:
		h := c.Host
		h.Clients = nil
		if b.waitingDualHost == h {
			b.waitingDualHost = nil
		}
		c.Host = nil
		logx.Info("client %q is no longer looking for an opponent; host %s returned to matchmaking", c.Username, h.Address)
		b.assignAvailableHost(h)
	}
	c.Status = InMenu
	_ = c.sendText(menuBanner())
}

func (b *Broker) removeFromQueue(q *[]*Client, c *Client) {
	for i, qc := range *q {
		if qc == c {
			*q = append((*q)[:i], (*q)[i+1:]...)
			return
		}
	}
}
