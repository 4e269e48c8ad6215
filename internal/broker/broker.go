// Package broker implements the matchmaking broker: the system's central
// process. It accepts TCP connections from both game hosts and clients,
// classifies them by their first frame, and thereafter owns all session
// state behind a single mutex (spec.md §3, §5).
package broker

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/kodeclan/tictactoe-broker/internal/config"
	"github.com/kodeclan/tictactoe-broker/internal/logx"
	"github.com/kodeclan/tictactoe-broker/internal/protocol"
)

// Broker owns every piece of matchmaking state. Every field below the
// mutex is mutated only while mu is held — the "single broker-wide mutex"
// of spec.md §5. It is grounded on original_source/webserver.py's WebServer
// class and shaped after the teacher's single-struct session managers
// (login.Server, gslistener.Server in the retrieved corpus).
type Broker struct {
	cfg config.Broker

	mu sync.Mutex

	// set of all online/grace-window clients, plus the two indexes
	// required to agree with it at every quiescent point (invariant 5).
	clients       map[string]*Client // by username
	clientsByAddr map[string]*Client // by address

	soloQueue []*Client
	dualQueue []*Client

	waitingDualHost *Host

	freeHosts []*Host // LIFO: push/pop at the back
	allHosts  []*Host

	nextHostID int
}

// ServerOption configures a Broker at construction time, following the
// teacher's functional-option constructors (login.NewServer).
type ServerOption func(*Broker)

// WithGraceWindow overrides the configured reconnect grace window, mainly
// for tests that don't want to wait 20 real seconds.
func WithGraceWindow(d time.Duration) ServerOption {
	return func(b *Broker) { b.cfg.GraceWindow = d }
}

// NewBroker builds an idle Broker. Call Run to start accepting connections.
func NewBroker(cfg config.Broker, opts ...ServerOption) *Broker {
	b := &Broker{
		cfg:           cfg,
		clients:       make(map[string]*Client),
		clientsByAddr: make(map[string]*Client),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run listens on addr and accepts connections until the
// listener errors or is closed. Each accepted connection is classified and
// handed off to its own goroutine (spec.md §4.2).
func (b *Broker) Run(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	logx.Info("broker listening on %s (grace window %s)", addr, b.cfg.GraceWindow)

	go b.runConsole()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			logx.Error("accept: %v", err)
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.acceptAndClassify(conn)
		}()
	}
}

// acceptAndClassify reads the first frame off a freshly accepted connection
// and dispatches it to the host or client handler (spec.md §4.2).
func (b *Broker) acceptAndClassify(conn net.Conn) {
	reader := bufio.NewReader(conn)
	env, err := protocol.ReadEnvelope(reader)
	if err != nil {
		logx.Warn("%s: failed to read first frame: %v", conn.RemoteAddr(), err)
		conn.Close()
		return
	}

	switch env.MessageType {
	case protocol.ServerInit:
		b.handleHost(conn, reader)
	case protocol.ClientInit:
		b.handleClient(conn, reader, env)
	default:
		logx.Warn("%s: first frame was type %d, expected ServerInit or ClientInit", conn.RemoteAddr(), env.MessageType)
		_, _ = conn.Write([]byte(red.Sprint(
			"Invalid initialization message type. It should be either \"ServerInitMessage\" or \"ClientInitMessage\".\n",
		)))
		conn.Close()
	}
}

// sendText writes raw (unframed) text to the client. Once past username
// negotiation, original_source's broker never frames client-bound text
// again — the client's receive_thread just prints whatever bytes arrive —
// so menu banners, status lines, and host-forwarded game output all go out
// this way.
func (c *Client) sendText(text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.Conn.Write([]byte(text))
	return err
}

// send writes a framed Envelope to a host. Every broker↔host exchange is
// framed, barring the one raw greeting line sent right after ServerInit.
func (h *Host) send(e protocol.Envelope) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	return protocol.WriteEnvelope(h.Conn, e)
}

// sendRaw writes the one-time unframed greeting a host receives right
// after ServerInit (server.py does a single recv(1024) for it before
// entering its framed serve() loop).
func (h *Host) sendRaw(text string) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	_, err := h.Conn.Write([]byte(text))
	return err
}
