package broker

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodeclan/tictactoe-broker/internal/config"
	"github.com/kodeclan/tictactoe-broker/internal/protocol"
)

// Test harness: drives the broker's accept/classify entry points over
// net.Pipe() pairs, standing in for what Run's Accept loop would hand it.
// Concurrency assertions follow the polling style of la2go's
// handler_race_test.go rather than a fixed number of conn.Read calls,
// since the broker may split a client's text across several raw writes.

func newTestBroker() *Broker {
	return NewBroker(config.Broker{Host: "127.0.0.1", Port: "0", GraceWindow: 200 * time.Millisecond})
}

type fakeHost struct {
	conn   net.Conn
	reader *bufio.Reader
}

func connectFakeHost(t *testing.T, b *Broker) *fakeHost {
	t.Helper()
	serverSide, hostSide := net.Pipe()
	go b.acceptAndClassify(serverSide)

	require.NoError(t, protocol.WriteEnvelope(hostSide, protocol.Envelope{MessageType: protocol.ServerInit}))

	reader := bufio.NewReader(hostSide)
	_, err := reader.ReadString('\n') // discard the one raw greeting line
	require.NoError(t, err)

	return &fakeHost{conn: hostSide, reader: reader}
}

func (h *fakeHost) recv(t *testing.T) protocol.Envelope {
	t.Helper()
	h.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	env, err := protocol.ReadEnvelope(h.reader)
	require.NoError(t, err)
	return env
}

func (h *fakeHost) send(t *testing.T, e protocol.Envelope) {
	t.Helper()
	require.NoError(t, protocol.WriteEnvelope(h.conn, e))
}

type fakeClient struct {
	conn   net.Conn
	reader *bufio.Reader

	mu  sync.Mutex
	buf strings.Builder
}

func connectFakeClient(t *testing.T, b *Broker, username string) *fakeClient {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	go b.acceptAndClassify(serverSide)

	reader := bufio.NewReader(clientSide)
	require.NoError(t, protocol.WriteEnvelope(clientSide, protocol.Envelope{MessageType: protocol.ClientInit, Username: username}))

	env, err := protocol.ReadEnvelope(reader)
	require.NoError(t, err)
	require.True(t, env.IsValid)

	fc := &fakeClient{conn: clientSide, reader: reader}
	go fc.drain()
	return fc
}

// reconnectFakeClient dials a fresh pipe under the same username, mirroring
// a player's client process restarting.
func reconnectFakeClient(t *testing.T, b *Broker, username string) *fakeClient {
	return connectFakeClient(t, b, username)
}

func (c *fakeClient) drain() {
	buf := make([]byte, 4096)
	for {
		n, err := c.reader.Read(buf)
		if n > 0 {
			c.mu.Lock()
			c.buf.Write(buf[:n])
			c.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (c *fakeClient) sendCommand(t *testing.T, text string) {
	t.Helper()
	require.NoError(t, protocol.WriteEnvelope(c.conn, protocol.Envelope{MessageType: protocol.ClientMessage, Text: text}))
}

func (c *fakeClient) waitFor(t *testing.T, substr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		s := c.buf.String()
		c.mu.Unlock()
		if strings.Contains(s, substr) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t.Fatalf("timed out waiting for %q in client output; got %q", substr, c.buf.String())
}

func TestSoloHappyPath(t *testing.T) {
	b := newTestBroker()
	h := connectFakeHost(t, b)

	alice := connectFakeClient(t, b, "alice")
	alice.sendCommand(t, "/solo")

	start := h.recv(t)
	require.Equal(t, protocol.StartSolo, start.MessageType)
	assert.Equal(t, "alice", start.Client.Username)

	b.mu.Lock()
	assert.Equal(t, PlayingSolo, b.clients["alice"].Status)
	assert.Empty(t, b.freeHosts)
	b.mu.Unlock()
}

func TestDualPairingFromQueue(t *testing.T) {
	b := newTestBroker()
	h := connectFakeHost(t, b)

	a := connectFakeClient(t, b, "a")
	a.sendCommand(t, "/dual")
	a.waitFor(t, "Waiting for opponent")

	b.mu.Lock()
	assert.Equal(t, WaitingForOpponent, b.clients["a"].Status)
	assert.Same(t, h, b.waitingDualHost)
	b.mu.Unlock()

	bb := connectFakeClient(t, b, "b")
	bb.sendCommand(t, "/dual")

	start := h.recv(t)
	require.Equal(t, protocol.StartDual, start.MessageType)
	require.Len(t, start.Clients, 2)
	assert.Equal(t, "a", start.Clients[0].Username)
	assert.Equal(t, "b", start.Clients[1].Username)

	b.mu.Lock()
	assert.Equal(t, PlayingDual, b.clients["a"].Status)
	assert.Equal(t, PlayingDual, b.clients["b"].Status)
	assert.Empty(t, b.dualQueue)
	assert.Nil(t, b.waitingDualHost)
	b.mu.Unlock()
}

func TestDualPairingFromQueueBacklog(t *testing.T) {
	b := newTestBroker()

	a := connectFakeClient(t, b, "a")
	bb := connectFakeClient(t, b, "b")
	cc := connectFakeClient(t, b, "c")
	a.sendCommand(t, "/dual")
	bb.sendCommand(t, "/dual")
	cc.sendCommand(t, "/dual")

	a.waitFor(t, "ASAP")
	bb.waitFor(t, "ASAP")
	cc.waitFor(t, "ASAP")

	h := connectFakeHost(t, b)

	start := h.recv(t)
	require.Equal(t, protocol.StartDual, start.MessageType)
	assert.Equal(t, "a", start.Clients[0].Username)
	assert.Equal(t, "b", start.Clients[1].Username)

	b.mu.Lock()
	require.Len(t, b.dualQueue, 1)
	assert.Equal(t, "c", b.dualQueue[0].Username)
	assert.Nil(t, b.waitingDualHost)
	b.mu.Unlock()
}

func TestReconnectMidMatch(t *testing.T) {
	b := newTestBroker()
	h := connectFakeHost(t, b)

	alice := connectFakeClient(t, b, "alice")
	alice.sendCommand(t, "/solo")
	h.recv(t) // StartSolo

	b.mu.Lock()
	oldAddr := b.clients["alice"].Address
	b.mu.Unlock()

	alice.conn.Close()

	// Wait for the disconnect handler to register the TIMEOUT.
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		c, ok := b.clients["alice"]
		return ok && c.OnlineStatus == Timeout
	}, time.Second, 5*time.Millisecond)

	newAlice := reconnectFakeClient(t, b, "alice")

	update := h.recv(t)
	require.Equal(t, protocol.UpdateClient, update.MessageType)
	assert.Equal(t, "alice", update.Client.Username)
	assert.NotEqual(t, oldAddr, update.Client.Address)

	b.mu.Lock()
	assert.Equal(t, Online, b.clients["alice"].OnlineStatus)
	_, oldStillIndexed := b.clientsByAddr[oldAddr]
	assert.False(t, oldStillIndexed)
	b.mu.Unlock()

	newAlice.sendCommand(t, "/users")
}

func TestExchangeFromWaitingForOpponent(t *testing.T) {
	b := newTestBroker()
	h := connectFakeHost(t, b)

	a := connectFakeClient(t, b, "a")
	a.sendCommand(t, "/dual")
	a.waitFor(t, "Waiting for opponent")

	a.sendCommand(t, "/exchange")

	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.clients["a"].Status == InMenu
	}, time.Second, 5*time.Millisecond)

	b.mu.Lock()
	assert.Nil(t, b.waitingDualHost)
	assert.Contains(t, b.freeHosts, h)
	b.mu.Unlock()
}

func TestTimeoutInDualMatch(t *testing.T) {
	b := newTestBroker()
	h := connectFakeHost(t, b)

	a := connectFakeClient(t, b, "a")
	bb := connectFakeClient(t, b, "b")
	a.sendCommand(t, "/dual")
	bb.sendCommand(t, "/dual")
	h.recv(t) // StartDual

	a.conn.Close()

	terminate := h.recv(t)
	assert.Equal(t, protocol.ForceTerminate, terminate.MessageType)

	bb.waitFor(t, "opponent left")

	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		_, stillThere := b.clients["a"]
		return !stillThere
	}, time.Second, 5*time.Millisecond)
}
