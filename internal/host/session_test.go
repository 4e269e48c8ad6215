package host

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodeclan/tictactoe-broker/internal/game"
	"github.com/kodeclan/tictactoe-broker/internal/protocol"
)

// newTestSession wires a session to one end of a net.Pipe, returning the
// other end (standing in for the broker) so tests can read whatever the
// session writes.
func newTestSession() (*session, net.Conn, *bufio.Reader) {
	sessionSide, brokerSide := net.Pipe()
	s := &session{conn: sessionSide, status: waiting}
	return s, brokerSide, bufio.NewReader(brokerSide)
}

func recvEnvelope(t *testing.T, conn net.Conn, r *bufio.Reader) protocol.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	env, err := protocol.ReadEnvelope(r)
	require.NoError(t, err)
	return env
}

func TestInitSoloSendsGameStarted(t *testing.T) {
	s, conn, r := newTestSession()
	go s.initSolo(protocol.Envelope{Client: &protocol.PlayerRef{Username: "alice", Address: "addr-1"}})

	env := recvEnvelope(t, conn, r)
	assert.Equal(t, protocol.ServerToClient, env.MessageType)
	assert.Equal(t, "addr-1", env.ClientAddress)
	assert.Contains(t, env.Text, "Game started")

	assert.Equal(t, playingSolo, s.status)
	assert.Equal(t, "alice", s.clients[0].Username)
}

func TestInitDualSendsGameStartedToBoth(t *testing.T) {
	s, conn, r := newTestSession()
	clients := []protocol.PlayerRef{
		{Username: "a", Address: "addr-a"},
		{Username: "b", Address: "addr-b"},
	}
	go s.initDual(protocol.Envelope{Clients: clients})

	first := recvEnvelope(t, conn, r)
	second := recvEnvelope(t, conn, r)
	addrs := map[string]bool{first.ClientAddress: true, second.ClientAddress: true}
	assert.True(t, addrs["addr-a"])
	assert.True(t, addrs["addr-b"])
	assert.Equal(t, playingDual, s.status)
}

func TestHandleClientMessageHelp(t *testing.T) {
	s, conn, r := newTestSession()
	s.status = playingSolo
	s.clients = []protocol.PlayerRef{{Username: "alice", Address: "addr-1"}}
	s.board = game.New(game.X)

	go s.handleClientMessage(protocol.Envelope{ClientAddress: "addr-1", Text: "/help"})

	env := recvEnvelope(t, conn, r)
	assert.Equal(t, "addr-1", env.ClientAddress)
	assert.Contains(t, env.Text, "/put (x, y)")
}

func TestHandleClientMessageBroadcast(t *testing.T) {
	s, conn, r := newTestSession()
	s.status = playingDual
	s.clients = []protocol.PlayerRef{
		{Username: "a", Address: "addr-a"},
		{Username: "b", Address: "addr-b"},
	}
	s.board = game.New(game.X)

	go s.handleClientMessage(protocol.Envelope{ClientAddress: "addr-a", Text: "/msg hello there"})

	first := recvEnvelope(t, conn, r)
	second := recvEnvelope(t, conn, r)
	for _, env := range []protocol.Envelope{first, second} {
		assert.Contains(t, env.Text, "a")
		assert.Contains(t, env.Text, "hello there")
	}
}

func TestHandlePutRejectsWrongTurn(t *testing.T) {
	s, conn, r := newTestSession()
	s.status = playingDual
	s.clients = []protocol.PlayerRef{
		{Username: "a", Address: "addr-a"},
		{Username: "b", Address: "addr-b"},
	}
	s.board = game.New(game.X) // X (clients[0] == a) moves first

	go s.handlePut("addr-b", 0, 0)

	env := recvEnvelope(t, conn, r)
	assert.Equal(t, "addr-b", env.ClientAddress)
	assert.Contains(t, env.Text, "not your turn")
}

func TestHandlePutRejectsInvalidCoord(t *testing.T) {
	s, conn, r := newTestSession()
	s.status = playingDual
	s.clients = []protocol.PlayerRef{
		{Username: "a", Address: "addr-a"},
		{Username: "b", Address: "addr-b"},
	}
	s.board = game.New(game.X)

	go s.handlePut("addr-a", 5, 5)

	env := recvEnvelope(t, conn, r)
	assert.Contains(t, env.Text, "Invalid coord")
}

func TestHandlePutRejectsFilledCell(t *testing.T) {
	s, conn, r := newTestSession()
	s.status = playingDual
	s.clients = []protocol.PlayerRef{
		{Username: "a", Address: "addr-a"},
		{Username: "b", Address: "addr-b"},
	}
	s.board = game.New(game.X)
	s.board.Put(0, 0) // X takes (0,0), turn now O

	go s.handlePut("addr-b", 0, 0)

	env := recvEnvelope(t, conn, r)
	assert.Contains(t, env.Text, "already filled")
}

func TestCheckEndOfGameDualWinner(t *testing.T) {
	s, conn, r := newTestSession()
	s.status = playingDual
	s.clients = []protocol.PlayerRef{
		{Username: "a", Address: "addr-a"},
		{Username: "b", Address: "addr-b"},
	}
	s.board = game.New(game.X)
	// Fill the top row with X, winning for clients[0].
	s.board.Put(0, 0) // X
	s.board.Put(1, 0) // O
	s.board.Put(0, 1) // X
	s.board.Put(1, 1) // O
	// third X move leaves the game finished; checkEndOfGame reads it off
	// the board directly rather than via handlePut.
	s.board.Put(0, 2) // X completes the top row

	done := make(chan bool, 1)
	go func() { done <- s.checkEndOfGame() }()

	winMsg := recvEnvelope(t, conn, r)
	loseMsg := recvEnvelope(t, conn, r)
	endGame := recvEnvelope(t, conn, r)

	require.True(t, <-done)
	assert.Equal(t, protocol.EndGame, endGame.MessageType)
	assert.False(t, endGame.IsTie)
	assert.Equal(t, "addr-a", endGame.WinnerAddress)

	var wonText, lostText string
	for _, env := range []protocol.Envelope{winMsg, loseMsg} {
		if env.ClientAddress == "addr-a" {
			wonText = env.Text
		} else {
			lostText = env.Text
		}
	}
	assert.Contains(t, wonText, "won")
	assert.Contains(t, lostText, "lost")
}

func TestCheckEndOfGameTie(t *testing.T) {
	s, conn, r := newTestSession()
	s.status = playingDual
	s.clients = []protocol.PlayerRef{
		{Username: "a", Address: "addr-a"},
		{Username: "b", Address: "addr-b"},
	}
	s.board = game.New(game.X)
	// A known draw sequence: X O X / X O O / O X X
	moves := [][2]int{{0, 0}, {0, 1}, {0, 2}, {1, 1}, {1, 0}, {1, 2}, {2, 1}, {2, 0}, {2, 2}}
	for _, m := range moves {
		s.board.Put(m[0], m[1])
	}
	require.True(t, s.board.IsDraw())

	done := make(chan bool, 1)
	go func() { done <- s.checkEndOfGame() }()

	first := recvEnvelope(t, conn, r)
	second := recvEnvelope(t, conn, r)
	endGame := recvEnvelope(t, conn, r)

	require.True(t, <-done)
	assert.True(t, endGame.IsTie)
	assert.Contains(t, strings.ToLower(first.Text), "tie")
	assert.Contains(t, strings.ToLower(second.Text), "tie")
}

func TestCheckEndOfGameSoloLoss(t *testing.T) {
	s, conn, r := newTestSession()
	s.status = playingSolo
	s.clients = []protocol.PlayerRef{{Username: "alice", Address: "addr-1"}}
	s.board = game.New(game.X)
	// O (the computer) wins: X plays elsewhere, O takes the top row.
	s.board.Put(2, 2) // X
	s.board.Put(0, 0) // O
	s.board.Put(2, 1) // X
	s.board.Put(0, 1) // O
	s.board.Put(1, 0) // X (doesn't block)
	s.board.Put(0, 2) // O completes the top row

	done := make(chan bool, 1)
	go func() { done <- s.checkEndOfGame() }()

	msg := recvEnvelope(t, conn, r)
	endGame := recvEnvelope(t, conn, r)

	require.True(t, <-done)
	assert.Contains(t, msg.Text, "lost")
	assert.False(t, endGame.IsTie)
	assert.Empty(t, endGame.WinnerAddress)
}

func TestUpdateClientSendsBoardAndTurn(t *testing.T) {
	s, conn, r := newTestSession()
	s.status = playingSolo
	s.clients = []protocol.PlayerRef{{Username: "alice", Address: "addr-old"}}
	s.board = game.New(game.X)

	go s.updateClient(&protocol.PlayerRef{Username: "alice", Address: "addr-new"})

	env := recvEnvelope(t, conn, r)
	assert.Equal(t, "addr-new", env.ClientAddress)
	assert.Contains(t, env.Text, "Reconnected")
	assert.Equal(t, "addr-new", s.clients[0].Address)
}
