// Package host implements the game host role: a worker that connects
// outbound to the broker, hosts at most one Tic-Tac-Toe match at a time,
// and relays player input to board state and back. Grounded on
// original_source/server.py's GameServer.
package host

import (
	"bufio"
	"fmt"
	"net"

	"github.com/fatih/color"

	"github.com/kodeclan/tictactoe-broker/internal/game"
	"github.com/kodeclan/tictactoe-broker/internal/logx"
	"github.com/kodeclan/tictactoe-broker/internal/protocol"
)

type status int

const (
	waiting status = iota
	playingSolo
	playingDual
)

var (
	green  = color.New(color.FgGreen)
	cyan   = color.New(color.FgCyan)
	blue   = color.New(color.FgBlue)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
)

// session is one game host's live state: at most one match at a time.
type session struct {
	conn   net.Conn
	status status

	clients []protocol.PlayerRef
	board   *game.Board
}

func (s *session) send(e protocol.Envelope) {
	if err := protocol.WriteEnvelope(s.conn, e); err != nil {
		logx.Error("write to broker failed: %v", err)
	}
}

func (s *session) sendToClient(addr, text string) {
	s.send(protocol.Envelope{MessageType: protocol.ServerToClient, ClientAddress: addr, Text: text})
}

// Run dials the broker, announces itself, and hosts matches until the
// connection drops.
func Run(brokerAddr string) error {
	conn, err := net.Dial("tcp", brokerAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := protocol.WriteEnvelope(conn, protocol.Envelope{MessageType: protocol.ServerInit}); err != nil {
		return err
	}

	reader := bufio.NewReader(conn)
	greeting, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	fmt.Print(greeting)

	logx.Info("game host initialized successfully")

	s := &session{conn: conn, status: waiting}

	for {
		env, err := protocol.ReadEnvelope(reader)
		if err != nil {
			return err
		}
		s.dispatch(env)
	}
}

func (s *session) dispatch(env protocol.Envelope) {
	if s.status == waiting {
		switch env.MessageType {
		case protocol.StartSolo:
			s.initSolo(env)
		case protocol.StartDual:
			s.initDual(env)
		default:
			logx.Error("wrong message type; should be StartSolo or StartDual")
		}
		return
	}

	switch env.MessageType {
	case protocol.ForceTerminate:
		logx.Error("terminated from broker")
		s.reset()
	case protocol.UpdateClient:
		s.updateClient(env.Client)
	case protocol.ClientToServer:
		s.handleClientMessage(env)
	default:
		logx.Error("wrong message type; should be ClientToServer")
	}
}

func (s *session) initSolo(env protocol.Envelope) {
	s.clients = []protocol.PlayerRef{*env.Client}
	s.status = playingSolo
	s.board = game.New(game.RandomFirstTurn())

	if s.board.Turn() == game.O {
		x, y := s.board.RandomPlay()
		logx.Info("computer played random move /put (%d, %d)", x, y)
	}

	s.sendToClient(s.clients[0].Address, green.Sprint("Game started. Enjoy!\n")+blue.Sprint(s.boardAndTurnString()))

	logx.Info("a solo game started [%s vs Computer]", s.clients[0].Username)
}

func (s *session) initDual(env protocol.Envelope) {
	s.clients = env.Clients
	s.status = playingDual
	s.board = game.New(game.RandomFirstTurn())

	text := green.Sprint("Game started. Enjoy!\n") + blue.Sprint(s.boardAndTurnString())
	for _, c := range s.clients {
		s.sendToClient(c.Address, text)
	}

	logx.Info("a dual game started [%s vs %s]", s.clients[0].Username, s.clients[1].Username)
}

func (s *session) reset() {
	s.status = waiting
	s.clients = nil
	s.board = nil
	logx.Info("host configuration reset to default values")
}

func (s *session) clientByAddress(addr string) *protocol.PlayerRef {
	for i := range s.clients {
		if s.clients[i].Address == addr {
			return &s.clients[i]
		}
	}
	return nil
}

func (s *session) updateClient(ref *protocol.PlayerRef) {
	for i := range s.clients {
		if s.clients[i].Username == ref.Username {
			s.clients[i] = *ref
			logx.Info("client %q updated", ref.Username)
			s.sendToClient(ref.Address, green.Sprint("Reconnected to the server!\n")+blue.Sprint(s.boardAndTurnString()))
			return
		}
	}
	logx.Error("invalid client update; no client with username %q", ref.Username)
}

// opponentName returns what the other half of the board-and-turn display
// calls the second seat: the username, or "Computer" in a solo match.
func (s *session) opponentName() string {
	if s.status == playingSolo {
		return "Computer"
	}
	return s.clients[1].Username
}

// boardAndTurnString renders the board, the sign assignment line, and whose
// turn it is, matching original_source's _get_game_board_and_turn_as_string.
func (s *session) boardAndTurnString() string {
	out := s.board.RenderBoard()
	out += fmt.Sprintf("%s: %s | %s: %s\n", s.clients[0].Username, game.X, s.opponentName(), game.O)

	if s.status == playingSolo {
		if s.board.Turn() == game.X {
			out += "Turn: " + s.clients[0].Username
		} else {
			out += "Turn: Computer"
		}
	} else {
		out += "Turn: " + s.turnClientDual().Username
	}
	return out + "\n"
}

// turnClient returns the client whose move is next, or nil when it's the
// computer's turn in a solo match.
func (s *session) turnClient() *protocol.PlayerRef {
	if s.status == playingSolo {
		if s.board.Turn() == game.X {
			return &s.clients[0]
		}
		return nil
	}
	return s.turnClientDual()
}

func (s *session) turnClientDual() *protocol.PlayerRef {
	if s.board.Turn() == game.X {
		return &s.clients[0]
	}
	return &s.clients[1]
}
