package host

import (
	"fmt"
	"regexp"

	"github.com/fatih/color"

	"github.com/kodeclan/tictactoe-broker/internal/game"
	"github.com/kodeclan/tictactoe-broker/internal/logx"
	"github.com/kodeclan/tictactoe-broker/internal/protocol"
)

var (
	putCommandRegex = regexp.MustCompile(`^/put \((\d+), (\d+)\)$`)
	msgCommandRegex = regexp.MustCompile(`^/msg (.+)$`)
)

// handleClientMessage dispatches the text a client sent during a match:
// /help, /msg <text>, /put (x, y), or an opaque invalid command. Grounded
// on original_source/server.py's serve().
func (s *session) handleClientMessage(env protocol.Envelope) {
	addr := env.ClientAddress
	text := env.Text

	switch {
	case text == "/help":
		s.sendHelp(addr)
	case msgCommandRegex.MatchString(text):
		m := msgCommandRegex.FindStringSubmatch(text)
		s.broadcastMessage(addr, m[1])
	case putCommandRegex.MatchString(text):
		m := putCommandRegex.FindStringSubmatch(text)
		var x, y int
		fmt.Sscanf(m[1], "%d", &x)
		fmt.Sscanf(m[2], "%d", &y)
		s.handlePut(addr, x, y)
	default:
		s.sendToClient(addr, red.Sprint("Invalid command. See /help for more help\n"))
		logx.Error("invalid command from %q", s.usernameOf(addr))
	}
}

func (s *session) usernameOf(addr string) string {
	if c := s.clientByAddress(addr); c != nil {
		return c.Username
	}
	return addr
}

func (s *session) sendHelp(addr string) {
	text := game.RenderHelpBoard() +
		"Use the command \"/put (x, y)\" to put your sign on the board.\n" +
		"Use the command \"/msg message\" to send your message\n"
	s.sendToClient(addr, yellow.Sprint(text))

	logx.Info("%q requested the help menu", s.usernameOf(addr))
}

func (s *session) broadcastMessage(addr, content string) {
	username := s.usernameOf(addr)
	text := color.New(color.Bold).Sprintf("%s: %s", color.New(color.Underline).Sprint(username), content) + "\n"
	for _, c := range s.clients {
		s.sendToClient(c.Address, text)
	}

	logx.Info("message from %q sent to clients: %s", username, content)
}

func (s *session) handlePut(addr string, x, y int) {
	username := s.usernameOf(addr)
	turn := s.turnClient()

	switch {
	case turn == nil || addr != turn.Address:
		s.sendToClient(addr, red.Sprint("It's not your turn to play!\n"))
		logx.Error("%q used /put but it wasn't their turn", username)

	case !s.board.IsCoordValid(x, y):
		s.sendToClient(addr, red.Sprint("Invalid coord! See /help for more help.\n"))
		logx.Error("%q used /put with invalid coord (%d, %d)", username, x, y)

	case !s.board.IsCellEmpty(x, y):
		s.sendToClient(addr, red.Sprint("The cell is already filled. Try another one\n"))
		logx.Error("%q used /put with a filled coord (%d, %d)", username, x, y)

	default:
		s.board.Put(x, y)
		logx.Info("%q used /put with coord (%d, %d)", username, x, y)

		if s.checkEndOfGame() {
			s.reset()
			return
		}

		if s.status == playingSolo {
			cx, cy := s.board.RandomPlay()
			logx.Info("computer played random move /put (%d, %d)", cx, cy)
			if s.checkEndOfGame() {
				s.reset()
				return
			}
		}
		s.sendBoardAndTurn()
	}
}

func (s *session) sendBoardAndTurn() {
	text := blue.Sprint(s.boardAndTurnString())
	for _, c := range s.clients {
		s.sendToClient(c.Address, text)
	}
	logx.Info("board and turn sent to clients")
}

// checkEndOfGame reports the match result to clients and the broker if the
// board is finished, returning whether it was. Grounded on
// original_source/server.py's _check_end_of_game.
func (s *session) checkEndOfGame() bool {
	if !s.board.IsFinished() {
		return false
	}

	if s.board.IsDraw() {
		for _, c := range s.clients {
			s.sendToClient(c.Address, cyan.Sprint("Game finished. Result: Tie\n"))
		}
		s.send(protocol.Envelope{MessageType: protocol.EndGame, IsTie: true})
		logx.Info("game ended. Result: Tie")
		return true
	}

	winner := s.board.Winner()

	if s.status == playingSolo {
		won := winner == game.X
		outcome := "lost"
		var winnerAddr string
		if won {
			outcome = "won"
			winnerAddr = s.clients[0].Address
		}
		s.sendToClient(s.clients[0].Address, cyan.Sprintf("Game finished. You %s the game!\n", outcome))
		s.send(protocol.Envelope{MessageType: protocol.EndGame, IsTie: false, WinnerAddress: winnerAddr})

		winnerName := s.clients[0].Username
		if !won {
			winnerName = "Computer"
		}
		logx.Info("game ended. Winner: %s", winnerName)
		return true
	}

	winnerIdx := 0
	if winner != game.X {
		winnerIdx = 1
	}
	winnerClient := s.clients[winnerIdx]

	for _, c := range s.clients {
		if c.Address == winnerClient.Address {
			s.sendToClient(c.Address, cyan.Sprint("Game finished. You won the game!\n"))
		} else {
			s.sendToClient(c.Address, cyan.Sprint("Game finished. You lost the game!\n"))
		}
	}
	s.send(protocol.Envelope{MessageType: protocol.EndGame, IsTie: false, WinnerAddress: winnerClient.Address})

	logx.Info("game ended. Winner: %s", winnerClient.Username)
	return true
}
