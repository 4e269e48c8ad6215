package broker

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	green   = color.New(color.FgGreen)
	cyan    = color.New(color.FgCyan)
	yellow  = color.New(color.FgYellow)
	red     = color.New(color.FgRed)
	magenta = color.New(color.FgMagenta)
)

const menuBoxText = "" +
	"┏━ Menu ━━━━━━━━━━━━━━━━━━━━━━━━━━━┓\n" +
	"┣━━━  /solo : Play with computer   ┃\n" +
	"┣━━━  /dual : Play with opponent   ┃\n" +
	"┗━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━┛\n"

// menuBanner matches original_source/webserver.py's _get_client_menu.
func menuBanner() string {
	return yellow.Sprint(menuBoxText)
}

func connectedBanner() string {
	return green.Sprint("Successfully connected to the WebServer.") + "\n"
}

func reconnectedBanner() string {
	return green.Sprint("Successfully connected to the WebServer.") + "\n"
}

func usernameAcceptedMessage() string {
	return green.Sprint("Username accepted by the webserver")
}

func usernameTakenMessage() string {
	return red.Sprint("Username already exists. Try another one") + "\n"
}

func usersOnlineLine(n int) string {
	return magenta.Sprintf("Users online: %d", n) + "\n"
}

func invalidInputLine() string {
	return red.Sprint("Invalid input\n") + menuBanner()
}

func waitingASAPLine() string {
	return cyan.Sprint("You will be assigned to a server ASAP. Please wait... (/exchange to change the playing mode)\n")
}

func assignedSoloLine() string {
	return green.Sprint("You have been assigned to a server. Enjoy!") + "\n"
}

func assignedWaitingDualLine() string {
	return cyan.Sprint("You have been assigned to a server. Waiting for opponent...\n")
}

func opponentFoundLine() string {
	return cyan.Sprint("Opponent has been found. Your game starts now!\n")
}

func opponentLeftLine() string {
	return cyan.Sprint("Your opponent left the game.\n")
}

func matchAbortedLine() string {
	return red.Sprint("The host hosting your match disconnected. You have been returned to the menu.\n")
}

func helpBoxText() string {
	return "" +
		"┏━━━━━━━━━━━━━ Help Menu ━━━━━━━━━━━━━━┓\n" +
		"┣━━ /users : Number of online users    ┃\n" +
		"┣━━ /qstat : Stats about queues        ┃\n" +
		"┣━━ /scoreboard : Scoreboard           ┃\n" +
		"┗━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━┛\n"
}

func consoleHelpText() string {
	return yellow.Sprint(helpBoxText())
}

func fmtClients(cs []*Client) string {
	if len(cs) == 0 {
		return "[]"
	}
	s := "["
	for i, c := range cs {
		if i > 0 {
			s += " "
		}
		s += c.Username
	}
	return s + "]"
}

func fmtHosts(hs []*Host) string {
	if len(hs) == 0 {
		return "[]"
	}
	s := "["
	for i, h := range hs {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("Server#%d", h.ID)
	}
	return s + "]"
}
