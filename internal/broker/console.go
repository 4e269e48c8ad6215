package broker

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// runConsole is the operator stdin loop (spec.md §4.8). It only reads
// broker state under the mutex; it never mutates matchmaker state.
// Grounded on original_source/webserver.py's handle_console_commands,
// with rich.table replaced by github.com/olekukonko/tablewriter.
func (b *Broker) runConsole() {
	green.Println("Broker initialized successfully. See /help for list of commands")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch scanner.Text() {
		case "/users":
			b.consoleUsers()
		case "/qstat":
			b.consoleQstat()
		case "/scoreboard":
			b.consoleScoreboard()
		case "/help":
			fmt.Print(consoleHelpText())
		default:
			red.Println("Invalid command. See /help for the list of commands.")
		}
	}
}

func (b *Broker) consoleUsers() {
	b.mu.Lock()
	n := len(b.clients)
	b.mu.Unlock()
	magenta.Printf("Users online: %d\n", n)
}

// consoleQstat dumps every queue and pool in a single table, matching
// original_source's _print_queues_stat.
func (b *Broker) consoleQstat() {
	b.mu.Lock()
	defer b.mu.Unlock()

	var soloWaiters, dualWaiters, waitingOpponent, playingSolo, playingDual []*Client
	for _, c := range b.clients {
		switch c.Status {
		case WaitingForSolo:
			soloWaiters = append(soloWaiters, c)
		case WaitingForDual:
			dualWaiters = append(dualWaiters, c)
		case WaitingForOpponent:
			waitingOpponent = append(waitingOpponent, c)
		case PlayingSolo:
			playingSolo = append(playingSolo, c)
		case PlayingDual:
			playingDual = append(playingDual, c)
		}
	}

	var hostingSolo, hostingDual []*Host
	for _, h := range b.allHosts {
		if len(h.Clients) > 0 {
			switch h.Clients[0].Status {
			case PlayingSolo:
				hostingSolo = append(hostingSolo, h)
			case PlayingDual:
				hostingDual = append(hostingDual, h)
			}
		}
	}

	var waitingHost string
	if b.waitingDualHost != nil {
		waitingHost = fmt.Sprintf("Server#%d", b.waitingDualHost.ID)
	} else {
		waitingHost = "none"
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Queue / Pool", "Contents"})
	table.Append([]string{"Clients", fmtClients(allClients(b.clients))})
	table.Append([]string{"Waiting for solo", fmtClients(soloWaiters)})
	table.Append([]string{"Waiting for dual", fmtClients(dualWaiters)})
	table.Append([]string{"Waiting for opponent", fmtClients(waitingOpponent)})
	table.Append([]string{"Playing solo", fmtClients(playingSolo)})
	table.Append([]string{"Playing dual", fmtClients(playingDual)})
	table.Append([]string{"Hosts", fmtHosts(b.allHosts)})
	table.Append([]string{"Free hosts", fmtHosts(b.freeHosts)})
	table.Append([]string{"Waiting-dual host", waitingHost})
	table.Append([]string{"Hosting solo", fmtHosts(hostingSolo)})
	table.Append([]string{"Hosting dual", fmtHosts(hostingDual)})
	table.Render()
}

// consoleScoreboard prints a table sorted by wins desc, ties desc, losses
// asc, username asc (spec.md §4.8).
func (b *Broker) consoleScoreboard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clients := allClients(b.clients)

	sort.Slice(clients, func(i, j int) bool {
		a, c := clients[i], clients[j]
		if a.Wins != c.Wins {
			return a.Wins > c.Wins
		}
		if a.Ties != c.Ties {
			return a.Ties > c.Ties
		}
		if a.Losses != c.Losses {
			return a.Losses < c.Losses
		}
		return a.Username < c.Username
	})

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Rank", "Username", "Wins", "Ties", "Losses"})
	for i, c := range clients {
		table.Append([]string{
			strconv.Itoa(i + 1),
			c.Username,
			strconv.Itoa(c.Wins),
			strconv.Itoa(c.Ties),
			strconv.Itoa(c.Losses),
		})
	}
	table.Render()
}

func allClients(m map[string]*Client) []*Client {
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}
