// cmd/client is the human player's terminal front-end: it negotiates a
// username with the broker, then runs a receive loop and a send loop
// concurrently for the life of the connection, exactly as
// original_source/client.py does with its two threads.
//
// Environment variables recognized:
//
//	BROKER_ADDR   host:port of the broker      [default: HOST:PORT, then localhost:7300]
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/kodeclan/tictactoe-broker/internal/config"
	"github.com/kodeclan/tictactoe-broker/internal/protocol"
)

func main() {
	config.Load()
	peer := config.LoadPeer()

	username := nonEmptyUsernameFromInput()

	conn, err := net.Dial("tcp", peer.BrokerAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not connect to broker at %s: %v\n", peer.BrokerAddr, err)
		os.Exit(1)
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)

	for {
		if err := protocol.WriteEnvelope(conn, protocol.Envelope{MessageType: protocol.ClientInit, Username: username}); err != nil {
			fmt.Fprintf(os.Stderr, "connection lost: %v\n", err)
			os.Exit(1)
		}

		env, err := protocol.ReadEnvelope(reader)
		if err != nil {
			fmt.Fprintf(os.Stderr, "connection lost: %v\n", err)
			os.Exit(1)
		}
		if env.IsValid {
			break
		}
		fmt.Print(env.Message)
		username = nonEmptyUsernameFromInput()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go receiveLoop(reader, &wg)
	go sendLoop(conn, &wg)
	wg.Wait()

	fmt.Println("Good bye!")
}

func nonEmptyUsernameFromInput() string {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("Username: ")
		if !scanner.Scan() {
			os.Exit(1)
		}
		username := strings.TrimSpace(scanner.Text())
		if username != "" {
			return username
		}
	}
}

// receiveLoop prints whatever bytes arrive from the broker. Post
// negotiation the broker never frames client-bound text again — see
// internal/broker's Client.sendText — so this just mirrors the socket to
// stdout.
func receiveLoop(reader *bufio.Reader, wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, 1024)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			os.Stdout.Write(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

func sendLoop(conn net.Conn, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "/exit" {
			conn.Close()
			return
		}
		if err := protocol.WriteEnvelope(conn, protocol.Envelope{MessageType: protocol.ClientMessage, Text: line}); err != nil {
			conn.Close()
			return
		}
	}
}
