package broker

import (
	"bufio"
	"net"

	"github.com/kodeclan/tictactoe-broker/internal/logx"
	"github.com/kodeclan/tictactoe-broker/internal/protocol"
)

// admitReconnect implements spec.md §4.6. Called with b.mu held, for a
// client record known to be in the TIMEOUT grace window. Grounded on
// original_source/webserver.py's _reconnect_client.
func (b *Broker) admitReconnect(c *Client, conn net.Conn, reader *bufio.Reader, addr string) *Client {
	logx.Info("client %q reconnected [old address %s, new address %s]", c.Username, c.Address, addr)

	c.Conn = conn
	c.reader = reader
	c.OnlineStatus = Online

	if c.cancelGrace != nil {
		close(c.cancelGrace)
		c.cancelGrace = nil
	}

	delete(b.clientsByAddr, c.Address)
	c.Address = addr
	b.clientsByAddr[addr] = c

	_ = c.sendText(reconnectedBanner())

	if c.Status == PlayingSolo || c.Status == PlayingDual {
		_ = c.Host.send(protocol.Envelope{
			MessageType: protocol.UpdateClient,
			Client:      &protocol.PlayerRef{Username: c.Username, Address: addr},
		})
	}

	return c
}
