// Package protocol implements the broker's wire format: a discriminated
// message union framed as balanced-brace JSON records on a TCP stream.
package protocol

import "encoding/json"

// Type discriminates the wire message variants (spec.md §4.1).
type Type int

const (
	ClientInit Type = iota
	ClientInitResponse
	ClientMessage
	ServerInit
	StartSolo
	StartDual
	ClientToServer
	ServerToClient
	EndGame
	ForceTerminate
	UpdateClient
)

// PlayerRef is the {username, address} descriptor sent to hosts when a
// match starts or a client reconnects.
type PlayerRef struct {
	Username string `json:"username"`
	Address  string `json:"address"`
}

// Envelope is the single wire shape: every field is optional and only the
// ones relevant to MessageType are populated. This mirrors
// original_source/messages.py, where every concrete message subclasses a
// common Message and serializes via `__dict__`.
type Envelope struct {
	MessageType Type `json:"message_type"`

	// ClientInit / reconnect identity
	Username string `json:"username,omitempty"`

	// ClientInitResponse
	IsValid bool   `json:"is_valid,omitempty"`
	Message string `json:"message,omitempty"`

	// ClientMessage / ClientToServer / ServerToClient text payloads
	Text string `json:"text,omitempty"`

	// StartSolo / UpdateClient
	Client *PlayerRef `json:"client,omitempty"`

	// StartDual
	Clients []PlayerRef `json:"clients,omitempty"`

	// ClientToServer / ServerToClient routing key
	ClientAddress string `json:"client_address,omitempty"`

	// EndGame
	IsTie         bool   `json:"is_tie,omitempty"`
	WinnerAddress string `json:"winner_address,omitempty"`
}

// Encode serializes an envelope to its wire bytes (a single balanced-brace
// JSON record, no trailing newline needed since framing is brace-counted).
func Encode(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses one frame's bytes into an Envelope.
func Decode(frame []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(frame, &e)
	return e, err
}
