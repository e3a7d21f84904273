package domain

import "context"

type Kind int

const (
	Binary Kind = iota + 1
	Text
)

func (k Kind) String() string {
	switch k {
	case Binary:
		return "binary"
	case Text:
		return "text"
	default:
		return "unknown"
	}
}

// Message is one inbound or outbound frame. Exactly one kind per frame.
type Message struct {
	Kind Kind
	Data []byte
}

func BinaryMessage(data []byte) Message { return Message{Kind: Binary, Data: data} }
func TextMessage(text string) Message   { return Message{Kind: Text, Data: []byte(text)} }

func (m Message) Text() string { return string(m.Data) }

const GazeEventType = "gaze_event"

type GazeEvent struct {
	Type       string `json:"type"`
	Direction  string `json:"direction"`
	ClientID   string `json:"clientId,omitempty"`
	ReceivedAt int64  `json:"receivedAt,omitempty"`
}

type State int32

const (
	StateConnecting State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type Connection interface {
	ID() string
	RemoteAddr() string
	Send(msg Message) error
	Close() error
}

type Broadcaster interface {
	Broadcast(sender Connection, msg Message) int
}

type Registry interface {
	Register(conn Connection) bool
	Deregister(conn Connection) bool
	Len() int
}

type MessageHandler interface {
	Handle(ctx context.Context, conn Connection, msg Message)
}
