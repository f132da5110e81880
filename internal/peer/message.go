package peer

import "github.com/vmihailenco/msgpack/v5"

// Data channel message types.
const (
	MessageTypeGreeting = "greeting"
	MessageTypeChat     = "chat"
	MessageTypeBye      = "bye"
)

// Message is the msgpack frame exchanged on the data channel.
type Message struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// GreetingPayload is the first frame each side sends once the channel opens.
type GreetingPayload struct {
	UserID  string `msgpack:"userId"`
	Name    string `msgpack:"name"`
	Client  string `msgpack:"client"`
	Version string `msgpack:"version"`
}

type ChatPayload struct {
	Text   string `msgpack:"text"`
	SentAt int64  `msgpack:"sentAt"`
}

// DecodePayload decodes the message payload into the provided struct
func (m Message) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

// NewMessage creates a new Message with the given type and payload
func NewMessage(t string, payload any) (Message, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: t, Payload: b}, nil
}

// Encode marshals m for the wire.
func (m Message) Encode() ([]byte, error) {
	return msgpack.Marshal(m)
}

// ParseMessage decodes a data channel frame.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return nil, NewError("parse message", err)
	}
	return &msg, nil
}
