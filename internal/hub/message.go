// Package hub provides a thread-safe websocket broadcast hub
// using the channel-based fan-out pattern. The engine publishes one
// snapshot per frame; every connected dashboard receives it.
package hub

// Message is one JSON payload to be broadcast to clients. Snapshots are the
// only traffic, so there is no message type tag; everything goes out as a
// websocket text frame.
type Message struct {
	Data []byte
}

// NewJSONMessage creates a message from pre-encoded JSON bytes
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}
