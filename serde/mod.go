// Package serde defines the primitives to serialize and deserialize (serde)
// messages.
//
// Serde is a separation of the data model and its serialized form. A message
// implements the serialization through the context which provides the format
// engine. The engines are registered for each format so that a message can be
// serialized in any of the supported formats without knowing them.
package serde

// Format is the identifier of a format implementation.
type Format string

const (
	// FormatJSON is the identifier for JSON formats.
	FormatJSON Format = "JSON"
)

// Message is the interface that a message must implement.
type Message interface {
	// Serialize returns the serialized form of the message.
	Serialize(ctx Context) ([]byte, error)
}

// Factory is the interface that a message factory must implement.
type Factory interface {
	// Deserialize returns the message from the serialized form.
	Deserialize(ctx Context, data []byte) (Message, error)
}

// FormatEngine is the interface that a format implementation must implement.
type FormatEngine interface {
	// Encode returns the bytes of the message serialized in the format.
	Encode(ctx Context, message Message) ([]byte, error)

	// Decode populates the message from the bytes in the format.
	Decode(ctx Context, data []byte) (Message, error)
}
