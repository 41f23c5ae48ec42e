package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType tags a ChatMessage. The set is closed.
type MessageType string

const (
	// System notices are emitted by the server only.
	System MessageType = "System"
	// User carries chat text.
	User MessageType = "User"
	// Init is unicast once to a newly admitted connection.
	Init MessageType = "Init"
	// File announces a stored file by metadata, or uploads one inline.
	File MessageType = "File"
)

// ErrMalformed reports a frame that is not a well-formed ChatMessage.
var ErrMalformed = errors.New("malformed chat message")

// Valid reports whether t is one of the four known tags.
func (t MessageType) Valid() bool {
	switch t {
	case System, User, Init, File:
		return true
	}
	return false
}

// ChatMessage is the unit exchanged over the websocket in both directions.
// Optional fields are nil when absent and encode as null.
type ChatMessage struct {
	MessageType    MessageType `json:"message_type"`
	Content        string      `json:"content"`
	SenderUsername *string     `json:"sender_username"`
	Filename       *string     `json:"filename"`
	FileID         *string     `json:"file_id"`
}

// wireMessage mirrors ChatMessage with pointers on the required fields so
// that a missing or null value can be told apart from an empty one.
type wireMessage struct {
	MessageType    *MessageType `json:"message_type"`
	Content        *string      `json:"content"`
	SenderUsername *string      `json:"sender_username"`
	Filename       *string      `json:"filename"`
	FileID         *string      `json:"file_id"`
}

// Decode parses a single frame. It returns ErrMalformed (wrapped) when the
// frame is not a JSON object, when message_type is missing or unknown, or
// when content is missing or null.
func Decode(raw []byte) (ChatMessage, error) {
	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return ChatMessage{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.MessageType == nil {
		return ChatMessage{}, fmt.Errorf("%w: missing message_type", ErrMalformed)
	}
	if !w.MessageType.Valid() {
		return ChatMessage{}, fmt.Errorf("%w: unknown message_type %q", ErrMalformed, string(*w.MessageType))
	}
	if w.Content == nil {
		return ChatMessage{}, fmt.Errorf("%w: missing content", ErrMalformed)
	}

	return ChatMessage{
		MessageType:    *w.MessageType,
		Content:        *w.Content,
		SenderUsername: w.SenderUsername,
		Filename:       w.Filename,
		FileID:         w.FileID,
	}, nil
}

// Encode serializes msg. All five fields are always present.
func Encode(msg ChatMessage) ([]byte, error) {
	if !msg.MessageType.Valid() {
		return nil, fmt.Errorf("encode: unknown message_type %q", string(msg.MessageType))
	}
	return json.Marshal(msg)
}

// ParseFrame decodes an inbound text frame for a connection owned by
// username. A frame that does not decode becomes a User message whose content
// is the raw text verbatim; the second return value reports that fallback.
func ParseFrame(raw []byte, username string) (ChatMessage, bool) {
	msg, err := Decode(raw)
	if err != nil {
		return NewUser(string(raw), username), true
	}
	return msg, false
}

// Text returns a pointer to s, for the optional fields.
func Text(s string) *string {
	return &s
}

// NewInit builds the message that tells a new connection who it is.
func NewInit(username string) ChatMessage {
	return ChatMessage{MessageType: Init, SenderUsername: Text(username)}
}

// NewSystem builds a server notice.
func NewSystem(content string) ChatMessage {
	return ChatMessage{MessageType: System, Content: content}
}

// NewUser builds a chat text message from sender.
func NewUser(content, sender string) ChatMessage {
	return ChatMessage{MessageType: User, Content: content, SenderUsername: Text(sender)}
}

// NewFileNotice builds the metadata-only announcement of a stored file.
// It never carries content.
func NewFileNotice(sender, filename, fileID string) ChatMessage {
	return ChatMessage{
		MessageType:    File,
		SenderUsername: Text(sender),
		Filename:       Text(filename),
		FileID:         Text(fileID),
	}
}
