package files

import (
	"encoding/base64"
	"log/slog"

	"github.com/oleksShevch/websockets-chat/internal/metrics"
	"github.com/oleksShevch/websockets-chat/internal/protocol"
)

// Drop reasons reported to metrics.
const (
	dropMissingField = "missing_field"
	dropDecode       = "decode"
	dropFilename     = "filename"
	dropWrite        = "write"
)

// Broadcaster fans a message out to every live connection.
type Broadcaster interface {
	Broadcast(msg protocol.ChatMessage)
}

// Relay turns inline File messages into stored files plus a metadata-only
// announcement.
type Relay struct {
	store       *Store
	broadcaster Broadcaster
	log         *slog.Logger
	metrics     *metrics.Collector
}

// NewRelay wires a relay to its store and broadcaster. m may be nil.
func NewRelay(store *Store, broadcaster Broadcaster, log *slog.Logger, m *metrics.Collector) *Relay {
	return &Relay{store: store, broadcaster: broadcaster, log: log, metrics: m}
}

// Handle stores the base64 payload of msg and announces it. Messages missing
// a filename or sender, with an undecodable payload, or that fail to persist
// are dropped without feedback to the sender.
func (r *Relay) Handle(msg protocol.ChatMessage) {
	if msg.Filename == nil || msg.SenderUsername == nil {
		r.log.Warn("dropping file message with missing fields",
			"has_filename", msg.Filename != nil, "has_sender", msg.SenderUsername != nil)
		r.metrics.FileDropped(dropMissingField)
		return
	}
	filename, sender := *msg.Filename, *msg.SenderUsername

	data, err := base64.StdEncoding.DecodeString(msg.Content)
	if err != nil {
		r.log.Warn("failed to decode file content", "filename", filename, "sender", sender, "error", err)
		r.metrics.FileDropped(dropDecode)
		return
	}

	if err := ValidateFilename(filename); err != nil {
		r.log.Warn("dropping file message", "sender", sender, "error", err)
		r.metrics.FileDropped(dropFilename)
		return
	}

	stored, err := r.store.Save(filename, data)
	if err != nil {
		r.log.Error("failed to store file", "filename", filename, "sender", sender, "error", err)
		r.metrics.FileDropped(dropWrite)
		return
	}

	r.log.Info("file stored", "file_id", stored.ID, "filename", filename, "sender", sender, "bytes", len(data))
	r.metrics.FileStored()
	r.broadcaster.Broadcast(protocol.NewFileNotice(sender, filename, stored.ID))
}
