package commons

import (
	"github.com/burntcarrot/treepad/crdt"
	"github.com/google/uuid"
)

// Message represents the envelope replicas exchange out of band.
type Message struct {
	// Type represents the message type.
	Type MessageType `json:"type"`

	// ID represents the UUID of the replica that produced the message.
	ID uuid.UUID `json:"ID"`

	// Snapshot represents the replica's full document state. Set for snapshot messages.
	Snapshot *crdt.Snapshot `json:"snapshot,omitempty"`

	// Operations represents index-addressed edits. Set for operations messages.
	Operations []Operation `json:"operations,omitempty"`
}

// MessageType represents the type of the message.
type MessageType string

// Currently, treepad supports 2 message types:
// - snapshot (full state, merged with crdt.Document.Merge)
// - operations (an edit script, replayed with crdt.Patch)

const (
	SnapshotMessage   MessageType = "snapshot"
	OperationsMessage MessageType = "operations"
)

// NewSnapshotMessage wraps the state of doc for the replica id.
func NewSnapshotMessage(id uuid.UUID, doc *crdt.Document) Message {
	snapshot := doc.Snapshot()
	return Message{Type: SnapshotMessage, ID: id, Snapshot: &snapshot}
}
