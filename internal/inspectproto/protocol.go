// Package inspectproto defines the wire messages of the read-only inspector
// feed. The feed surfaces id-subsystem activity to local tooling; it carries
// no writes and takes no part in id assignment.
package inspectproto

import "idprop.dev/internal/idprop"

const Version = "0.1"

// HTTP response for GET /v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string           `json:"protocol_version"`
	DocumentID      string           `json:"document_id"`
	Counts          map[string]int   `json:"counts"`
	Counters        map[string]int64 `json:"counters"`
}

// Client -> Server. First message on the feed connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// Server -> Client. One per audit event.
type EventMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Event           idprop.Event `json:"event"`
}

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeEvent     = "EVENT"
)
