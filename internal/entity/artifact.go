package entity

import "time"

type ArtifactKind string

const (
	ArtifactImage ArtifactKind = "image"
	ArtifactVideo ArtifactKind = "video"
)

// CapturedArtifact is a still image or recorded clip at the moment of
// shutter-press or recording-stop. Immutable once created.
type CapturedArtifact struct {
	Kind       ArtifactKind
	Bytes      []byte
	MimeType   string
	CapturedAt int64 // epoch ms
	// Date is the client's display timestamp, passed through to the
	// envelope verbatim. Derived from CapturedAt when empty.
	Date   string
	UserID string
}

// TransportEnvelope is the wire unit published to the broker, derived 1:1
// from a CapturedArtifact. Field names are pinned by the broker contract.
type TransportEnvelope struct {
	UserID string `json:"userId"`
	Image  string `json:"image,omitempty"`
	Video  string `json:"video,omitempty"`
	Date   string `json:"date"`
	Time   int64  `json:"time"`
	Type   string `json:"type"`
}

// StoredMediaRef is advisory. Its absence never blocks publishing.
type StoredMediaRef struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Kind      string    `json:"kind" db:"kind"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// PublishAck reports the outcome of one Send through the transport bridge.
type PublishAck struct {
	Topic     string
	Key       string
	StoredRef *StoredMediaRef // nil when the storage side effect failed
}
