package archive

import "time"

const recordVersion = "1.0"

// TranscriptRecord is the document written to S3 when a user clears their chat.
type TranscriptRecord struct {
	Version    string    `json:"version"`
	UserHash   string    `json:"user_hash"` // sha256 of the user id
	ArchivedAt time.Time `json:"archived_at"`
	TurnCount  int       `json:"turn_count"`
	Messages   []Message `json:"messages"`
}

// Message is a single archived turn with PII scrubbed.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	UserHash   string `json:"user_hash"`
	S3Key      string `json:"s3_key"`
	ArchivedAt string `json:"archived_at"`
	TurnCount  int    `json:"turn_count"`
}
