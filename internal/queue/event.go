// Package queue defines message payloads exchanged over the message broker.
package queue

// ProgramPublishedQueue is the durable queue carrying ProgramPublishedEvent.
const ProgramPublishedQueue = "program.published"

// ProgramPublishedEvent is published after a program has been persisted
// and the administrative email was sent.
type ProgramPublishedEvent struct {
    EventID     string `json:"event_id"`
    ProgramID   uint64 `json:"program_id"`
    Title       string `json:"title"`
    Slug        string `json:"slug"`
    Category    string `json:"category"`
    OwnerID     uint64 `json:"owner_id,omitempty"`
    PublishedAt string `json:"published_at"`
}
