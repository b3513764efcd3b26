package domain

import "time"

// ProgressEventType identifies a stage of the generation pipeline as it
// streams to the caller.
type ProgressEventType string

// Progress event types, in roughly the order they occur. Section events
// arrive in actual completion order, which varies between runs.
const (
	EventStarted          ProgressEventType = "started"
	EventTitle            ProgressEventType = "title"
	EventRetrieval        ProgressEventType = "retrieval"
	EventAbstract         ProgressEventType = "abstract"
	EventSectionStarted   ProgressEventType = "section_started"
	EventSectionCompleted ProgressEventType = "section_completed"
	EventReferences       ProgressEventType = "references"
	EventFigures          ProgressEventType = "figures"
	EventCompleted        ProgressEventType = "completed"
	EventFailed           ProgressEventType = "failed"
)

// ProgressEvent is a single pipeline progress notification. Terminal
// events (completed, failed) are always the last event on a stream.
type ProgressEvent struct {
	Type      ProgressEventType `json:"type"`
	PaperID   string            `json:"paper_id"`
	Section   string            `json:"section,omitempty"`
	Message   string            `json:"message,omitempty"`
	DocCount  int               `json:"doc_count,omitempty"`
	Failed    bool              `json:"failed,omitempty"`
	Paper     *Paper            `json:"paper,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// IsTerminal reports whether the event ends the stream.
func (e ProgressEvent) IsTerminal() bool {
	return e.Type == EventCompleted || e.Type == EventFailed
}
