package models

import "fmt"

// InvalidMentionError is returned when a mention has no usable name
type InvalidMentionError struct {
	Reason string
}

func (e *InvalidMentionError) Error() string {
	return fmt.Sprintf("invalid mention: %s", e.Reason)
}

// EmbeddingServiceError wraps a failure of the external embedding service
type EmbeddingServiceError struct {
	Err error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding service error: %v", e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error {
	return e.Err
}

// InvalidTransitionError is returned when a pending link is moved out of a non-pending state
type InvalidTransitionError struct {
	ID   string
	From PendingLinkStatus
	To   PendingLinkStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for pending link %s: %s -> %s", e.ID, e.From, e.To)
}
