// Package queue carries arrival lifecycle events between services:
// session status changes, expiry notices, billing events and merchant
// notifications all fan out over subjects defined by their producers.
package queue

// MessageQueue is the publish/subscribe surface the services depend on.
// Subjects are plain strings; payloads are JSON-encoded by callers.
type MessageQueue interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte) error) error
	Close() error
}
