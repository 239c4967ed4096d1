package events

import "time"

// Event types
const (
	CustomerCreated = "customer.created"
	CustomerDeleted = "customer.deleted"
)

// DefaultCustomerStream is the stream the customer domain publishes to.
const DefaultCustomerStream = "customer.events"

// Event is the envelope every stream message carries under the "event" field.
type Event struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Data      CustomerEvent `json:"data"`
}

// CustomerEvent is the payload of both customer lifecycle events. Only the
// customer ID matters to this service; the profile fields ride along.
type CustomerEvent struct {
	CustomerID int64  `json:"customerId"`
	Name       string `json:"name"`
	LegalID    string `json:"legalId"`
	Type       string `json:"type"`
	Address    string `json:"address"`
}
