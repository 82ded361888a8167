package mqtt

import (
	"github.com/sweeney/evohome-monitor/internal/logic"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// Overrides contains all override start events that were published.
	Overrides []logic.OverrideEvent

	// Cleared contains all override cleared events that were published.
	Cleared []logic.ClearedOverrideEvent

	// Payloads contains the JSON payloads for override and cleared events.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// PublishError, if set, will be returned by the publish methods.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishOverride records the override event.
func (f *FakePublisher) PublishOverride(event logic.OverrideEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Overrides = append(f.Overrides, event)

	payload, err := FormatOverridePayload(event)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishCleared records the cleared event.
func (f *FakePublisher) PublishCleared(event logic.ClearedOverrideEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Cleared = append(f.Cleared, event)

	payload, err := FormatClearedPayload(event)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.SystemEvents = append(f.SystemEvents, event)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.Overrides = nil
	f.Cleared = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.Closed = false
	f.PublishError = nil
	f.Connected = false
}
