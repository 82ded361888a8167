package notify

import "context"

// FakeSender records sent messages for test assertions.
type FakeSender struct {
	// Messages contains every message passed to Send.
	Messages []Message

	// SendError, if set, will be returned by Send.
	SendError error
}

// NewFakeSender creates a FakeSender for testing.
func NewFakeSender() *FakeSender {
	return &FakeSender{}
}

// Send records the message.
func (f *FakeSender) Send(_ context.Context, msg Message) error {
	if f.SendError != nil {
		return f.SendError
	}
	f.Messages = append(f.Messages, msg)
	return nil
}

// Reset clears recorded messages.
func (f *FakeSender) Reset() {
	f.Messages = nil
	f.SendError = nil
}
