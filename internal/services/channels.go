package services

import (
	"context"

	"github.com/teamtide/workforce-backend/internal/models"
)

// SendStatus is the typed outcome of one adapter send.
type SendStatus string

const (
	SendSent    SendStatus = "SENT"
	SendSkipped SendStatus = "SKIPPED"
	SendFailed  SendStatus = "FAILED"
)

// SendResult carries the outcome and, for failures, the provider error.
type SendResult struct {
	Status SendStatus
	Err    error
}

// AdapterState describes whether an adapter can actually deliver. Call sites
// branch on this single value instead of re-deriving enabled/configured flags.
type AdapterState string

const (
	StateDisabled      AdapterState = "DISABLED"
	StateMisconfigured AdapterState = "MISCONFIGURED"
	StateReady         AdapterState = "READY"
)

// Message is the channel-independent content of one outbound send.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// ChannelAdapter is the uniform boundary to an outbound provider. Adapters own
// provider selection, target validation and the console fallback when the
// provider is unconfigured; they never panic and never return a result the
// caller has to re-interpret.
type ChannelAdapter interface {
	Channel() models.Channel
	State() AdapterState
	Send(ctx context.Context, target string, message Message) SendResult
}
