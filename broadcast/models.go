package broadcast

import "time"

// Channel is the delivery medium for an operator alert.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// Priority orders alerts at the gateway.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Status tracks an alert through dispatch.
type Status string

const (
	StatusQueued Status = "queued"
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Alert is one operator broadcast to citizens of a zone.
type Alert struct {
	ID        string
	Title     string
	Message   string
	Channel   Channel
	Priority  Priority
	Zone      string
	Status    Status
	SentAt    *time.Time
	CreatedAt time.Time
}

// TopicSent is published when an alert is handed to the gateway.
const TopicSent = "broadcast.sent"
