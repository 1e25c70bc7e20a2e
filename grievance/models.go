package grievance

import "time"

// Channel identifies the medium a grievance was reported through.
type Channel string

const (
	ChannelVoice    Channel = "voice"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelWeb      Channel = "web"
)

// Category is the closed set of civic issue types.
type Category string

const (
	CategoryGarbage     Category = "garbage"
	CategoryWater       Category = "water"
	CategoryStreetlight Category = "streetlight"
	CategoryRoad        Category = "road"
	CategoryPestControl Category = "pest-control"
	CategorySewage      Category = "sewage"
	CategoryTrees       Category = "trees"
	CategoryOther       Category = "other"
)

// Priority orders grievances for triage. Defaults to medium at intake.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Status is the lifecycle state. Transitions are owned by the triage service;
// nothing else writes this column.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusEscalated  Status = "escalated"
)

// Sentiment is a derived label produced by the classification provider.
type Sentiment string

const (
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentPositive Sentiment = "positive"
)

// Zones are the twelve municipal administrative zones. The "all" sentinel is
// a query-time value and is never stored on a record.
var Zones = []string{
	"central", "city", "civil-lines", "karol-bagh", "keshav-puram",
	"najafgarh", "narela", "rohini", "shahdara-north", "shahdara-south",
	"south", "west",
}

// ZoneAll matches every zone when used as a query filter.
const ZoneAll = "all"

// Grievance mirrors the complaints table columns touched by the services.
type Grievance struct {
	ID              string
	ComplaintNumber string
	Channel         Channel
	Category        Category
	Zone            string
	Location        string
	Latitude        *float64
	Longitude       *float64
	Title           string
	Description     string
	AISummary       *string
	Sentiment       *Sentiment
	Priority        Priority
	Status          Status
	AssignedTo      *string
	CitizenName     *string
	CitizenPhone    *string
	SLADeadline     time.Time
	CreatedAt       time.Time
	ResolvedAt      *time.Time
}

// CallRecord holds voice-channel metadata linked 1:1 to a grievance.
type CallRecord struct {
	ID              string
	GrievanceID     string
	ExternalCallID  string
	DurationSeconds int
	Transcript      string
	Summary         string
	RecordingURL    string
	CreatedAt       time.Time
}

// TimelineEvent captures an immutable lifecycle event for a grievance.
type TimelineEvent struct {
	ID          int64
	GrievanceID string
	Type        string
	ActorID     *string
	Payload     []byte
	CreatedAt   time.Time
}

// Timeline event types.
const (
	EventCreated       = "GRIEVANCE_CREATED"
	EventStatusChanged = "STATUS_CHANGED"
	EventReclassified  = "RECLASSIFIED"
	EventEscalated     = "SLA_ESCALATED"
)

// Outbox topics published after each commit.
const (
	TopicCreated       = "grievance.created"
	TopicStatusChanged = "grievance.status_changed"
	TopicEscalated     = "grievance.escalated"
	TopicReclassified  = "grievance.reclassified"
	TopicCallRecorded  = "call.recorded"
)

// ValidChannel reports whether c is a known intake channel.
func ValidChannel(c Channel) bool {
	switch c {
	case ChannelVoice, ChannelSMS, ChannelWhatsApp, ChannelWeb:
		return true
	default:
		return false
	}
}

// ValidCategory reports whether c is in the closed category set.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryGarbage, CategoryWater, CategoryStreetlight, CategoryRoad,
		CategoryPestControl, CategorySewage, CategoryTrees, CategoryOther:
		return true
	default:
		return false
	}
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusEscalated:
		return true
	default:
		return false
	}
}

// ValidZone reports whether z names a stored zone. The empty string is
// allowed: a grievance whose zone could not be determined carries none.
func ValidZone(z string) bool {
	if z == "" {
		return true
	}
	for _, known := range Zones {
		if z == known {
			return true
		}
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusResolved
}
