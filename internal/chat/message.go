package chat

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageType classifies a transcript entry for rendering.
type MessageType string

const (
	TypeUser   MessageType = "user"
	TypeBot    MessageType = "bot"
	TypeSystem MessageType = "system"
	TypeError  MessageType = "error"
)

// Message is one transcript entry. The booking fields are only set on bot
// replies to a chat send.
type Message struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`

	IsBookingFlow     *bool  `json:"isBookingFlow,omitempty"`
	IsBookingComplete bool   `json:"isBookingComplete,omitempty"`
	AppointmentID     string `json:"appointmentId,omitempty"`
}

func newMessage(now time.Time, content string, kind MessageType) Message {
	return Message{
		ID:        newMessageID(now),
		Content:   content,
		Type:      kind,
		Timestamp: now.UTC(),
	}
}

func newMessageID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return "msg_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix
}
