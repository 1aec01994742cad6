package feed

import (
	"time"

	"github.com/npezzotti/go-classroom/internal/notify"
	"github.com/npezzotti/go-classroom/internal/types"
)

const (
	EventHello        = "hello"
	EventNotification = "notification"
)

type Event struct {
	Type         string               `json:"type"`
	Timestamp    time.Time            `json:"timestamp"`
	Notification *notify.Notification `json:"notification,omitempty"`
}

func HelloEvent() *Event {
	return &Event{
		Type:      EventHello,
		Timestamp: types.Now(),
	}
}

func NotificationEvent(n notify.Notification) *Event {
	return &Event{
		Type:         EventNotification,
		Timestamp:    types.Now(),
		Notification: &n,
	}
}
