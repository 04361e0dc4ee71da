package domain

import (
	"context"
	"time"
)

// Notification says new transformed reports were published for a UTC day.
// Commit acknowledges the underlying message and may be nil.
type Notification struct {
	Date      time.Time // midnight UTC; zero when the message carried no usable time
	ReportID  string
	EventType string
	Topic     string
	Partition int
	Offset    int64
	Commit    func(ctx context.Context) error
}

// Dated reports whether the notification names a report day.
func (n Notification) Dated() bool { return !n.Date.IsZero() }
