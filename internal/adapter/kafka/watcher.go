package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-dashboard/internal/config"
	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Watcher consumes the ETL sink topic and turns each transformed report into
// a date notification. It implements refresh.Source.
type Watcher struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewWatcher creates a Kafka consumer for the configured report topic. A new
// consumer group starts at the end of the topic; only reports published
// after the dashboard came up are interesting.
func NewWatcher(cfg *config.Config, logger *slog.Logger) *Watcher {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic,
		GroupID:     cfg.KafkaGroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
		StartOffset: kafkago.LastOffset,
	})
	return &Watcher{reader: r, logger: logger}
}

// Next blocks until the next message arrives. A message without a usable
// event time is returned undated so the caller can still commit it.
func (w *Watcher) Next(ctx context.Context) (domain.Notification, error) {
	msg, err := w.reader.FetchMessage(ctx)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("fetch message: %w", err)
	}

	n, err := mapMessage(msg)
	if err != nil {
		w.logger.Warn("undated report message",
			"error", err,
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
	}
	n.Commit = func(ctx context.Context) error {
		return w.reader.CommitMessages(ctx, msg)
	}
	return n, nil
}

func (w *Watcher) Close() error {
	return w.reader.Close()
}

// reportEvent is the subset of the ETL's transformed event the dashboard reads.
type reportEvent struct {
	ID        string    `json:"id"`
	EventType string    `json:"type"`
	BeginTime time.Time `json:"begin_time"`
}

// mapMessage extracts the report day from a sink topic message. Position
// fields are always filled; Date stays zero when err is non-nil.
func mapMessage(msg kafkago.Message) (domain.Notification, error) {
	n := domain.Notification{
		ReportID:  string(msg.Key),
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	}
	for _, h := range msg.Headers {
		if h.Key == "event_type" {
			n.EventType = string(h.Value)
		}
	}

	var ev reportEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return n, fmt.Errorf("decode report event: %w", err)
	}
	if ev.ID != "" {
		n.ReportID = ev.ID
	}
	if n.EventType == "" {
		n.EventType = ev.EventType
	}
	if ev.BeginTime.IsZero() {
		return n, fmt.Errorf("report %q has no begin_time", n.ReportID)
	}
	n.Date = domain.DayOf(ev.BeginTime)
	return n, nil
}
