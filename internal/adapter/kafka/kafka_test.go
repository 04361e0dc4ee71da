package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessage(t *testing.T) {
	msg := kafkago.Message{
		Key:       []byte("key-1"),
		Value:     []byte(`{"id":"evt-1","type":"hail","begin_time":"2024-04-26T15:10:00Z","magnitude":1.75}`),
		Topic:     "transformed-weather-data",
		Partition: 2,
		Offset:    42,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte("hail")},
			{Key: "processed_at", Value: []byte("2024-04-26T15:12:00Z")},
		},
	}

	n, err := mapMessage(msg)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC), n.Date)
	assert.True(t, n.Dated())
	assert.Equal(t, "evt-1", n.ReportID)
	assert.Equal(t, "hail", n.EventType)
	assert.Equal(t, "transformed-weather-data", n.Topic)
	assert.Equal(t, 2, n.Partition)
	assert.Equal(t, int64(42), n.Offset)
}

func TestMapMessage_DateIsUTCDay(t *testing.T) {
	// 21:30 in Chicago on the 26th is already the 27th in UTC.
	msg := kafkago.Message{Value: []byte(`{"id":"evt-2","type":"wind","begin_time":"2024-04-26T21:30:00-05:00"}`)}

	n, err := mapMessage(msg)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.April, 27, 0, 0, 0, 0, time.UTC), n.Date)
	assert.Equal(t, "wind", n.EventType, "falls back to the body type without a header")
}

func TestMapMessage_Undated(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "invalid json", value: "not-json{{{"},
		{name: "missing begin_time", value: `{"id":"evt-3","type":"tornado"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := mapMessage(kafkago.Message{Key: []byte("k"), Value: []byte(tt.value), Offset: 7})
			require.Error(t, err)
			assert.False(t, n.Dated())
			assert.Equal(t, int64(7), n.Offset)
		})
	}
}
