package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/space-weather-forecaster/internal/config"
	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeAlert(t *testing.T) {
	now := time.Date(2024, 5, 10, 17, 0, 0, 0, time.UTC)
	alert := domain.Alert{
		Level:    domain.AlertHigh,
		Type:     domain.AlertGeomagStorm,
		Message:  "Strong geomagnetic storm in progress (Kp=8.3)",
		IssuedAt: now,
	}

	msg, err := serializeAlert(alert)
	require.NoError(t, err)

	assert.Equal(t, []byte("Geomagnetic Storm"), msg.Key)
	assert.JSONEq(t, `{
		"level":"HIGH",
		"type":"Geomagnetic Storm",
		"message":"Strong geomagnetic storm in progress (Kp=8.3)",
		"issued_at":"2024-05-10T17:00:00Z"
	}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "level", msg.Headers[0].Key)
	assert.Equal(t, []byte("HIGH"), msg.Headers[0].Value)
	assert.Equal(t, "issued_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestNewAlertWriter_UsesConfig(t *testing.T) {
	cfg := &config.Config{
		KafkaBrokers:       []string{"broker1:9092", "broker2:9092"},
		KafkaAlertTopic:    "alerts",
		BatchFlushInterval: 250 * time.Millisecond,
	}
	w := NewAlertWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer w.Close()

	assert.Equal(t, "alerts", w.writer.Topic)
	assert.Equal(t, 250*time.Millisecond, w.writer.BatchTimeout)
	assert.Contains(t, w.writer.Addr.String(), "broker1:9092")
	assert.Contains(t, w.writer.Addr.String(), "broker2:9092")
}

func TestPublishAlerts_EmptyIsNoop(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaAlertTopic: "alerts"}
	w := NewAlertWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer w.Close()

	require.NoError(t, w.PublishAlerts(context.Background(), nil))
}
