package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/space-weather-forecaster/internal/config"
	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// AlertWriter publishes alerts to a Kafka topic, one message per alert.
// It implements pipeline.AlertPublisher.
type AlertWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewAlertWriter creates a Kafka producer for the configured alert topic.
func NewAlertWriter(cfg *config.Config, logger *slog.Logger) *AlertWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlertTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: cfg.BatchFlushInterval,
	}
	return &AlertWriter{writer: w, logger: logger}
}

// PublishAlerts serializes and publishes alerts in a single WriteMessages call.
func (w *AlertWriter) PublishAlerts(ctx context.Context, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(alerts))
	for i := range alerts {
		msg, err := serializeAlert(alerts[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish alerts: %w", err)
	}
	w.logger.Debug("alerts published", "count", len(alerts), "topic", w.writer.Topic)
	return nil
}

func (w *AlertWriter) Close() error {
	return w.writer.Close()
}

// serializeAlert marshals an Alert into a Kafka message keyed by alert type.
func serializeAlert(alert domain.Alert) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(alert.Type),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "level", Value: []byte(alert.Level)},
			{Key: "issued_at", Value: []byte(alert.IssuedAt.Format(time.RFC3339))},
		},
	}, nil
}
