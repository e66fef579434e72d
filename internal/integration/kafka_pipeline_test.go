//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/space-weather-forecaster/internal/adapter/kafka"
	"github.com/couchcryptid/space-weather-forecaster/internal/config"
	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
	"github.com/couchcryptid/space-weather-forecaster/internal/model"
	"github.com/couchcryptid/space-weather-forecaster/internal/observability"
	"github.com/couchcryptid/space-weather-forecaster/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const kafkaImage = "confluentinc/confluent-local:7.5.0"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("forecaster-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type alertMessage struct {
	Alert   domain.Alert
	Key     string
	Headers map[string]string
}

func readAlert(ctx context.Context, t *testing.T, consumer *kafkago.Reader) alertMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from alert topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var alert domain.Alert
	require.NoError(t, json.Unmarshal(msg.Value, &alert), "unmarshal alert message")
	return alertMessage{Alert: alert, Key: string(msg.Key), Headers: headers}
}

func newConsumer(t *testing.T, broker, topic string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

func TestAlertWriter_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	const topic = "test-alerts"
	createTopic(t, broker, topic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaAlertTopic:    topic,
		BatchFlushInterval: 100 * time.Millisecond,
	}
	writer := kafka.NewAlertWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	issued := time.Date(2024, 5, 10, 17, 0, 0, 0, time.UTC)
	alerts := []domain.Alert{
		{Level: domain.AlertHigh, Type: domain.AlertSolarFlare, Message: "X-class flare probability 91%", IssuedAt: issued},
		{Level: domain.AlertModerate, Type: domain.AlertSolarWind, Message: "solar wind speed 720 km/s", IssuedAt: issued},
	}
	require.NoError(t, writer.PublishAlerts(ctx, alerts))

	consumer := newConsumer(t, broker, topic)
	for _, want := range alerts {
		got := readAlert(ctx, t, consumer)
		assert.Equal(t, want.Type, got.Key)
		assert.Equal(t, want.Level, got.Headers["level"])
		assert.Equal(t, "2024-05-10T17:00:00Z", got.Headers["issued_at"])
		assert.Equal(t, want.Message, got.Alert.Message)
		assert.True(t, want.IssuedAt.Equal(got.Alert.IssuedAt))
	}
}

// TestPipeline_PublishesAlerts runs a small forecasting pass with the real
// Kafka writer and checks every reported alert reaches the topic.
func TestPipeline_PublishesAlerts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	const topic = "test-pipeline-alerts"
	createTopic(t, broker, topic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaAlertTopic:    topic,
		BatchFlushInterval: 100 * time.Millisecond,
	}
	writer := kafka.NewAlertWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	boost := model.DefaultBoostParams()
	boost.Estimators = 10
	boost.MaxDepth = 3
	storm := model.DefaultStormConfig()
	storm.Lookback = 4
	storm.Recurrent = []int{4, 3}
	storm.Dense = []int{4}
	storm.Epochs = 2

	dir := t.TempDir()
	opts := pipeline.Options{
		SyntheticSamples: 300,
		Seed:             7,
		NumericColumns:   []string{domain.ColSolarWindSpeed, domain.ColBz, domain.ColXRayFlux},
		ForecastHours:    6,
		RecentRows:       20,
		ModelDir:         filepath.Join(dir, "models"),
		OutputDir:        filepath.Join(dir, "output"),
		Boost:            boost,
		Storm:            storm,
	}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(opts, pipeline.Deps{Alerts: writer}, discardLogger(), metrics)

	report, err := p.Run(ctx)
	require.NoError(t, err)
	if len(report.Alerts) == 0 {
		t.Skip("synthetic conditions raised no alerts")
	}

	consumer := newConsumer(t, broker, topic)
	received := map[string]string{}
	for range report.Alerts {
		got := readAlert(ctx, t, consumer)
		received[got.Key] = got.Alert.Level
	}
	for _, a := range report.Alerts {
		assert.Equal(t, a.Level, received[a.Type], "alert %s", a.Type)
	}
}
