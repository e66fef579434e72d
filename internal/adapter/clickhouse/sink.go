// Package clickhouse inserts the prediction table into ClickHouse over the
// native protocol.
package clickhouse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"
	"github.com/couchcryptid/space-weather-forecaster/internal/config"
	"github.com/couchcryptid/space-weather-forecaster/internal/export"
)

const columnList = "timestamp, solar_wind_speed, proton_density, bz, xray_flux, kp_index, " +
	"flare_class, storm_class, flare_prediction, flare_probability, risk_prediction"

// querier is the subset of *ch.Client the sink uses.
type querier interface {
	Do(ctx context.Context, q ch.Query) error
	Close() error
}

// PredictionSink writes prediction records to <database>.<table> in blocks
// of at most batchSize rows. It implements pipeline.PredictionSink.
type PredictionSink struct {
	conn      querier
	table     string
	batchSize int
	logger    *slog.Logger
}

// NewPredictionSink connects to ClickHouse and creates the table if needed.
func NewPredictionSink(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*PredictionSink, error) {
	conn, err := ch.Dial(ctx, ch.Options{
		Address:     cfg.ClickHouseAddr,
		Database:    cfg.ClickHouseDatabase,
		Compression: ch.CompressionLZ4,
	})
	if err != nil {
		return nil, fmt.Errorf("dial clickhouse: %w", err)
	}
	s := newSink(conn, cfg.ClickHouseDatabase+"."+cfg.ClickHouseTable, cfg.BatchSize, logger)
	if err := s.ensureTable(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func newSink(conn querier, table string, batchSize int, logger *slog.Logger) *PredictionSink {
	return &PredictionSink{conn: conn, table: table, batchSize: max(batchSize, 1), logger: logger}
}

func (s *PredictionSink) ensureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	timestamp DateTime,
	solar_wind_speed Float64,
	proton_density Float64,
	bz Float64,
	xray_flux Float64,
	kp_index Float64,
	flare_class String,
	storm_class String,
	flare_prediction UInt8,
	flare_probability Float64,
	risk_prediction Float64
) ENGINE = ReplacingMergeTree ORDER BY timestamp`, s.table)
	if err := s.conn.Do(ctx, ch.Query{Body: ddl}); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// WritePredictions inserts records in order.
func (s *PredictionSink) WritePredictions(ctx context.Context, records []export.PredictionRecord) error {
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES", s.table, columnList)
	batch := newPredictionBatch()
	for start := 0; start < len(records); start += s.batchSize {
		end := min(start+s.batchSize, len(records))
		batch.Reset()
		for _, r := range records[start:end] {
			batch.Append(r)
		}
		if err := s.conn.Do(ctx, ch.Query{Body: query, Input: batch.Input()}); err != nil {
			return fmt.Errorf("insert predictions: %w", err)
		}
	}
	s.logger.Debug("predictions inserted", "rows", len(records), "table", s.table)
	return nil
}

func (s *PredictionSink) Close() error {
	return s.conn.Close()
}

// predictionBatch holds column data for one native insert block.
type predictionBatch struct {
	Timestamp        *proto.ColDateTime
	SolarWindSpeed   *proto.ColFloat64
	ProtonDensity    *proto.ColFloat64
	Bz               *proto.ColFloat64
	XRayFlux         *proto.ColFloat64
	KpIndex          *proto.ColFloat64
	FlareClass       *proto.ColStr
	StormClass       *proto.ColStr
	FlarePrediction  *proto.ColUInt8
	FlareProbability *proto.ColFloat64
	RiskPrediction   *proto.ColFloat64
}

func newPredictionBatch() *predictionBatch {
	return &predictionBatch{
		Timestamp:        new(proto.ColDateTime),
		SolarWindSpeed:   new(proto.ColFloat64),
		ProtonDensity:    new(proto.ColFloat64),
		Bz:               new(proto.ColFloat64),
		XRayFlux:         new(proto.ColFloat64),
		KpIndex:          new(proto.ColFloat64),
		FlareClass:       new(proto.ColStr),
		StormClass:       new(proto.ColStr),
		FlarePrediction:  new(proto.ColUInt8),
		FlareProbability: new(proto.ColFloat64),
		RiskPrediction:   new(proto.ColFloat64),
	}
}

func (b *predictionBatch) Reset() {
	b.Timestamp.Reset()
	b.SolarWindSpeed.Reset()
	b.ProtonDensity.Reset()
	b.Bz.Reset()
	b.XRayFlux.Reset()
	b.KpIndex.Reset()
	b.FlareClass.Reset()
	b.StormClass.Reset()
	b.FlarePrediction.Reset()
	b.FlareProbability.Reset()
	b.RiskPrediction.Reset()
}

func (b *predictionBatch) Len() int {
	return b.Timestamp.Rows()
}

func (b *predictionBatch) Append(r export.PredictionRecord) {
	b.Timestamp.Append(r.Timestamp)
	b.SolarWindSpeed.Append(r.SolarWindSpeed)
	b.ProtonDensity.Append(r.ProtonDensity)
	b.Bz.Append(r.Bz)
	b.XRayFlux.Append(r.XRayFlux)
	b.KpIndex.Append(r.KpIndex)
	b.FlareClass.Append(r.FlareClass)
	b.StormClass.Append(r.StormClass)
	b.FlarePrediction.Append(uint8(r.FlarePrediction))
	b.FlareProbability.Append(r.FlareProbability)
	b.RiskPrediction.Append(r.RiskPrediction)
}

func (b *predictionBatch) Input() proto.Input {
	return proto.Input{
		{Name: "timestamp", Data: b.Timestamp},
		{Name: "solar_wind_speed", Data: b.SolarWindSpeed},
		{Name: "proton_density", Data: b.ProtonDensity},
		{Name: "bz", Data: b.Bz},
		{Name: "xray_flux", Data: b.XRayFlux},
		{Name: "kp_index", Data: b.KpIndex},
		{Name: "flare_class", Data: b.FlareClass},
		{Name: "storm_class", Data: b.StormClass},
		{Name: "flare_prediction", Data: b.FlarePrediction},
		{Name: "flare_probability", Data: b.FlareProbability},
		{Name: "risk_prediction", Data: b.RiskPrediction},
	}
}
