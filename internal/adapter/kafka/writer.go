package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/snodas-swe-etl/internal/config"
	"github.com/couchcryptid/snodas-swe-etl/internal/domain"
)

// Writer publishes derived basin records to a Kafka topic, keyed by basin
// ID so a compacted topic holds each basin's latest state per date batch.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// PublishDate serializes and publishes one date's records in a single
// WriteMessages call.
func (w *Writer) PublishDate(ctx context.Context, date time.Time, recs []domain.DerivedRecord) error {
	if len(recs) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(recs))
	for i := range recs {
		msg, err := serializeToMessage(recs[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	w.logger.Debug("publishing records", "topic", w.writer.Topic,
		"date", date.Format(domain.DateLayout), "count", len(msgs))
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// recordMessage is the published wire shape. Pointer fields marshal to
// null when the value is unavailable.
type recordMessage struct {
	Date             string   `json:"date"`
	BasinID          string   `json:"basin_id"`
	BasinName        string   `json:"basin_name"`
	MeanIn           float64  `json:"swe_mean_in"`
	MeanMM           float64  `json:"swe_mean_mm"`
	AreaSqMi         float64  `json:"effective_area_sqmi"`
	VolumeAcFt       float64  `json:"swe_volume_acft"`
	VolumeChangeAcFt *float64 `json:"swe_volume_1week_change_acft"`
	SnowCoverPct     float64  `json:"snow_cover_percent"`
	MaxIn            *float64 `json:"swe_max_in,omitempty"`
	MaxMM            *float64 `json:"swe_max_mm,omitempty"`
	MinIn            *float64 `json:"swe_min_in,omitempty"`
	MinMM            *float64 `json:"swe_min_mm,omitempty"`
	StdDevIn         *float64 `json:"swe_stddev_in,omitempty"`
	StdDevMM         *float64 `json:"swe_stddev_mm,omitempty"`
	UpdatedAt        string   `json:"updated_at"`
}

// serializeToMessage marshals a derived record into a Kafka message.
func serializeToMessage(rec domain.DerivedRecord) (kafkago.Message, error) {
	data, err := json.Marshal(recordMessage{
		Date:             rec.Date.Format(domain.DateLayout),
		BasinID:          rec.BasinID,
		BasinName:        rec.BasinName,
		MeanIn:           rec.MeanIn,
		MeanMM:           rec.MeanMM,
		AreaSqMi:         rec.AreaSqMi,
		VolumeAcFt:       rec.VolumeAcFt,
		VolumeChangeAcFt: rec.VolumeChangeAcFt,
		SnowCoverPct:     rec.SnowCoverPct,
		MaxIn:            rec.MaxIn,
		MaxMM:            rec.MaxMM,
		MinIn:            rec.MinIn,
		MinMM:            rec.MinMM,
		StdDevIn:         rec.StdDevIn,
		StdDevMM:         rec.StdDevMM,
		UpdatedAt:        rec.UpdatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize basin record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.BasinID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "observation_date", Value: []byte(rec.Date.Format(domain.DateLayout))},
			{Key: "updated_at", Value: []byte(rec.UpdatedAt.Format(time.RFC3339))},
		},
	}, nil
}
