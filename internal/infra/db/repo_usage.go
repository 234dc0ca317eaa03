package db

import (
	"context"
	"time"

	"daonbridge/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UsageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Record folds one sample into its hour bucket. The rolling average is
// recomputed from the previous aggregate on upsert.
func (r *UsageRepository) Record(ctx context.Context, sample domain.UsageSample) error {
	if r.db == nil {
		return errDBUnavailable
	}
	bucket := domain.HourBucket(sample.ObservedAt)
	latencyMs := float64(sample.Duration.Microseconds()) / 1000.0
	successInc, errorInc := int64(0), int64(1)
	if sample.Success {
		successInc, errorInc = 1, 0
	}
	model := APIUsageModel{
		BrokerID:     sample.BrokerID,
		Endpoint:     sample.Endpoint,
		Method:       sample.Method,
		HourBucket:   bucket,
		SuccessCount: successInc,
		ErrorCount:   errorInc,
		AvgLatencyMs: latencyMs,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "broker_id"}, {Name: "endpoint"}, {Name: "method"}, {Name: "hour_bucket"},
		},
		DoUpdates: clause.Assignments(map[string]any{
			"success_count": gorm.Expr("api_usage_records.success_count + ?", successInc),
			"error_count":   gorm.Expr("api_usage_records.error_count + ?", errorInc),
			"avg_latency_ms": gorm.Expr(
				"(api_usage_records.avg_latency_ms * (api_usage_records.success_count + api_usage_records.error_count) + ?) / (api_usage_records.success_count + api_usage_records.error_count + 1)",
				latencyMs,
			),
		}),
	}).Create(&model).Error
}

func (r *UsageRepository) Query(ctx context.Context, brokerID string, from, to time.Time) ([]domain.UsageRecord, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	query := r.db.WithContext(ctx).Model(&APIUsageModel{}).Where("broker_id = ?", brokerID)
	if !from.IsZero() {
		query = query.Where("hour_bucket >= ?", from.UTC())
	}
	if !to.IsZero() {
		query = query.Where("hour_bucket <= ?", to.UTC())
	}
	var models []APIUsageModel
	if err := query.Order("hour_bucket ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.UsageRecord, 0, len(models))
	for _, model := range models {
		out = append(out, domain.UsageRecord{
			BrokerID:     model.BrokerID,
			Endpoint:     model.Endpoint,
			Method:       model.Method,
			HourBucket:   model.HourBucket,
			SuccessCount: model.SuccessCount,
			ErrorCount:   model.ErrorCount,
			AvgLatencyMs: model.AvgLatencyMs,
		})
	}
	return out, nil
}
