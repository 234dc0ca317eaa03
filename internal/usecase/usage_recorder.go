package usecase

import (
	"context"
	"strconv"
	"time"

	"daonbridge/internal/domain"
	"daonbridge/internal/infra/metrics"

	"go.uber.org/zap"
)

// UsageRecorder aggregates request outcomes off the request path through a
// buffered channel. A full buffer drops the sample rather than blocking the
// handler.
type UsageRecorder struct {
	Usage UsageRepository
	Log   *zap.Logger

	samples chan domain.UsageSample
}

func NewUsageRecorder(usage UsageRepository, bufferSize int, log *zap.Logger) *UsageRecorder {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	return &UsageRecorder{
		Usage:   usage,
		Log:     log,
		samples: make(chan domain.UsageSample, bufferSize),
	}
}

// Start consumes samples until ctx is cancelled.
func (r *UsageRecorder) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sample := <-r.samples:
				writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := r.Usage.Record(writeCtx, sample); err != nil {
					r.Log.Warn("record usage sample", zap.Error(err))
				}
				cancel()
			}
		}
	}()
}

func (r *UsageRecorder) Observe(sample domain.UsageSample, status int) {
	metrics.RequestsTotal.WithLabelValues(sample.Endpoint, sample.Method, strconv.Itoa(status)).Inc()
	metrics.RequestDuration.WithLabelValues(sample.Endpoint, sample.Method).Observe(sample.Duration.Seconds())
	sample.Success = status < 400
	if sample.BrokerID == "" {
		return
	}
	select {
	case r.samples <- sample:
	default:
		r.Log.Debug("usage buffer full, sample dropped",
			zap.String("endpoint", sample.Endpoint))
	}
}
