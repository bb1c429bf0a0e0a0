package forecast

import (
	"context"

	"go.uber.org/zap"

	"github.com/theirongolddev/finassist/internal/model"
)

// Estimate runs the quick estimator over a short history: an additive trend
// per category, three months ahead, inflated 3% per month after the first.
func Estimate(ctx context.Context, h model.History, logger *zap.Logger) (*model.Forecast, error) {
	return New(EstimateOptions(), logger).Forecast(ctx, h)
}
