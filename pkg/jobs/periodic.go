package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunEvery calls fn every interval until ctx is cancelled. The first run happens after one
// interval. Errors are logged and do not stop the loop.
func RunEvery(ctx context.Context, name string, interval time.Duration, logger *zap.Logger, fn func(context.Context) error) {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				logger.Sugar().Warnw("periodic task failed", "task", name, "error", err)
			}
		}
	}
}
