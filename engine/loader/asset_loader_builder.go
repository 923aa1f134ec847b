package loader

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"
)

// AssetLoaderBuilderOption is a functional option for configuring an AssetLoader via NewAssetLoader.
type AssetLoaderBuilderOption func(*assetLoader)

// WithWorkers sets how many resources load concurrently. Ignored when a pool is supplied.
//
// Parameters:
//   - n: the worker count (minimum 1)
//
// Returns:
//   - AssetLoaderBuilderOption: a function that applies the worker option
func WithWorkers(n int) AssetLoaderBuilderOption {
	return func(l *assetLoader) {
		if n < 1 {
			n = 1
		}
		l.workers = n
	}
}

// WithWorkerPool shares an existing worker pool with the loader.
//
// Parameters:
//   - pool: the pool that runs load tasks
//
// Returns:
//   - AssetLoaderBuilderOption: a function that applies the pool option
func WithWorkerPool(pool worker.DynamicWorkerPool) AssetLoaderBuilderOption {
	return func(l *assetLoader) {
		l.pool = pool
	}
}

// WithAssetLogger sets the logger for load progress and failures.
func WithAssetLogger(log *zap.Logger) AssetLoaderBuilderOption {
	return func(l *assetLoader) {
		if log != nil {
			l.log = log
		}
	}
}
