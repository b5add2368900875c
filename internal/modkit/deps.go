// Package modkit provides module wiring and core deps
package modkit

import (
	"tubelytics/internal/platform/config"
	"tubelytics/internal/platform/logger"
	"tubelytics/internal/platform/metrics"

	"github.com/redis/go-redis/v9"
)

// Deps holds core dependencies passed to modules
// Metrics and Redis are optional and may be nil
type Deps struct {
	Log     logger.Logger
	Cfg     config.Conf
	Metrics *metrics.Metrics
	Redis   redis.UniversalClient
}
