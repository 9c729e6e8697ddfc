package handlers

import (
	"context"

	"github.com/wonny/voltarget/internal/audit"
	"github.com/wonny/voltarget/internal/pipeline"
	"github.com/wonny/voltarget/pkg/redis"
)

// Service is the part of the runner used by the handlers
type Service interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (*pipeline.Output, error)
	LatestSignal(ctx context.Context) (*pipeline.LatestSignal, error)
	LatestRun(ctx context.Context) (*audit.RunRecord, error)
	ConfigHash() string
}

// RunLimiter bounds on-demand runs per client
type RunLimiter interface {
	Allow(ctx context.Context, cfg redis.RateLimitConfig, subject string) (bool, int, error)
}
