package schedulerRepo

import (
	"go.uber.org/zap"

	"medibook/utils"
)

// Option configures a repository backend.
type Option func(*repoOptions)

type repoOptions struct {
	maxAttempts int
	metrics     *utils.SchedulingMetrics
	logger      *zap.Logger
}

// WithMaxAttempts bounds transaction attempts (first try included).
func WithMaxAttempts(n int) Option {
	return func(o *repoOptions) { o.maxAttempts = n }
}

// WithMetrics records conflicting attempts.
func WithMetrics(m *utils.SchedulingMetrics) Option {
	return func(o *repoOptions) { o.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *repoOptions) { o.logger = l }
}

func applyOptions(opts []Option) repoOptions {
	o := repoOptions{maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxAttempts < 1 {
		o.maxAttempts = DefaultMaxAttempts
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

func (o repoOptions) conflictHook(backend string) func() {
	return func() { o.metrics.ObserveConflict(backend) }
}
