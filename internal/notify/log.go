package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSink mirrors notifications into the structured log.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, n Notification) error {
	s.logger.Info("position notification",
		zap.String("kind", string(n.Kind)),
		zap.String("caller", n.Caller),
		zap.String("position_id", n.PositionID),
		zap.Any("data", n.Data),
	)
	return nil
}
