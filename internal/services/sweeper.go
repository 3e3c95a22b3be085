package rules

import (
	"context"

	"go.uber.org/zap"
)

// Sweep - просроченные выборы наград и прогресс вояжей переводятся в expired
func (s *RuleEngineService) Sweep(ctx context.Context) (choices int64, progress int64, err error) {
	now := s.now()
	choices, err = s.stores.Awards.ExpirePendingChoices(ctx, now)
	if err != nil {
		s.Log("Sweep", err)
		return 0, 0, err
	}
	progress, err = s.stores.Progress.ExpireProgress(ctx, now)
	if err != nil {
		s.Log("Sweep", err)
		return choices, 0, err
	}
	sweptTotal.WithLabelValues("choice").Add(float64(choices))
	sweptTotal.WithLabelValues("progress").Add(float64(progress))
	s.logger.Info("Sweep finished",
		zap.Int64("choices", choices),
		zap.Int64("progress", progress),
	)
	return choices, progress, nil
}
