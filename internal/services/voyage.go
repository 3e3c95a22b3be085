package rules

import (
	"context"
	"errors"
	"sort"
	"time"

	models "github.com/glkeru/loyalty/rules/internal/models"
	"go.uber.org/zap"
)

// активные шаги вояжа в порядке sequenceOrder
func (s *RuleEngineService) voyageSteps(ctx context.Context, rulesetID string) ([]string, error) {
	rules, err := s.stores.Rules.GetRulesetRules(ctx, rulesetID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].SequenceOrder < rules[j].SequenceOrder })
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}

// начало прохождения: статус, дата старта, срок по timeLimitDays
func startProgress(p *models.RulesetProgress, ruleset models.Ruleset, now time.Time) {
	p.Status = models.ProgressInProgress
	p.StartedAt = &now
	if ruleset.TimeLimitDays != nil && *ruleset.TimeLimitDays > 0 {
		t := now.AddDate(0, 0, *ruleset.TimeLimitDays)
		p.ExpiresAt = &t
	}
	if p.CompletedRuleIDs == nil {
		p.CompletedRuleIDs = []string{}
	}
}

// истек ли срок прохождения
func expireIfElapsed(p *models.RulesetProgress, now time.Time) bool {
	if p.Status == models.ProgressInProgress && p.ExpiresAt != nil && now.After(*p.ExpiresAt) {
		p.Status = models.ProgressExpired
		p.UpdatedAt = now
		return true
	}
	return false
}

// завершен, если пройдены все активные шаги
func completeIfDone(p *models.RulesetProgress, steps []string, now time.Time) {
	p.CurrentStep = len(p.CompletedRuleIDs)
	if len(steps) == 0 {
		return
	}
	for _, id := range steps {
		if !p.HasCompleted(id) {
			return
		}
	}
	p.Status = models.ProgressCompleted
	p.CompletedAt = &now
}

// advanceVoyage - отметить шаг пройденным после срабатывания правила
func (s *RuleEngineService) advanceVoyage(ctx context.Context, rule models.Rule, ec models.EvaluationContext) (*models.RulesetProgress, error) {
	ruleset, err := s.stores.Rules.GetRuleset(ctx, rule.RulesetID)
	if errors.Is(err, models.ErrNotFound) {
		s.warn("advanceVoyage", err, zap.String("ruleset", rule.RulesetID))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !ruleset.IsActive {
		return nil, nil
	}
	steps, err := s.voyageSteps(ctx, ruleset.ID)
	if err != nil {
		return nil, err
	}

	now := ec.EvaluatedAt
	progress, err := s.stores.Progress.UpdateProgress(ctx, ruleset.ID, ec.CustomerID, func(p *models.RulesetProgress) (bool, error) {
		if p.Terminal() {
			return false, nil
		}
		if expireIfElapsed(p, now) {
			return true, nil
		}
		if p.Status == models.ProgressNotStarted {
			p.BusinessID = ec.BusinessID
			startProgress(p, ruleset, now)
		}
		if !p.HasCompleted(rule.ID) {
			p.CompletedRuleIDs = append(p.CompletedRuleIDs, rule.ID)
		}
		completeIfDone(p, steps, now)
		p.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if progress != nil && progress.Status == models.ProgressCompleted && progress.CompletedAt != nil && progress.CompletedAt.Equal(now) {
		voyagesCompleted.Inc()
	}
	return progress, nil
}

// StartVoyage - явный старт вояжа клиентом
func (s *RuleEngineService) StartVoyage(ctx context.Context, rulesetID, customerID string) (*models.RulesetProgress, error) {
	ruleset, err := s.stores.Rules.GetRuleset(ctx, rulesetID)
	if err != nil {
		return nil, err
	}
	if !ruleset.IsActive {
		return nil, models.ErrNotFound
	}
	now := s.now()
	return s.stores.Progress.UpdateProgress(ctx, rulesetID, customerID, func(p *models.RulesetProgress) (bool, error) {
		if p.Status != models.ProgressNotStarted {
			return false, nil
		}
		p.BusinessID = ruleset.BusinessID
		startProgress(p, ruleset, now)
		p.UpdatedAt = now
		return true, nil
	})
}

// VoyageProgress - текущий прогресс. Просроченный в хранилище прогресс показывается как expired.
func (s *RuleEngineService) VoyageProgress(ctx context.Context, rulesetID, customerID string) (*models.RulesetProgress, error) {
	progress, err := s.stores.Progress.GetProgress(ctx, rulesetID, customerID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return &models.RulesetProgress{
			RulesetID:        rulesetID,
			CustomerID:       customerID,
			Status:           models.ProgressNotStarted,
			CompletedRuleIDs: []string{},
		}, nil
	}
	expireIfElapsed(progress, s.now())
	return progress, nil
}

// RecomputeVoyage - пересобрать пройденные шаги из журнала срабатываний
func (s *RuleEngineService) RecomputeVoyage(ctx context.Context, rulesetID, customerID string) (*models.RulesetProgress, error) {
	ruleset, err := s.stores.Rules.GetRuleset(ctx, rulesetID)
	if err != nil {
		return nil, err
	}
	steps, err := s.voyageSteps(ctx, rulesetID)
	if err != nil {
		return nil, err
	}
	var triggered []string
	if len(steps) > 0 {
		triggered, err = s.stores.Triggers.TriggeredRules(ctx, customerID, steps, nil)
		if err != nil {
			return nil, err
		}
	}
	done := make(map[string]struct{}, len(triggered))
	for _, id := range triggered {
		done[id] = struct{}{}
	}

	now := s.now()
	return s.stores.Progress.UpdateProgress(ctx, rulesetID, customerID, func(p *models.RulesetProgress) (bool, error) {
		if p.Terminal() {
			return false, nil
		}
		if expireIfElapsed(p, now) {
			return true, nil
		}
		completed := make([]string, 0, len(steps))
		for _, id := range steps {
			if _, ok := done[id]; ok {
				completed = append(completed, id)
			}
		}
		if len(completed) == 0 && p.Status == models.ProgressNotStarted {
			return false, nil
		}
		if p.Status == models.ProgressNotStarted {
			p.BusinessID = ruleset.BusinessID
			startProgress(p, ruleset, now)
		}
		p.CompletedRuleIDs = completed
		completeIfDone(p, steps, now)
		p.UpdatedAt = now
		return true, nil
	})
}
