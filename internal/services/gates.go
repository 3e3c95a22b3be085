package rules

import (
	"context"
	"errors"

	models "github.com/glkeru/loyalty/rules/internal/models"
)

const (
	GateActiveWindow = "active_window"
	GateRepeatable   = "repeatable"
	GateCooldown     = "cooldown"
	GateCap          = "max_triggers"
	GateSequence     = "sequence"
)

// checkGates проверяет допуски правила по журналу срабатываний.
// stopOnFail - вернуться на первом отказе (оркестратор), иначе собрать все проверки (симулятор).
func (s *RuleEngineService) checkGates(ctx context.Context, rule models.Rule, ec models.EvaluationContext, stopOnFail bool) ([]models.GateCheck, models.Reason, error) {
	var checks []models.GateCheck
	first := models.ReasonNone
	record := func(name string, reason models.Reason) bool {
		checks = append(checks, models.GateCheck{Name: name, Passed: reason == models.ReasonNone, Reason: reason})
		if reason != models.ReasonNone && first == models.ReasonNone {
			first = reason
		}
		return reason != models.ReasonNone && stopOnFail
	}

	if record(GateActiveWindow, windowGate(rule, ec)) {
		return checks, first, nil
	}

	// все срабатывания клиента по правилу
	total := -1
	countAll := func() (int, error) {
		if total >= 0 {
			return total, nil
		}
		n, err := s.stores.Triggers.CountTriggers(ctx, ec.CustomerID, rule.ID, nil)
		if err != nil {
			return 0, err
		}
		total = n
		return n, nil
	}

	if !rule.IsRepeatable {
		n, err := countAll()
		if err != nil {
			return checks, first, err
		}
		reason := models.ReasonNone
		if n > 0 {
			reason = models.ReasonAlreadyTriggered
		}
		if record(GateRepeatable, reason) {
			return checks, first, nil
		}
	}

	if rule.CooldownDays != nil && *rule.CooldownDays > 0 {
		last, err := s.stores.Triggers.LastTriggeredAt(ctx, ec.CustomerID, rule.ID)
		if err != nil {
			return checks, first, err
		}
		reason := models.ReasonNone
		if last != nil && last.After(ec.EvaluatedAt.AddDate(0, 0, -*rule.CooldownDays)) {
			reason = models.ReasonInCooldown
		}
		if record(GateCooldown, reason) {
			return checks, first, nil
		}
	}

	if rule.MaxTriggersPerCustomer != nil {
		n, err := countAll()
		if err != nil {
			return checks, first, err
		}
		reason := models.ReasonNone
		if n >= *rule.MaxTriggersPerCustomer {
			reason = models.ReasonMaxTriggers
		}
		if record(GateCap, reason) {
			return checks, first, nil
		}
	}

	if rule.RulesetID != "" {
		locked, enforced, err := s.sequenceLocked(ctx, rule, ec.CustomerID)
		if err != nil {
			return checks, first, err
		}
		if enforced {
			reason := models.ReasonNone
			if locked {
				reason = models.ReasonSequenceLocked
			}
			record(GateSequence, reason)
		}
	}
	return checks, first, nil
}

// окно активности правила
func windowGate(rule models.Rule, ec models.EvaluationContext) models.Reason {
	now := ec.EvaluatedAt
	switch {
	case !rule.IsActive:
		return models.ReasonInactive
	case rule.StartsAt != nil && now.Before(*rule.StartsAt):
		return models.ReasonNotStarted
	case rule.EndsAt != nil && now.After(*rule.EndsAt):
		return models.ReasonEnded
	}
	return models.ReasonNone
}

// sequenceLocked - шаг последовательного вояжа закрыт, пока не пройдены все активные шаги с меньшим sequenceOrder.
// Проверяется только при включенном enforceSequence.
func (s *RuleEngineService) sequenceLocked(ctx context.Context, rule models.Rule, customerID string) (locked bool, enforced bool, err error) {
	ruleset, err := s.stores.Rules.GetRuleset(ctx, rule.RulesetID)
	if errors.Is(err, models.ErrNotFound) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	if !ruleset.EnforceSequence || ruleset.ChainType != models.ChainSequential {
		return false, false, nil
	}
	steps, err := s.stores.Rules.GetRulesetRules(ctx, rule.RulesetID)
	if err != nil {
		return false, true, err
	}
	progress, err := s.stores.Progress.GetProgress(ctx, rule.RulesetID, customerID)
	if err != nil {
		return false, true, err
	}
	for _, step := range steps {
		if !step.IsActive || step.ID == rule.ID || step.SequenceOrder >= rule.SequenceOrder {
			continue
		}
		if progress == nil || !progress.HasCompleted(step.ID) {
			return true, true, nil
		}
	}
	return false, true, nil
}
