package rules

import (
	"context"
	"sort"

	models "github.com/glkeru/loyalty/rules/internal/models"
	"go.uber.org/zap"
)

// SaveRule - создать/обновить правило после проверки
func (s *RuleEngineService) SaveRule(ctx context.Context, rule models.Rule) (models.Rule, error) {
	if err := ValidateRule(rule); err != nil {
		return rule, err
	}
	now := s.now()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now
	saved, err := s.stores.Rules.SaveRule(ctx, rule)
	if err != nil {
		s.Log("SaveRule", err, zap.String("rule", rule.ID))
		return rule, err
	}
	return saved, nil
}

// DeactivateRule - правило не удаляется физически, на него ссылаются срабатывания
func (s *RuleEngineService) DeactivateRule(ctx context.Context, ruleID string) error {
	if err := s.stores.Rules.DeactivateRule(ctx, ruleID); err != nil {
		s.Log("DeactivateRule", err, zap.String("rule", ruleID))
		return err
	}
	return nil
}

// SaveRuleset - создать/обновить вояж после проверки
func (s *RuleEngineService) SaveRuleset(ctx context.Context, ruleset models.Ruleset) (models.Ruleset, error) {
	if err := ValidateRuleset(ruleset); err != nil {
		return ruleset, err
	}
	now := s.now()
	if ruleset.CreatedAt.IsZero() {
		ruleset.CreatedAt = now
	}
	ruleset.UpdatedAt = now
	saved, err := s.stores.Rules.SaveRuleset(ctx, ruleset)
	if err != nil {
		s.Log("SaveRuleset", err, zap.String("ruleset", ruleset.ID))
		return ruleset, err
	}
	return saved, nil
}

// Rules - правила бизнеса, activeOnly - только активные
func (s *RuleEngineService) Rules(ctx context.Context, businessID string, activeOnly bool) ([]models.Rule, error) {
	if activeOnly {
		return s.stores.Rules.GetActiveRules(ctx, businessID)
	}
	return s.stores.Rules.GetAllRules(ctx, businessID)
}

func (s *RuleEngineService) Rule(ctx context.Context, ruleID string) (models.Rule, error) {
	return s.stores.Rules.GetRule(ctx, ruleID)
}

func (s *RuleEngineService) Rulesets(ctx context.Context, businessID string) ([]models.Ruleset, error) {
	return s.stores.Rules.GetRulesets(ctx, businessID)
}

// Ruleset - вояж вместе с шагами
func (s *RuleEngineService) Ruleset(ctx context.Context, rulesetID string) (models.Ruleset, []models.Rule, error) {
	ruleset, err := s.stores.Rules.GetRuleset(ctx, rulesetID)
	if err != nil {
		return ruleset, nil, err
	}
	steps, err := s.stores.Rules.GetRulesetRules(ctx, rulesetID)
	if err != nil {
		return ruleset, nil, err
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].SequenceOrder < steps[j].SequenceOrder })
	return ruleset, steps, nil
}
