package rules

import (
	"context"
	"sort"
	"sync"

	models "github.com/glkeru/loyalty/rules/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// контекст симуляции для правила: бизнес и его часовой пояс
func (s *RuleEngineService) simulationContext(ctx context.Context, rule models.Rule) (models.EvaluationContext, error) {
	return s.PrepareContext(ctx, models.EvaluationContext{
		BusinessID:  rule.BusinessID,
		TriggerType: models.TriggerScheduled,
	})
}

// SimulateBulk - кто из участников сработал бы сейчас. Ничего не начисляет и не пишет.
func (s *RuleEngineService) SimulateBulk(ctx context.Context, ruleID string) (models.BulkSimulation, error) {
	ctx, span := s.tracer.Start(ctx, "rules.SimulateBulk")
	defer span.End()

	result := models.BulkSimulation{RuleID: ruleID, TriggeringCustomerIDs: []string{}}
	rule, err := s.stores.Rules.GetRule(ctx, ruleID)
	if err != nil {
		return result, err
	}
	base, err := s.simulationContext(ctx, rule)
	if err != nil {
		return result, err
	}
	enrollments, err := s.stores.History.GetEnrollments(ctx, rule.BusinessID)
	if err != nil {
		return result, err
	}
	result.Total = len(enrollments)
	span.SetAttributes(attribute.Int("enrollments", len(enrollments)))
	if len(enrollments) == 0 {
		result.Reason = models.ReasonNoEligibleCustomer
		return result, nil
	}
	// окно активности одно для всех клиентов
	if reason := windowGate(rule, base); reason != models.ReasonNone {
		result.Reason = reason
		return result, nil
	}

	mu := &sync.Mutex{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.simCount)
	for _, enrollment := range enrollments {
		enrollment := enrollment
		g.Go(func() error {
			ec := base
			ec.CustomerID = enrollment.CustomerID
			ec.EnrollmentID = enrollment.ID

			_, reason, err := s.checkGates(gctx, rule, ec, true)
			if err != nil {
				return err
			}
			if reason != models.ReasonNone {
				mu.Lock()
				defer mu.Unlock()
				switch reason {
				case models.ReasonAlreadyTriggered:
					result.AlreadyTriggered++
				case models.ReasonInCooldown:
					result.InCooldown++
				case models.ReasonMaxTriggers:
					result.AtCap++
				case models.ReasonSequenceLocked:
					result.SequenceLocked++
				}
				return nil
			}

			ok, err := s.EvaluateConditions(gctx, rule.Conditions, ec)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			result.Eligible++
			if ok {
				result.WouldTrigger++
				result.TriggeringCustomerIDs = append(result.TriggeringCustomerIDs, enrollment.CustomerID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.Log("SimulateBulk", err, zap.String("rule", ruleID))
		return result, err
	}
	sort.Strings(result.TriggeringCustomerIDs)
	return result, nil
}

// SimulateCustomer - все проверки допуска с причинами и разбор условий по узлам
func (s *RuleEngineService) SimulateCustomer(ctx context.Context, ruleID, customerID string) (models.CustomerSimulation, error) {
	ctx, span := s.tracer.Start(ctx, "rules.SimulateCustomer")
	defer span.End()

	result := models.CustomerSimulation{RuleID: ruleID, CustomerID: customerID}
	rule, err := s.stores.Rules.GetRule(ctx, ruleID)
	if err != nil {
		return result, err
	}
	ec, err := s.simulationContext(ctx, rule)
	if err != nil {
		return result, err
	}
	enrollment, err := s.stores.History.FindEnrollment(ctx, customerID, rule.BusinessID)
	if err != nil {
		return result, err
	}
	ec.CustomerID = customerID
	ec.EnrollmentID = enrollment.ID

	gates, reason, err := s.checkGates(ctx, rule, ec, false)
	if err != nil {
		return result, err
	}
	conditions, err := s.ExplainConditions(ctx, rule.Conditions, ec)
	if err != nil {
		return result, err
	}
	result.Gates = gates
	result.Conditions = conditions
	result.WouldAward = rule.Awards
	result.Reason = reason
	if reason == models.ReasonNone && !conditions.Passed {
		result.Reason = models.ReasonConditionsNotMet
	}
	result.Verdict = result.Reason == models.ReasonNone
	return result, nil
}

// SimulateWhatIf - оценка на гипотетическом сценарии.
// Повторяемость, кулдаун и лимит не проверяются: сценарий моделирует будущее.
func (s *RuleEngineService) SimulateWhatIf(ctx context.Context, ruleID, customerID string, scenario models.Scenario) (models.WhatIfSimulation, error) {
	ctx, span := s.tracer.Start(ctx, "rules.SimulateWhatIf")
	defer span.End()

	result := models.WhatIfSimulation{RuleID: ruleID}
	rule, err := s.stores.Rules.GetRule(ctx, ruleID)
	if err != nil {
		return result, err
	}
	enrollment, err := s.stores.History.FindEnrollment(ctx, customerID, rule.BusinessID)
	if err != nil {
		return result, err
	}
	ec := models.EvaluationContext{
		CustomerID:   customerID,
		BusinessID:   rule.BusinessID,
		EnrollmentID: enrollment.ID,
		LocationID:   scenario.LocationID,
		AmountCents:  scenario.AmountCents,
		TriggerType:  scenario.TriggerType,
		Scenario:     &scenario,
	}
	if ec.TriggerType == "" {
		ec.TriggerType = models.TriggerTransaction
	}
	if scenario.At != nil {
		ec.EvaluatedAt = *scenario.At
	}
	ec, err = s.PrepareContext(ctx, ec)
	if err != nil {
		return result, err
	}

	reason := windowGate(rule, ec)
	result.Gates = []models.GateCheck{{Name: GateActiveWindow, Passed: reason == models.ReasonNone, Reason: reason}}
	conditions, err := s.ExplainConditions(ctx, rule.Conditions, ec)
	if err != nil {
		return result, err
	}
	result.Context = ec
	result.Conditions = conditions
	result.WouldAward = rule.Awards
	result.Reason = reason
	if reason == models.ReasonNone && !conditions.Passed {
		result.Reason = models.ReasonConditionsNotMet
	}
	result.Verdict = result.Reason == models.ReasonNone
	return result, nil
}
