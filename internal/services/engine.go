package rules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	interf "github.com/glkeru/loyalty/rules/internal/interfaces"
	models "github.com/glkeru/loyalty/rules/internal/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Stores - хранилища движка. Cache и Notifier необязательны.
type Stores struct {
	Rules    interf.RuleStorage
	History  interf.HistoryStorage
	Triggers interf.TriggerStorage
	Awards   interf.AwardStorage
	Progress interf.ProgressStorage
	Cache    interf.CacheStorage
	Notifier interf.Notifier
}

var _ interf.RuleEngine = (*RuleEngineService)(nil)

type RuleEngineService struct {
	stores    Stores
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
	choiceTTL time.Duration
	simCount  int
}

func NewRuleEngineService(stores Stores, logger *zap.Logger) *RuleEngineService {
	return &RuleEngineService{
		stores:    stores,
		logger:    logger,
		tracer:    otel.Tracer("rules"),
		now:       time.Now,
		choiceTTL: time.Duration(envInt("RULES_CHOICE_TTL_DAYS", 7)) * 24 * time.Hour,
		simCount:  envInt("RULES_SIMULATOR_COUNT", 8),
	}
}

// числовой параметр из env со значением по умолчанию
func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// log
func (s *RuleEngineService) Log(service string, err error, fields ...zap.Field) {
	fields = append([]zap.Field{zap.String("service", service), zap.Error(err)}, fields...)
	s.logger.Error("Rule Engine", fields...)
}

// ошибки конфигурации правил не прерывают оценку
func (s *RuleEngineService) warn(service string, err error, fields ...zap.Field) {
	fields = append([]zap.Field{zap.String("service", service), zap.Error(err)}, fields...)
	s.logger.Warn("Rule config", fields...)
}

// PrepareContext заполняет время оценки и часовой пояс бизнеса
func (s *RuleEngineService) PrepareContext(ctx context.Context, ec models.EvaluationContext) (models.EvaluationContext, error) {
	if ec.BusinessID == "" {
		return ec, fmt.Errorf("businessId is required")
	}
	if ec.EvaluatedAt.IsZero() {
		ec.EvaluatedAt = s.now()
	}
	if ec.TriggerType == "" {
		ec.TriggerType = models.TriggerManual
	}
	if ec.Zone != nil {
		return ec, nil
	}
	if ec.Timezone == "" {
		business, err := s.stores.History.GetBusiness(ctx, ec.BusinessID)
		if err != nil {
			return ec, fmt.Errorf("business %s: %w", ec.BusinessID, err)
		}
		ec.Timezone = business.Timezone
	}
	if ec.Timezone == "" {
		s.warn("PrepareContext", models.ErrNoTimezone, zap.String("business", ec.BusinessID))
		return ec, nil
	}
	zone, err := time.LoadLocation(ec.Timezone)
	if err != nil {
		s.warn("PrepareContext", err, zap.String("business", ec.BusinessID))
		return ec, nil
	}
	ec.Zone = zone
	return ec, nil
}

// enrollment клиента: из контекста или поиском по (customer, business)
func (s *RuleEngineService) resolveEnrollment(ctx context.Context, ec models.EvaluationContext) (models.EvaluationContext, error) {
	if ec.CustomerID == "" {
		return ec, fmt.Errorf("customerId is required")
	}
	if ec.EnrollmentID != "" {
		return ec, nil
	}
	enrollment, err := s.stores.History.FindEnrollment(ctx, ec.CustomerID, ec.BusinessID)
	if err != nil {
		return ec, fmt.Errorf("enrollment: %w", err)
	}
	ec.EnrollmentID = enrollment.ID
	return ec, nil
}

// Evaluate - оценка всех активных правил бизнеса для контекста
func (s *RuleEngineService) Evaluate(ctx context.Context, ec models.EvaluationContext) (models.EvaluationResult, error) {
	ctx, span := s.tracer.Start(ctx, "rules.Evaluate")
	defer span.End()

	result := models.EvaluationResult{CustomerID: ec.CustomerID, BusinessID: ec.BusinessID}
	ec, err := s.PrepareContext(ctx, ec)
	if err != nil {
		return result, err
	}
	ec, err = s.resolveEnrollment(ctx, ec)
	if err != nil {
		return result, err
	}
	span.SetAttributes(attribute.String("customer", ec.CustomerID), attribute.String("business", ec.BusinessID))

	rules, err := s.stores.Rules.GetActiveRules(ctx, ec.BusinessID)
	if err != nil {
		s.Log("Evaluate", err, zap.String("business", ec.BusinessID))
		return result, err
	}
	// по убыванию приоритета
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority > rules[j].Priority })

	result.Outcomes = make([]models.RuleOutcome, 0, len(rules))
	for _, rule := range rules {
		outcome, err := s.evaluateRule(ctx, rule, ec)
		if err != nil {
			return result, err
		}
		if outcome.Triggered {
			result.Triggered++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result, nil
}

// EvaluateRule - оценка одного правила (ручная проверка)
func (s *RuleEngineService) EvaluateRule(ctx context.Context, ruleID string, ec models.EvaluationContext) (models.RuleOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "rules.EvaluateRule")
	defer span.End()

	rule, err := s.stores.Rules.GetRule(ctx, ruleID)
	if err != nil {
		return models.RuleOutcome{RuleID: ruleID}, err
	}
	if rule.BusinessID != ec.BusinessID {
		return models.RuleOutcome{RuleID: ruleID}, fmt.Errorf("rule %s %w", ruleID, models.ErrNotFound)
	}
	ec, err = s.PrepareContext(ctx, ec)
	if err != nil {
		return models.RuleOutcome{RuleID: ruleID}, err
	}
	ec, err = s.resolveEnrollment(ctx, ec)
	if err != nil {
		return models.RuleOutcome{RuleID: ruleID}, err
	}
	return s.evaluateRule(ctx, rule, ec)
}

// Оценка одного правила: допуски -> условия -> запись срабатывания -> награды -> вояж
func (s *RuleEngineService) evaluateRule(ctx context.Context, rule models.Rule, ec models.EvaluationContext) (outcome models.RuleOutcome, err error) {
	ctx, span := s.tracer.Start(ctx, "rules.evaluateRule", trace.WithAttributes(attribute.String("rule", rule.ID)))
	defer span.End()

	started := time.Now()
	outcome = models.RuleOutcome{RuleID: rule.ID, RuleName: rule.Name}
	defer func() {
		evaluationDuration.Observe(time.Since(started).Seconds())
		if err == nil {
			observeOutcome(outcome)
		}
	}()

	_, reason, err := s.checkGates(ctx, rule, ec, true)
	if err != nil {
		s.Log("evaluateRule", err, zap.String("rule", rule.ID), zap.String("customer", ec.CustomerID))
		return outcome, err
	}
	if reason != models.ReasonNone {
		outcome.Reason = reason
		return outcome, nil
	}

	ok, err := s.EvaluateConditions(ctx, rule.Conditions, ec)
	if err != nil {
		s.Log("evaluateRule", err, zap.String("rule", rule.ID), zap.String("customer", ec.CustomerID))
		return outcome, err
	}
	if !ok {
		outcome.Reason = models.ReasonConditionsNotMet
		return outcome, nil
	}

	// запись срабатывания занимает слот (customer, rule) до начисления наград
	trigger := models.RuleTrigger{
		ID:                uuid.NewString(),
		RuleID:            rule.ID,
		CustomerID:        ec.CustomerID,
		BusinessID:        ec.BusinessID,
		EnrollmentID:      ec.EnrollmentID,
		ConditionSnapshot: rule.Conditions,
		EvaluationContext: ec,
		TriggeredAt:       ec.EvaluatedAt,
	}
	// OR-выбор пишется в одной транзакции со срабатыванием
	choice := s.pendingChoice(rule, ec, trigger.ID)
	if choice != nil {
		trigger.PendingChoiceID = choice.ID
	}
	inserted, err := s.stores.Triggers.CreateTrigger(ctx, trigger, !rule.IsRepeatable, choice)
	if err != nil {
		s.Log("evaluateRule", err, zap.String("rule", rule.ID), zap.String("customer", ec.CustomerID))
		return outcome, err
	}
	if !inserted {
		racesLost.Inc()
		outcome.Reason = models.ReasonAlreadyTriggered
		return outcome, nil
	}

	awards := s.resolveAwards(ctx, rule, ec, trigger.ID, choice)
	trigger.AwardsGiven = awards.Results
	trigger.TotalPoints = awards.TotalPoints
	trigger.RewardID = awards.RewardID
	trigger.PendingChoiceID = awards.PendingChoiceID
	if err = s.stores.Triggers.CompleteTrigger(ctx, trigger); err != nil {
		s.Log("evaluateRule", err, zap.String("rule", rule.ID), zap.String("trigger", trigger.ID))
		return outcome, err
	}

	if rule.RulesetID != "" {
		if _, err = s.advanceVoyage(ctx, rule, ec); err != nil {
			s.Log("evaluateRule", err, zap.String("rule", rule.ID), zap.String("ruleset", rule.RulesetID))
			return outcome, err
		}
	}

	outcome.Triggered = true
	outcome.TriggerID = trigger.ID
	outcome.Awards = &awards
	s.notify(ctx, rule, trigger, awards)
	return outcome, nil
}

// уведомление после записи; ошибка не влияет на результат
func (s *RuleEngineService) notify(ctx context.Context, rule models.Rule, trigger models.RuleTrigger, awards models.AwardOutcome) {
	if s.stores.Notifier == nil {
		return
	}
	event := models.TriggerEvent{
		TriggerID:    trigger.ID,
		RuleID:       rule.ID,
		RuleName:     rule.Name,
		CustomerID:   trigger.CustomerID,
		BusinessID:   trigger.BusinessID,
		EnrollmentID: trigger.EnrollmentID,
		Awards:       awards,
		TriggeredAt:  trigger.TriggeredAt,
	}
	if err := s.stores.Notifier.PublishTrigger(ctx, event); err != nil {
		s.Log("notify", err, zap.String("trigger", trigger.ID))
	}
}

// enrollment через кэш
func (s *RuleEngineService) loadEnrollment(ctx context.Context, enrollmentID string) (models.Enrollment, error) {
	if s.stores.Cache != nil {
		enrollment, err := s.stores.Cache.GetEnrollment(ctx, enrollmentID)
		if err == nil {
			return enrollment, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			s.Log("loadEnrollment", err, zap.String("enrollment", enrollmentID))
		}
	}
	enrollment, err := s.stores.History.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return enrollment, err
	}
	if s.stores.Cache != nil {
		if err := s.stores.Cache.SetEnrollment(ctx, enrollment); err != nil {
			s.Log("loadEnrollment", err, zap.String("enrollment", enrollmentID))
		}
	}
	return enrollment, nil
}

func (s *RuleEngineService) invalidateEnrollment(ctx context.Context, enrollmentID string) {
	if s.stores.Cache == nil {
		return
	}
	if err := s.stores.Cache.InvalidateEnrollment(ctx, enrollmentID); err != nil {
		s.Log("invalidateEnrollment", err, zap.String("enrollment", enrollmentID))
	}
}
