package rules

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	models "github.com/glkeru/loyalty/rules/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// источник награды: правило и срабатывание
type awardSource struct {
	ruleID    string
	triggerID string
}

// applyAward - одна награда. Ошибки не прерывают соседние награды и возвращаются в результате.
func (s *RuleEngineService) applyAward(ctx context.Context, award models.Award, ec models.EvaluationContext, src awardSource) models.AwardResult {
	var result models.AwardResult
	switch award.Type {
	case models.AwardBonusPoints:
		result = s.applyBonusPoints(ctx, award, ec)
	case models.AwardMultiplier:
		result = s.applyMultiplier(ctx, award, ec)
	case models.AwardUnlockReward:
		result = s.applyUnlockReward(ctx, award, ec, src)
	case models.AwardApplyTag:
		result = s.applyTag(ctx, award, ec, src)
	default:
		s.warn("applyAward", fmt.Errorf("unknown award type %q", award.Type), zap.String("rule", src.ruleID))
		result = models.AwardResult{Type: award.Type, Error: "unknown award type"}
	}
	observeAward(result)
	return result
}

// Бонусные баллы, только целое положительное значение
func (s *RuleEngineService) applyBonusPoints(ctx context.Context, award models.Award, ec models.EvaluationContext) models.AwardResult {
	result := models.AwardResult{Type: award.Type}
	if award.Value <= 0 || award.Value != math.Trunc(award.Value) {
		result.Error = "points must be a positive integer"
		return result
	}
	points := int(award.Value)
	if err := s.stores.Awards.AddPoints(ctx, ec.EnrollmentID, points); err != nil {
		s.Log("applyBonusPoints", err, zap.String("enrollment", ec.EnrollmentID))
		result.Error = err.Error()
		return result
	}
	s.invalidateEnrollment(ctx, ec.EnrollmentID)
	result.Success = true
	result.Points = points
	return result
}

// Множитель заменяет предыдущий
func (s *RuleEngineService) applyMultiplier(ctx context.Context, award models.Award, ec models.EvaluationContext) models.AwardResult {
	result := models.AwardResult{Type: award.Type}
	if award.Value <= 0 {
		result.Error = "multiplier must be positive"
		return result
	}

	var expiresAt *time.Time
	switch award.Duration {
	case models.DurationDays:
		if award.DurationValue <= 0 {
			result.Error = "durationValue must be positive"
			return result
		}
		t := ec.EvaluatedAt.AddDate(0, 0, award.DurationValue)
		expiresAt = &t
	case models.DurationUntilDate:
		if award.UntilDate == nil {
			result.Error = "untilDate is required"
			return result
		}
		expiresAt = award.UntilDate
	case models.DurationPermanent, "":
	default:
		result.Error = "unknown duration " + award.Duration
		return result
	}

	if err := s.stores.Awards.SetMultiplier(ctx, ec.EnrollmentID, award.Value, expiresAt); err != nil {
		s.Log("applyMultiplier", err, zap.String("enrollment", ec.EnrollmentID))
		result.Error = err.Error()
		return result
	}
	s.invalidateEnrollment(ctx, ec.EnrollmentID)
	result.Success = true
	result.Multiplier = award.Value
	result.MultiplierExpiresAt = expiresAt
	return result
}

// Разблокировка награды: погашение без списания баллов
func (s *RuleEngineService) applyUnlockReward(ctx context.Context, award models.Award, ec models.EvaluationContext, src awardSource) models.AwardResult {
	result := models.AwardResult{Type: award.Type, RewardID: award.RewardID}
	if award.RewardID == "" {
		result.Error = "rewardId is required"
		return result
	}
	reward, err := s.stores.Awards.GetReward(ctx, award.RewardID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.Log("applyUnlockReward", err, zap.String("reward", award.RewardID))
		}
		result.Error = err.Error()
		return result
	}
	if reward.BusinessID != ec.BusinessID {
		result.Error = "reward " + models.ErrNotFound.Error()
		return result
	}
	if !reward.IsActive {
		result.Error = "reward is inactive"
		return result
	}

	code, err := redemptionCode()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	redemption := models.Redemption{
		ID:              uuid.NewString(),
		RewardID:        reward.ID,
		CustomerID:      ec.CustomerID,
		BusinessID:      ec.BusinessID,
		EnrollmentID:    ec.EnrollmentID,
		Code:            code,
		SourceTriggerID: src.triggerID,
		CreatedAt:       ec.EvaluatedAt,
	}
	if reward.ExpiresDays != nil && *reward.ExpiresDays > 0 {
		t := ec.EvaluatedAt.AddDate(0, 0, *reward.ExpiresDays)
		redemption.ExpiresAt = &t
	}
	if err := s.stores.Awards.CreateRedemption(ctx, redemption); err != nil {
		s.Log("applyUnlockReward", err, zap.String("reward", reward.ID))
		result.Error = err.Error()
		return result
	}
	result.Success = true
	result.RedemptionID = redemption.ID
	result.RedemptionCode = redemption.Code
	return result
}

// Тег уникален по (customer, business, tag), повтор обновляет срок
func (s *RuleEngineService) applyTag(ctx context.Context, award models.Award, ec models.EvaluationContext, src awardSource) models.AwardResult {
	result := models.AwardResult{Type: award.Type, Tag: award.Tag}
	if award.Tag == "" {
		result.Error = "tag is required"
		return result
	}
	tag := models.CustomerTag{
		CustomerID:   ec.CustomerID,
		BusinessID:   ec.BusinessID,
		Tag:          award.Tag,
		SourceRuleID: src.ruleID,
		UpdatedAt:    ec.EvaluatedAt,
	}
	if award.ExpiresDays != nil && *award.ExpiresDays > 0 {
		t := ec.EvaluatedAt.AddDate(0, 0, *award.ExpiresDays)
		tag.ExpiresAt = &t
	}
	if err := s.stores.Awards.UpsertTag(ctx, tag); err != nil {
		s.Log("applyTag", err, zap.String("tag", award.Tag))
		result.Error = err.Error()
		return result
	}
	result.Success = true
	result.TagExpiresAt = tag.ExpiresAt
	return result
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// код погашения из 8 символов без похожих букв и цифр
func redemptionCode() (string, error) {
	code := make([]byte, 8)
	size := big.NewInt(int64(len(codeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// applyAwards - список наград подряд
func (s *RuleEngineService) applyAwards(ctx context.Context, awards []models.Award, ec models.EvaluationContext, src awardSource) models.AwardOutcome {
	outcome := models.AwardOutcome{Results: make([]models.AwardResult, 0, len(awards))}
	for _, award := range awards {
		r := s.applyAward(ctx, award, ec, src)
		if r.Success {
			outcome.TotalPoints += r.Points
			if r.RedemptionID != "" && outcome.RewardID == "" {
				outcome.RewardID = r.RewardID
			}
		}
		outcome.Results = append(outcome.Results, r)
	}
	return outcome
}

// pendingChoice - отложенный выбор для OR-групп, nil для остальных наград
func (s *RuleEngineService) pendingChoice(rule models.Rule, ec models.EvaluationContext, triggerID string) *models.PendingAwardChoice {
	spec := rule.Awards
	if !spec.IsGroup() || spec.Operator != models.OR {
		return nil
	}
	expiresAt := ec.EvaluatedAt.Add(s.choiceTTL)
	return &models.PendingAwardChoice{
		ID:           uuid.NewString(),
		RuleID:       rule.ID,
		TriggerID:    triggerID,
		CustomerID:   ec.CustomerID,
		BusinessID:   ec.BusinessID,
		EnrollmentID: ec.EnrollmentID,
		AwardOptions: spec.Groups,
		Status:       models.ChoicePending,
		CreatedAt:    ec.EvaluatedAt,
		ExpiresAt:    &expiresAt,
	}
}

// resolveAwards - список и AND применяются сразу, OR откладывается до выбора клиента.
// Выбор для OR уже записан вместе со срабатыванием.
func (s *RuleEngineService) resolveAwards(ctx context.Context, rule models.Rule, ec models.EvaluationContext, triggerID string, choice *models.PendingAwardChoice) models.AwardOutcome {
	src := awardSource{ruleID: rule.ID, triggerID: triggerID}
	spec := rule.Awards
	if !spec.IsGroup() {
		return s.applyAwards(ctx, spec.Items, ec, src)
	}

	switch spec.Operator {
	case models.AND:
		return s.applyAwards(ctx, spec.All(), ec, src)
	case models.OR:
		if choice != nil {
			return models.AwardOutcome{Deferred: true, PendingChoiceID: choice.ID, Results: []models.AwardResult{}}
		}
	}
	s.warn("resolveAwards", fmt.Errorf("unknown award operator %q", spec.Operator), zap.String("rule", rule.ID))
	return models.AwardOutcome{Results: []models.AwardResult{}}
}

// ClaimAward - клиент выбирает одну группу из отложенного OR.
// Выбор сначала фиксируется в хранилище, затем начисляются награды группы.
func (s *RuleEngineService) ClaimAward(ctx context.Context, choiceID, customerID string, groupIndex int) (models.AwardOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "rules.ClaimAward")
	defer span.End()

	choice, err := s.stores.Awards.GetPendingChoice(ctx, choiceID)
	if err != nil {
		return models.AwardOutcome{}, err
	}
	if choice.CustomerID != customerID {
		return models.AwardOutcome{}, fmt.Errorf("award choice %w", models.ErrNotFound)
	}
	now := s.now()
	switch {
	case choice.Status == models.ChoiceClaimed:
		return models.AwardOutcome{}, models.ErrChoiceResolved
	case choice.Status == models.ChoiceExpired:
		return models.AwardOutcome{}, models.ErrChoiceExpired
	case choice.ExpiresAt != nil && now.After(*choice.ExpiresAt):
		return models.AwardOutcome{}, models.ErrChoiceExpired
	case groupIndex < 0 || groupIndex >= len(choice.AwardOptions):
		return models.AwardOutcome{}, models.ErrInvalidChoice
	}

	group := choice.AwardOptions[groupIndex]
	claimed, err := s.stores.Awards.ClaimPendingChoice(ctx, choice.ID, groupIndex, group.LocationID, now)
	if err != nil {
		s.Log("ClaimAward", err, zap.String("choice", choice.ID))
		return models.AwardOutcome{}, err
	}
	if !claimed {
		return models.AwardOutcome{}, models.ErrChoiceResolved
	}

	ec := models.EvaluationContext{
		CustomerID:   choice.CustomerID,
		BusinessID:   choice.BusinessID,
		EnrollmentID: choice.EnrollmentID,
		LocationID:   group.LocationID,
		TriggerType:  models.TriggerManual,
		EvaluatedAt:  now,
	}
	outcome := s.applyAwards(ctx, group.Awards, ec, awardSource{ruleID: choice.RuleID, triggerID: choice.TriggerID})
	outcome.PendingChoiceID = choice.ID
	if err := s.stores.Awards.SetChoiceAwards(ctx, choice.ID, outcome.Results); err != nil {
		s.Log("ClaimAward", err, zap.String("choice", choice.ID))
		return outcome, err
	}
	choicesClaimed.Inc()
	return outcome, nil
}
