package rules

import (
	"context"
	"time"

	models "github.com/glkeru/loyalty/rules/internal/models"
)

//go:generate mockgen -destination=./../services/mock_storage_test.go -package=rules . RuleStorage,HistoryStorage,TriggerStorage,AwardStorage,ProgressStorage,CacheStorage,Notifier

// Каталог правил и вояжей
type RuleStorage interface {
	GetActiveRules(ctx context.Context, businessID string) ([]models.Rule, error)
	GetAllRules(ctx context.Context, businessID string) ([]models.Rule, error)
	GetRule(ctx context.Context, ruleID string) (models.Rule, error)
	SaveRule(ctx context.Context, rule models.Rule) (models.Rule, error)
	DeactivateRule(ctx context.Context, ruleID string) error
	GetRulesetRules(ctx context.Context, rulesetID string) ([]models.Rule, error)
	GetRuleset(ctx context.Context, rulesetID string) (models.Ruleset, error)
	GetRulesets(ctx context.Context, businessID string) ([]models.Ruleset, error)
	SaveRuleset(ctx context.Context, ruleset models.Ruleset) (models.Ruleset, error)
}

// История клиента: визиты, покупки, теги, участие. since == nil - без ограничения по времени.
type HistoryStorage interface {
	GetBusiness(ctx context.Context, businessID string) (models.Business, error)
	GetEnrollment(ctx context.Context, enrollmentID string) (models.Enrollment, error)
	GetEnrollments(ctx context.Context, businessID string) ([]models.Enrollment, error)
	FindEnrollment(ctx context.Context, customerID, businessID string) (models.Enrollment, error)
	CountVisits(ctx context.Context, customerID, businessID string, locationIDs []string, since *time.Time) (int, error)
	VisitedLocations(ctx context.Context, customerID, businessID string, since *time.Time) ([]string, error)
	ActiveLocations(ctx context.Context, businessID string) ([]string, error)
	GroupLocations(ctx context.Context, groupID string) ([]string, error)
	SumSpend(ctx context.Context, customerID, businessID string, since *time.Time) (int64, error)
	GetTransactions(ctx context.Context, customerID, businessID string, since *time.Time) ([]models.Transaction, error)
	GetActiveTags(ctx context.Context, customerID, businessID string, at time.Time) ([]string, error)
}

// Журнал срабатываний. CreateTrigger с unique=true возвращает false, если запись для (customer, rule) уже есть.
// choice != nil пишется атомарно вместе со срабатыванием.
type TriggerStorage interface {
	CountTriggers(ctx context.Context, customerID, ruleID string, since *time.Time) (int, error)
	LastTriggeredAt(ctx context.Context, customerID, ruleID string) (*time.Time, error)
	TriggeredRules(ctx context.Context, customerID string, ruleIDs []string, since *time.Time) ([]string, error)
	CreateTrigger(ctx context.Context, trigger models.RuleTrigger, unique bool, choice *models.PendingAwardChoice) (bool, error)
	CompleteTrigger(ctx context.Context, trigger models.RuleTrigger) error
}

// Изменения состояния клиента при начислении наград
type AwardStorage interface {
	AddPoints(ctx context.Context, enrollmentID string, points int) error
	SetMultiplier(ctx context.Context, enrollmentID string, value float64, expiresAt *time.Time) error
	GetReward(ctx context.Context, rewardID string) (models.Reward, error)
	CreateRedemption(ctx context.Context, redemption models.Redemption) error
	UpsertTag(ctx context.Context, tag models.CustomerTag) error
	GetPendingChoice(ctx context.Context, choiceID string) (models.PendingAwardChoice, error)
	ClaimPendingChoice(ctx context.Context, choiceID string, groupIndex int, locationID string, at time.Time) (bool, error)
	SetChoiceAwards(ctx context.Context, choiceID string, awards []models.AwardResult) error
	ExpirePendingChoices(ctx context.Context, at time.Time) (int64, error)
}

// Прогресс по вояжам. UpdateProgress выполняет fn под блокировкой строки;
// если записи нет, fn получает новую со статусом not_started. fn возвращает false - ничего не пишем.
type ProgressStorage interface {
	GetProgress(ctx context.Context, rulesetID, customerID string) (*models.RulesetProgress, error)
	UpdateProgress(ctx context.Context, rulesetID, customerID string, fn func(p *models.RulesetProgress) (bool, error)) (*models.RulesetProgress, error)
	ExpireProgress(ctx context.Context, at time.Time) (int64, error)
}

type CacheStorage interface {
	GetEnrollment(ctx context.Context, enrollmentID string) (models.Enrollment, error)
	SetEnrollment(ctx context.Context, enrollment models.Enrollment) error
	InvalidateEnrollment(ctx context.Context, enrollmentID string) error
}

// Уведомления о срабатываниях
type Notifier interface {
	PublishTrigger(ctx context.Context, event models.TriggerEvent) error
}
