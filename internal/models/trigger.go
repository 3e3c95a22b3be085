package rules

import "time"

// RuleTrigger - неизменяемая запись о срабатывании правила.
// Единственный источник истины для проверок повторяемости, кулдауна и лимита.
type RuleTrigger struct {
	ID                string            `json:"id"`
	RuleID            string            `json:"ruleId"`
	CustomerID        string            `json:"customerId"`
	BusinessID        string            `json:"businessId"`
	EnrollmentID      string            `json:"enrollmentId"`
	ConditionSnapshot Condition         `json:"conditionSnapshot"`
	EvaluationContext EvaluationContext `json:"evaluationContext"`
	AwardsGiven       []AwardResult     `json:"awardsGiven"`
	TotalPoints       int               `json:"totalPoints"`
	RewardID          string            `json:"rewardId,omitempty"`
	PendingChoiceID   string            `json:"pendingChoiceId,omitempty"`
	TriggeredAt       time.Time         `json:"triggeredAt"`
}

// TriggerEvent - уведомление о закоммиченном срабатывании
type TriggerEvent struct {
	TriggerID    string       `json:"triggerId"`
	RuleID       string       `json:"ruleId"`
	RuleName     string       `json:"ruleName"`
	CustomerID   string       `json:"customerId"`
	BusinessID   string       `json:"businessId"`
	EnrollmentID string       `json:"enrollmentId"`
	Awards       AwardOutcome `json:"awards"`
	TriggeredAt  time.Time    `json:"triggeredAt"`
}

// Reason - причина, по которой правило не сработало. Не ошибка.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonInactive           Reason = "inactive"
	ReasonNotStarted         Reason = "not_started"
	ReasonEnded              Reason = "ended"
	ReasonAlreadyTriggered   Reason = "already_triggered"
	ReasonInCooldown         Reason = "in_cooldown"
	ReasonMaxTriggers        Reason = "max_triggers_reached"
	ReasonSequenceLocked     Reason = "sequence_locked"
	ReasonConditionsNotMet   Reason = "conditions_not_met"
	ReasonNoEligibleCustomer Reason = "no_enrolled_customers"
)

// RuleOutcome - результат оценки одного правила
type RuleOutcome struct {
	RuleID    string        `json:"ruleId"`
	RuleName  string        `json:"ruleName"`
	Triggered bool          `json:"triggered"`
	Reason    Reason        `json:"reason,omitempty"`
	TriggerID string        `json:"triggerId,omitempty"`
	Awards    *AwardOutcome `json:"awards,omitempty"`
}

// EvaluationResult - результат прохода по всем правилам бизнеса
type EvaluationResult struct {
	CustomerID string        `json:"customerId"`
	BusinessID string        `json:"businessId"`
	Outcomes   []RuleOutcome `json:"outcomes"`
	Triggered  int           `json:"triggered"`
}
